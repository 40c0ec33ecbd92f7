package logging

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fyrsmithlabs/relnotesd/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field keys whose values are never written out verbatim. Matching is by
// substring of the lowercased key.
var sensitiveFieldKeys = []string{
	"password", "secret", "token", "api_key",
	"authorization", "bearer", "credential", "private_key",
}

// Secret creates a zap field for a config secret that logs only its length.
func Secret(key string, val config.Secret) zap.Field {
	if !val.IsSet() {
		return zap.String(key, "")
	}
	return zap.String(key, fmt.Sprintf("[REDACTED:%d]", len(val.Value())))
}

// RedactedString creates a zap field with a redacted value and its length.
func RedactedString(key, val string) zap.Field {
	return zap.String(key, "[REDACTED:"+strconv.Itoa(len(val))+"]")
}

// RedactingEncoder wraps an encoder and masks credential-shaped fields by
// key. Values are not pattern-scanned; the config.Secret type already covers
// values that arrive through configuration, this catches fields logged
// directly.
type RedactingEncoder struct {
	zapcore.Encoder
}

func newRedactingEncoder(base zapcore.Encoder) *RedactingEncoder {
	return &RedactingEncoder{Encoder: base}
}

// shouldRedactKey reports whether the key names a credential.
func shouldRedactKey(key string) bool {
	lower := strings.ToLower(key)
	for _, sensitive := range sensitiveFieldKeys {
		if strings.Contains(lower, sensitive) {
			return true
		}
	}
	return false
}

// AddString masks non-empty values under credential-shaped keys. Values the
// Secret helper already reduced to a length marker pass through unchanged.
func (e *RedactingEncoder) AddString(key, val string) {
	if shouldRedactKey(key) && val != "" && !strings.HasPrefix(val, "[REDACTED") {
		e.Encoder.AddString(key, "[REDACTED]")
		return
	}
	e.Encoder.AddString(key, val)
}

// AddByteString masks credential-shaped keys.
func (e *RedactingEncoder) AddByteString(key string, val []byte) {
	if shouldRedactKey(key) && len(val) > 0 {
		e.Encoder.AddByteString(key, []byte("[REDACTED]"))
		return
	}
	e.Encoder.AddByteString(key, val)
}

// AddBinary masks credential-shaped keys.
func (e *RedactingEncoder) AddBinary(key string, val []byte) {
	if shouldRedactKey(key) && len(val) > 0 {
		e.Encoder.AddBinary(key, []byte("[REDACTED]"))
		return
	}
	e.Encoder.AddBinary(key, val)
}

// AddReflected masks the entire reflected value when the key is sensitive.
func (e *RedactingEncoder) AddReflected(key string, val interface{}) error {
	if shouldRedactKey(key) {
		e.Encoder.AddString(key, "[REDACTED]")
		return nil
	}
	return e.Encoder.AddReflected(key, val)
}

// AddArray masks credential-shaped keys.
func (e *RedactingEncoder) AddArray(key string, arr zapcore.ArrayMarshaler) error {
	if shouldRedactKey(key) {
		e.Encoder.AddString(key, "[REDACTED]")
		return nil
	}
	return e.Encoder.AddArray(key, arr)
}

// AddObject masks credential-shaped keys.
func (e *RedactingEncoder) AddObject(key string, obj zapcore.ObjectMarshaler) error {
	if shouldRedactKey(key) {
		e.Encoder.AddString(key, "[REDACTED]")
		return nil
	}
	return e.Encoder.AddObject(key, obj)
}

// Clone creates a copy of the encoder.
func (e *RedactingEncoder) Clone() zapcore.Encoder {
	return &RedactingEncoder{Encoder: e.Encoder.Clone()}
}

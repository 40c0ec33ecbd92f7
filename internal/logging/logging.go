// Package logging builds the structured zap logger shared by the relnotesd
// binaries. Production output is JSON on stderr with level-aware sampling;
// development output is console-encoded with caller annotations. Both modes
// mask credential-shaped fields at the encoder, so a misplaced token never
// reaches the log stream.
package logging

import (
	"fmt"
	"os"

	"github.com/fyrsmithlabs/relnotesd/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ParseLevel maps a configuration level string onto a zap level. An empty
// string means info.
func ParseLevel(s string) (zapcore.Level, error) {
	switch s {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InvalidLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// New builds the process logger from configuration.
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	enc := newRedactingEncoder(newEncoder(cfg.Development))
	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), level)

	opts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.Development {
		opts = append(opts, zap.AddCaller(), zap.Development())
	} else {
		core = newSampledCore(core)
	}

	return zap.New(core, opts...).With(zap.String("service", "relnotesd")), nil
}

// newEncoder creates the JSON or console encoder.
func newEncoder(development bool) zapcore.Encoder {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if development {
		encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(encoderCfg)
	}
	return zapcore.NewJSONEncoder(encoderCfg)
}

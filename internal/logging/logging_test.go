package logging

import (
	"bytes"
	"io"
	"testing"

	"github.com/fyrsmithlabs/relnotesd/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"info", zapcore.InfoLevel, false},
		{"", zapcore.InfoLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"verbose", zapcore.InvalidLevel, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.input)
			continue
		}
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

func TestNew(t *testing.T) {
	t.Run("honors the configured level", func(t *testing.T) {
		logger, err := New(config.LoggingConfig{Level: "debug"})
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

		logger, err = New(config.LoggingConfig{Level: "warn"})
		require.NoError(t, err)
		assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
		assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
	})

	t.Run("builds a development logger", func(t *testing.T) {
		logger, err := New(config.LoggingConfig{Level: "debug", Development: true})
		require.NoError(t, err)
		assert.NotNil(t, logger)
	})

	t.Run("rejects unknown levels", func(t *testing.T) {
		_, err := New(config.LoggingConfig{Level: "verbose"})
		assert.Error(t, err)
	})
}

func TestRedactingEncoderMasksCredentialFields(t *testing.T) {
	var buf bytes.Buffer
	enc := newRedactingEncoder(newEncoder(false))
	core := zapcore.NewCore(enc, zapcore.AddSync(&buf), zapcore.DebugLevel)
	logger := zap.New(core)

	logger.Info("github client ready",
		zap.String("api_key", "sk-live-12345"),
		zap.String("github_token", "ghp_verysecret"),
		zap.String("owner", "acme"),
	)

	out := buf.String()
	assert.NotContains(t, out, "sk-live-12345")
	assert.NotContains(t, out, "ghp_verysecret")
	assert.Contains(t, out, "[REDACTED]")
	assert.Contains(t, out, "acme")
}

func TestRedactingEncoderKeepsLengthMarkers(t *testing.T) {
	var buf bytes.Buffer
	enc := newRedactingEncoder(newEncoder(false))
	core := zapcore.NewCore(enc, zapcore.AddSync(&buf), zapcore.DebugLevel)
	logger := zap.New(core)

	logger.Info("configured", Secret("token", config.Secret("ghp_abcdef")))

	assert.Contains(t, buf.String(), "[REDACTED:10]")
}

func TestSecretField(t *testing.T) {
	f := Secret("token", config.Secret("ghp_abcdef"))
	assert.Equal(t, "[REDACTED:10]", f.String)

	f = Secret("token", config.Secret(""))
	assert.Equal(t, "", f.String)
}

func TestRedactedString(t *testing.T) {
	f := RedactedString("diff", "12345")
	assert.Equal(t, "[REDACTED:5]", f.String)
}

func TestLevelFilterCore(t *testing.T) {
	base := zapcore.NewCore(newEncoder(false), zapcore.AddSync(io.Discard), zapcore.DebugLevel)

	errOnly := &levelFilterCore{Core: base, minLevel: zapcore.ErrorLevel}
	assert.True(t, errOnly.Enabled(zapcore.ErrorLevel))
	assert.False(t, errOnly.Enabled(zapcore.InfoLevel))

	belowError := &levelFilterCore{Core: base, maxLevel: zapcore.WarnLevel}
	assert.True(t, belowError.Enabled(zapcore.DebugLevel))
	assert.True(t, belowError.Enabled(zapcore.WarnLevel))
	assert.False(t, belowError.Enabled(zapcore.ErrorLevel))
}

func TestSampledCoreKeepsErrors(t *testing.T) {
	var buf bytes.Buffer
	base := zapcore.NewCore(newEncoder(false), zapcore.AddSync(&buf), zapcore.DebugLevel)
	logger := zap.New(newSampledCore(base))

	logger.Error("generation failed")
	logger.Info("session closed")

	out := buf.String()
	assert.Contains(t, out, "generation failed")
	assert.Contains(t, out, "session closed")
}

package testutil

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

type redacted string

func (redacted) LogValue() slog.Value { return slog.StringValue("[redacted]") }

func TestBufferedSlogHandler(t *testing.T) {
	logger, h := NewTestLogger(nil)

	child := logger.With(slog.String("component", "license_session")).WithGroup("req")
	child.Info("license activated", slog.String("license_key", "ABCDEFGH****"))
	logger.Error("store failed", slog.Int("code", 503), slog.Any("key", redacted("top-secret")))

	assert.Equal(t, 2, h.Count())
	assert.True(t, h.ContainsMessage("activated"))
	assert.True(t, h.ContainsText("req.license_key=ABCDEFGH****"))
	assert.True(t, h.ContainsText("component=license_session"))
	assert.True(t, h.ContainsText("[redacted]"))
	assert.False(t, h.ContainsText("top-secret"))
	assert.Len(t, h.RecordsByLevel(slog.LevelError), 1)

	AssertLogContains(t, h, slog.LevelInfo, "license activated")
	AssertNotLogged(t, h, "top-secret", "")
}

package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug", false))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("WARN", false))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error", true))
	assert.Equal(t, zapcore.DebugLevel, parseLevel("development", true))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("production", false))
}

func TestGet_BeforeInit(t *testing.T) {
	mu.Lock()
	global = nil
	mu.Unlock()

	l := Get()
	require.NotNil(t, l)
	l.Info("dropped")
}

func TestInit(t *testing.T) {
	err := Init(&Config{Level: "info", ServiceName: "test", Development: false})
	require.NoError(t, err)

	l := Get()
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))

	child := l.Named("session").With()
	assert.NotNil(t, child)
}

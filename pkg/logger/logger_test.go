package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestNewLoggerLevels(t *testing.T) {
	assert.False(t, NewLogger(false).Core().Enabled(zapcore.DebugLevel))
	assert.True(t, NewLogger(true).Core().Enabled(zapcore.DebugLevel))
}

func TestNewLoggerName(t *testing.T) {
	entry := NewLogger(false).Check(zapcore.InfoLevel, "hello")
	assert.Equal(t, "llmbridge", entry.LoggerName)
}

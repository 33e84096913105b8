// Package logger provides the opinionated zap logger used across
// llmbridge.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a console logger writing to stdout. Debug enables
// per-request and per-chunk relay logging plus caller annotations,
// which are noisy under load.
func NewLogger(debug bool) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	// Request latencies log as "1.2s" rather than raw nanoseconds.
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder

	level := zap.InfoLevel
	opts := []zap.Option{zap.AddStacktrace(zap.ErrorLevel)}
	if debug {
		level = zap.DebugLevel
		opts = append(opts, zap.AddCaller())
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stdout),
		level,
	)

	return zap.New(core, opts...).Named("llmbridge")
}

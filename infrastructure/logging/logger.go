package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures diagnostic logging
type Options struct {
	Verbose bool
	Writer  io.Writer // defaults to stderr
}

// New builds the diagnostic logger. Without Verbose it returns a no-op logger so
// console output stays limited to progress and the outcome line.
func New(opts Options) *zap.Logger {
	if !opts.Verbose {
		return zap.NewNop()
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(w),
		zapcore.DebugLevel,
	)
	return zap.New(core)
}

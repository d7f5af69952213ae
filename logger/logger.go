package logger

import (
	"io"
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger is the process-wide logger. Components take a named child via
	// ComponentLogger rather than using it directly.
	Logger *zap.SugaredLogger
	// JSONOutput reports whether Initialize chose the JSON encoder.
	JSONOutput bool

	verbosity atomic.Int32
)

func init() {
	// no-op until Initialize, so tests and init code can log
	Logger = zap.NewNop().Sugar()
}

// Initialize replaces the global logger. Logs go to stderr so command output
// on stdout stays clean. verbosity is the -v flag count.
func Initialize(jsonOutput bool, v int) error {
	JSONOutput = jsonOutput
	verbosity.Store(int32(v))
	Logger = zap.New(newCore(jsonOutput, VerbosityToLevel(v), os.Stderr)).Sugar()
	return nil
}

// newCore builds the encoder pair used by Initialize: production JSON for
// machines, a short colored console line for people.
func newCore(jsonOutput bool, level zapcore.Level, w io.Writer) zapcore.Core {
	var enc zapcore.Encoder
	if jsonOutput {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(cfg)
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		cfg.EncodeCaller = nil
		enc = zapcore.NewConsoleEncoder(cfg)
	}
	return zapcore.NewCore(enc, zapcore.AddSync(w), level)
}

// TraceEnabled reports whether -vvv was given.
func TraceEnabled() bool {
	return ShouldLogTrace(int(verbosity.Load()))
}

// Cleanup flushes any buffered log entries
func Cleanup() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}

// Infow logs an info message with structured fields
func Infow(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Infow(msg, keysAndValues...)
	}
}

// Errorw logs an error message with structured fields
func Errorw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Errorw(msg, keysAndValues...)
	}
}

// Warnw logs a warning message with structured fields
func Warnw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Warnw(msg, keysAndValues...)
	}
}

// Debugw logs a debug message with structured fields
func Debugw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Debugw(msg, keysAndValues...)
	}
}

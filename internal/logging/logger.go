package logging

import (
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps logr.Logger with the helpers the digest stages log through.
type Logger struct {
	log logr.Logger
}

// New returns a Logger based on the provided logr.Logger. When the base logger
// is uninitialized it falls back to the module default.
func New(base logr.Logger) Logger {
	if base.GetSink() == nil {
		base = DefaultLogger()
	}
	return Logger{log: base}
}

// Format selects the zap encoder used by Build.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// DefaultLogger returns the console logger at info level.
func DefaultLogger() logr.Logger {
	return Build("info", FormatConsole)
}

// Build returns a zap-backed logger that emits records at or above level.
// Unknown levels fall back to info and unknown formats to console. JSON
// output drops sampling so that every degradation warning reaches the sink.
func Build(level string, format Format) logr.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	var cfg zap.Config
	switch format {
	case FormatJSON:
		cfg = zap.NewProductionConfig()
		cfg.Sampling = nil
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true

	zapLogger, err := cfg.Build()
	if err != nil {
		zapLogger = zap.NewNop()
	}
	return zapr.NewLogger(zapLogger)
}

// WithValues returns a new Logger with additional key-value pairs attached.
func (l Logger) WithValues(keysAndValues ...any) Logger {
	return Logger{log: l.log.WithValues(keysAndValues...)}
}

// WithName scopes the logger with the supplied name.
func (l Logger) WithName(name string) Logger {
	return Logger{log: l.log.WithName(name)}
}

// Info logs an informational message.
func (l Logger) Info(msg string, keysAndValues ...any) {
	l.log.Info(msg, keysAndValues...)
}

// Debug logs a verbose message when V(1) is enabled on the underlying logger.
func (l Logger) Debug(msg string, keysAndValues ...any) {
	if l.log.V(1).Enabled() {
		l.log.V(1).Info(msg, keysAndValues...)
	}
}

// Warn logs a non-fatal degradation. logr has no warning level, so the record
// is emitted at info verbosity and tagged with severity=warning.
func (l Logger) Warn(err error, msg string, keysAndValues ...any) {
	kv := make([]any, 0, len(keysAndValues)+4)
	kv = append(kv, "severity", "warning")
	if err != nil {
		kv = append(kv, "reason", err.Error())
	}
	kv = append(kv, keysAndValues...)
	l.log.Info(msg, kv...)
}

// Error logs an error message.
func (l Logger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(err, msg, keysAndValues...)
}

// Logr exposes the underlying logr.Logger.
func (l Logger) Logr() logr.Logger {
	return l.log
}

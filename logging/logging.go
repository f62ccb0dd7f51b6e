// Package logging provides the structured Logger used throughout the path
// optimizer. It mirrors the shape of a production robotics logging package
// built on zap: a small interface with leveled, structured methods and a
// Sublogger for per-component naming, backed by a zap.SugaredLogger.
package logging

import (
	"testing"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

// Logger is the structured logger interface passed into every stateful
// component of the optimizer. Implementations must be safe for concurrent
// use by independent PathOptimizer instances, but a single Logger is not
// required to be safe against concurrent writes from the same instance
// (the core itself is single-threaded per §5).
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})

	// Sublogger returns a new Logger namespaced under this one, e.g.
	// logger.Sublogger("mpt") on a logger named "pathoptimizer" logs as
	// "pathoptimizer.mpt".
	Sublogger(name string) Logger

	// Sync flushes any buffered log entries.
	Sync() error
}

type zapLogger struct {
	name string
	sug  *zap.SugaredLogger
}

// NewLogger returns a Logger that writes Info+ level entries to stdout.
func NewLogger(name string) Logger {
	return newZapLogger(name, zap.NewAtomicLevelAt(zap.InfoLevel))
}

// NewDebugLogger returns a Logger that writes Debug+ level entries to stdout.
func NewDebugLogger(name string) Logger {
	return newZapLogger(name, zap.NewAtomicLevelAt(zap.DebugLevel))
}

func newZapLogger(name string, level zap.AtomicLevel) Logger {
	cfg := zap.Config{
		Level:    level,
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}
	base, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// zap.Config.Build only fails on a malformed encoder config, which
		// the literal above never produces.
		panic(err)
	}
	return &zapLogger{name: name, sug: base.Named(name).Sugar()}
}

// NewTestLogger returns a Logger suitable for use in tests: it writes
// through testing.TB's own output, so failures show log context inline
// with the failing test.
func NewTestLogger(tb testing.TB) Logger {
	base := zaptest.NewLogger(tb, zaptest.WrapOptions(zap.AddCallerSkip(1)))
	return &zapLogger{name: "", sug: base.Sugar()}
}

func (l *zapLogger) Debugw(msg string, kv ...interface{}) { l.sug.Debugw(msg, kv...) }
func (l *zapLogger) Infow(msg string, kv ...interface{})  { l.sug.Infow(msg, kv...) }
func (l *zapLogger) Warnw(msg string, kv ...interface{})  { l.sug.Warnw(msg, kv...) }
func (l *zapLogger) Errorw(msg string, kv ...interface{}) { l.sug.Errorw(msg, kv...) }

func (l *zapLogger) Debugf(t string, a ...interface{}) { l.sug.Debugf(t, a...) }
func (l *zapLogger) Infof(t string, a ...interface{})  { l.sug.Infof(t, a...) }
func (l *zapLogger) Warnf(t string, a ...interface{})  { l.sug.Warnf(t, a...) }
func (l *zapLogger) Errorf(t string, a ...interface{}) { l.sug.Errorf(t, a...) }

func (l *zapLogger) Sublogger(name string) Logger {
	newName := name
	if l.name != "" {
		newName = l.name + "." + name
	}
	return &zapLogger{name: newName, sug: l.sug.Named(name)}
}

func (l *zapLogger) Sync() error {
	return multierr.Combine(l.sug.Sync())
}

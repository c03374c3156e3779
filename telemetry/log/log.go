// Package log provides the structured logger used throughout the engine.
package log

import (
	"sync"

	"go.uber.org/zap"
)

// Logger is the subset of zap's API the engine depends on, wrapped so
// that callers never import zap directly outside this package.
type Logger struct {
	base *zap.Logger
}

// New wraps base. If base is nil, a production zap.Logger is built.
func New(base *zap.Logger) *Logger {
	if base == nil {
		l, err := zap.NewProduction()
		if err != nil {
			l = zap.NewNop()
		}
		base = l
	}
	return &Logger{base: base}
}

// Nop returns a Logger that discards everything, useful in tests.
func Nop() *Logger { return &Logger{base: zap.NewNop()} }

func (l *Logger) Info(msg string, fields ...zap.Field)  { l.base.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...zap.Field)  { l.base.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...zap.Field) { l.base.Error(msg, fields...) }
func (l *Logger) Debug(msg string, fields ...zap.Field) { l.base.Debug(msg, fields...) }

// With returns a child Logger carrying fields on every subsequent call.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{base: l.base.With(fields...)}
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error { return l.base.Sync() }

var (
	defaultOnce sync.Once
	defaultLog  *Logger
)

// Default returns the process-wide default Logger, created lazily.
func Default() *Logger {
	defaultOnce.Do(func() { defaultLog = New(nil) })
	return defaultLog
}

// SetDefault replaces the process-wide default Logger.
func SetDefault(l *Logger) {
	defaultOnce.Do(func() {})
	defaultLog = l
}

// Field re-exports zap.Field so callers need only import this package.
type Field = zap.Field

var (
	String = zap.String
	Int    = zap.Int
	Int64  = zap.Int64
	Uint32 = zap.Uint32
	Bool   = zap.Bool
	Error  = zap.Error
	Any    = zap.Any
)

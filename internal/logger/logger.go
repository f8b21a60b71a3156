// Package logger provides structured logging backed by zerolog.
package logger

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Level is the minimum severity a logger emits.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// LoggerInterface is the logging contract used across the application.
// Key/value pairs follow the message: logger.Info(ctx, "msg", "key", value).
type LoggerInterface interface {
	Debug(ctx context.Context, msg string, kv ...any)
	Info(ctx context.Context, msg string, kv ...any)
	Warn(ctx context.Context, msg string, kv ...any)
	Error(ctx context.Context, msg string, kv ...any)
	With(kv ...any) LoggerInterface
}

// Logger implements LoggerInterface on top of zerolog.
type Logger struct {
	zl zerolog.Logger
}

var _ LoggerInterface = (*Logger)(nil)

// New creates a Logger writing to w at the given level, tagged with the
// service name.
func New(w io.Writer, level Level, service string) *Logger {
	zl := zerolog.New(w).
		Level(toZerolog(level)).
		With().
		Timestamp().
		Str("service", service).
		Logger()
	return &Logger{zl: zl}
}

// NewConsole creates a human-readable Logger for interactive use.
func NewConsole(level Level, service string) *Logger {
	w := zerolog.ConsoleWriter{Out: os.Stderr}
	zl := zerolog.New(w).
		Level(toZerolog(level)).
		With().
		Timestamp().
		Str("service", service).
		Logger()
	return &Logger{zl: zl}
}

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func toZerolog(level Level) zerolog.Level {
	switch level {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l *Logger) Debug(ctx context.Context, msg string, kv ...any) {
	emit(l.zl.Debug(), msg, kv)
}

func (l *Logger) Info(ctx context.Context, msg string, kv ...any) {
	emit(l.zl.Info(), msg, kv)
}

func (l *Logger) Warn(ctx context.Context, msg string, kv ...any) {
	emit(l.zl.Warn(), msg, kv)
}

func (l *Logger) Error(ctx context.Context, msg string, kv ...any) {
	emit(l.zl.Error(), msg, kv)
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(kv ...any) LoggerInterface {
	zc := l.zl.With()
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		zc = zc.Interface(key, kv[i+1])
	}
	return &Logger{zl: zc.Logger()}
}

func emit(ev *zerolog.Event, msg string, kv []any) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		switch v := kv[i+1].(type) {
		case string:
			ev = ev.Str(key, v)
		case error:
			ev = ev.AnErr(key, v)
		case int:
			ev = ev.Int(key, v)
		case int64:
			ev = ev.Int64(key, v)
		case uint64:
			ev = ev.Uint64(key, v)
		case bool:
			ev = ev.Bool(key, v)
		case float64:
			ev = ev.Float64(key, v)
		default:
			ev = ev.Interface(key, v)
		}
	}
	ev.Msg(msg)
}

// Nop returns a logger that discards everything. Useful in tests.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

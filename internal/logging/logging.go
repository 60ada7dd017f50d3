// Package logging provides the small leveled wrapper around the standard
// library's log.Logger used throughout hashkv. The teacher codebase never
// reaches for a structured logging library (it calls log.Printf directly
// from internal/storage/scheduler.go and friends), so this stays a thin
// level-prefixing shim over stdlib log rather than introducing a new
// dependency for the same job.
package logging

import (
	"io"
	"log"
	"os"
)

// Level is a logging verbosity threshold.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger wraps a *log.Logger with a minimum level filter.
type Logger struct {
	min  Level
	std  *log.Logger
}

// New returns a Logger writing to w at or above min.
func New(w io.Writer, min Level) *Logger {
	return &Logger{min: min, std: log.New(w, "", log.LstdFlags|log.Lmicroseconds)}
}

// Default returns a Logger writing to stderr at LevelInfo, the engine's
// default when no explicit logger is configured.
func Default() *Logger {
	return New(os.Stderr, LevelInfo)
}

func (l *Logger) logf(level Level, format string, args ...any) {
	if l == nil || level < l.min {
		return
	}
	l.std.Printf("["+level.String()+"] "+format, args...)
}

func (l *Logger) Debugf(format string, args ...any) { l.logf(LevelDebug, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.logf(LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.logf(LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.logf(LevelError, format, args...) }

package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Level is the minimum severity a Logger writes.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
)

// ParseLevel maps a config string to a Level. Unknown values mean info.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarning
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger writes "[name] LEVEL: message" lines.
type Logger struct {
	name   string
	level  Level
	logger *log.Logger
}

// New creates a Logger writing to w. A nil w means stdout.
func New(w io.Writer, name string, level Level) *Logger {
	if w == nil {
		w = os.Stdout
	}
	return &Logger{
		name:   name,
		level:  level,
		logger: log.New(w, "", log.LstdFlags),
	}
}

// Nop returns a Logger that discards everything.
func Nop() *Logger { return New(io.Discard, "", LevelError+1) }

// Named returns a child logger sharing output and level.
func (l *Logger) Named(name string) *Logger {
	return &Logger{name: name, level: l.level, logger: l.logger}
}

func (l *Logger) Debug(format string, args ...any) { l.print(LevelDebug, "DEBUG", format, args) }

func (l *Logger) Info(format string, args ...any) { l.print(LevelInfo, "INFO", format, args) }

func (l *Logger) Warning(format string, args ...any) { l.print(LevelWarning, "WARNING", format, args) }

func (l *Logger) Error(format string, args ...any) { l.print(LevelError, "ERROR", format, args) }

func (l *Logger) print(level Level, tag, format string, args []any) {
	if l == nil || level < l.level {
		return
	}
	msg := fmt.Sprintf(format, args...)
	l.logger.Printf("[%s] %s: %s", l.name, tag, msg)
}

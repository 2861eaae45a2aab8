package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger provides leveled, printf-style logging throughout the application.
// It is a thin facade over zerolog so call sites keep the bracketed
// component prefixes ("[reconciler] ...") used across the services.
type Logger struct {
	zl zerolog.Logger
}

// NewLogger creates a console Logger on stdout at info level.
func NewLogger() *Logger {
	return NewLoggerWithWriter(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006-01-02 15:04:05"}, zerolog.InfoLevel)
}

// NewLoggerFor builds a Logger for the given environment and level name.
// The "local" environment gets a human readable console writer, everything
// else logs JSON lines.
func NewLoggerFor(environment, level string) (*Logger, error) {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return nil, fmt.Errorf("parse LOG_LEVEL=%q: %w", level, err)
	}

	var w io.Writer = os.Stdout
	if strings.EqualFold(strings.TrimSpace(environment), "local") {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return NewLoggerWithWriter(w, parsed), nil
}

// NewLoggerWithWriter creates a Logger writing to w at the given level.
func NewLoggerWithWriter(w io.Writer, level zerolog.Level) *Logger {
	zl := zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", "car-deals").
		Logger()
	return &Logger{zl: zl}
}

// NewNopLogger returns a Logger that discards everything.
func NewNopLogger() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// Zerolog exposes the underlying logger for libraries that log structured
// fields directly (the HTTP request logger).
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zl
}

func (l *Logger) Info(format string, args ...any) {
	l.zl.Info().Msgf(format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.zl.Warn().Msgf(format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.zl.Error().Msgf(format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.zl.Debug().Msgf(format, args...)
}

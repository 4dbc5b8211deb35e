// Package logger builds the slog loggers shared by the fitting library and
// its tools.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var (
	// Default is the logger used when a component is not handed its own.
	// It writes to stderr so tool output on stdout stays clean.
	Default *slog.Logger
)

func init() {
	Default = New("info", os.Stderr)
}

// ParseLevel maps a level name to a slog.Level. Unknown names mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a JSON logger at the given level.
func New(level string, output io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(output, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// NewText creates a text logger, easier to read on a terminal.
func NewText(level string, output io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// NewWithFormat picks New or NewText by format name ("json" or "text").
func NewWithFormat(level, format string, output io.Writer) *slog.Logger {
	if strings.EqualFold(strings.TrimSpace(format), "text") {
		return NewText(level, output)
	}
	return New(level, output)
}

// Nop returns a logger that drops every record.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// SetDefault sets the default logger
func SetDefault(logger *slog.Logger) {
	Default = logger
	slog.SetDefault(logger)
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	Default.Debug(msg, args...)
}

// Info logs an info message
func Info(msg string, args ...any) {
	Default.Info(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	Default.Warn(msg, args...)
}

// Error logs an error message
func Error(msg string, args ...any) {
	Default.Error(msg, args...)
}

// With returns a logger with additional attributes
func With(args ...any) *slog.Logger {
	return Default.With(args...)
}

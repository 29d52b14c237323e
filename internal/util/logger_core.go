package util

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// LogFormat represents the output format
type LogFormat string

const (
	FormatText LogFormat = "text"
	FormatJSON LogFormat = "json"
)

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value interface{}
}

// LoggerInterface defines the public interface for logging
type LoggerInterface interface {
	Debug(msg string, fields ...Field)
	Debugf(format string, args ...interface{})
	Info(msg string, fields ...Field)
	Infof(format string, args ...interface{})
	Warn(msg string, fields ...Field)
	Warnf(format string, args ...interface{})
	Error(msg string, fields ...Field)
	Errorf(format string, args ...interface{})
	With(fields ...Field) LoggerInterface
	SetLevel(level slog.Level)
	Close() error
}

// Logger wraps slog with a shared level and the files it has to close.
type Logger struct {
	base    *slog.Logger
	level   *slog.LevelVar
	closers []io.Closer
	mu      sync.Mutex
}

// NewLogger creates a logger writing colored text to the console and JSON
// lines to logFile. Without debugToConsole the console only carries warnings.
func NewLogger(levelStr string, logFile string, debugToConsole bool, console io.Writer) (*Logger, error) {
	level := new(slog.LevelVar)
	level.Set(ParseLogLevel(levelStr))

	consoleLevel := slog.Leveler(slog.LevelWarn)
	if debugToConsole {
		consoleLevel = level
	}

	logger := &Logger{level: level}
	handlers := []slog.Handler{NewConsoleHandler(console, consoleLevel)}

	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", logFile, err)
		}
		handlers = append(handlers, NewFileHandler(file, level))
		logger.closers = append(logger.closers, file)
	}

	logger.base = slog.New(newFanoutHandler(handlers...))
	return logger, nil
}

// ParseLogLevel parses a log level string, defaulting to info.
func ParseLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
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

func toAttrs(fields []Field) []any {
	args := make([]any, 0, len(fields))
	for _, f := range fields {
		args = append(args, slog.Any(f.Key, f.Value))
	}
	return args
}

func (l *Logger) log(level slog.Level, msg string, fields ...Field) {
	l.base.Log(context.Background(), level, msg, toAttrs(fields)...)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, fields ...Field) {
	l.log(slog.LevelDebug, msg, fields...)
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...interface{}) {
	if !l.base.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	l.log(slog.LevelDebug, fmt.Sprintf(format, args...))
}

// Info logs an info message
func (l *Logger) Info(msg string, fields ...Field) {
	l.log(slog.LevelInfo, msg, fields...)
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(slog.LevelInfo, fmt.Sprintf(format, args...))
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, fields ...Field) {
	l.log(slog.LevelWarn, msg, fields...)
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(slog.LevelWarn, fmt.Sprintf(format, args...))
}

// Error logs an error message
func (l *Logger) Error(msg string, fields ...Field) {
	l.log(slog.LevelError, msg, fields...)
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log(slog.LevelError, fmt.Sprintf(format, args...))
}

// With returns a logger that adds fields to every entry. It shares level
// and outputs with its parent.
func (l *Logger) With(fields ...Field) LoggerInterface {
	return &Logger{
		base:  l.base.With(toAttrs(fields)...),
		level: l.level,
	}
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level slog.Level) {
	l.level.Set(level)
}

// Slog exposes the underlying slog logger.
func (l *Logger) Slog() *slog.Logger {
	return l.base
}

// Close closes any log files the logger opened.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for _, c := range l.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.closers = nil
	return firstErr
}

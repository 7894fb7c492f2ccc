package log

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Logger defines the interface for structured logging operations.
// It provides methods for logging at different levels with structured fields,
// and supports creating child loggers with additional context.
//
// Example usage:
//
//	logger.Info("Record created", String("collection", "Detail"), String("id", id))
//	requestLogger := logger.With(String("request_id", "abc-123"))
//	requestLogger.Error("Store unavailable", Error(err))
type Logger interface {
	// Debug logs a debug message with optional structured fields.
	Debug(msg string, fields ...Field)

	// Info logs an informational message with optional structured fields.
	Info(msg string, fields ...Field)

	// Warn logs a warning message with optional structured fields.
	Warn(msg string, fields ...Field)

	// Error logs an error message with optional structured fields.
	Error(msg string, fields ...Field)

	// Fatal logs a fatal message with optional structured fields and exits the program.
	Fatal(msg string, fields ...Field)

	// With creates a new logger instance with additional structured fields.
	With(fields ...Field) Logger

	// WithContext creates a new logger instance carrying the request id
	// found in the context, if any.
	WithContext(ctx context.Context) Logger
}

// Level represents the logging level, determining which messages should be logged.
// Lower numeric values represent more verbose logging levels.
type Level int

const (
	// DebugLevel is the most verbose logging level, used for detailed diagnostic information.
	DebugLevel Level = iota
	// InfoLevel is used for general informational messages about program execution.
	InfoLevel
	// WarnLevel is used for warning messages that indicate potential issues.
	WarnLevel
	// ErrorLevel is used for error messages that indicate failures.
	ErrorLevel
	// FatalLevel is used for fatal errors that require program termination.
	FatalLevel
)

// String returns the string representation of the logging level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a level name such as "info" or "WARN".
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level: %q", name)
	}
}

// Field represents a structured logging field with a key-value pair.
type Field struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// String creates a string field for structured logging.
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int creates an integer field for structured logging.
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Int64 creates an int64 field for structured logging.
func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

// Bool creates a boolean field for structured logging.
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Time creates a time field for structured logging.
func Time(key string, value time.Time) Field {
	return Field{Key: key, Value: value}
}

// Duration creates a duration field for structured logging.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

// Error creates an error field for structured logging.
// This is a convenience function that uses "error" as the key.
func Error(err error) Field {
	return Field{Key: FieldError, Value: err}
}

// Any creates a field with any value type for structured logging.
func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Package logging provides structured logging using Go's slog package.
package logging

import (
	"log/slog"
	"os"
	"time"
)

var (
	// defaultLogger is the global logger instance.
	defaultLogger *slog.Logger
)

func init() {
	InitLogger(LevelInfo, FormatText)
}

// Level represents a log level.
type Level int

const (
	// LevelDebug is for debug messages.
	LevelDebug Level = iota
	// LevelInfo is for informational messages.
	LevelInfo
	// LevelWarn is for warning messages.
	LevelWarn
	// LevelError is for error messages.
	LevelError
)

// Format represents a log output format.
type Format int

const (
	// FormatJSON outputs logs in JSON format.
	FormatJSON Format = iota
	// FormatText outputs logs in human-readable text format.
	FormatText
)

// InitLogger initializes the global logger with the specified level and format.
func InitLogger(level Level, format Format) {
	var slogLevel slog.Level
	switch level {
	case LevelDebug:
		slogLevel = slog.LevelDebug
	case LevelInfo:
		slogLevel = slog.LevelInfo
	case LevelWarn:
		slogLevel = slog.LevelWarn
	case LevelError:
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: slogLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

// GetLogger returns the global logger instance.
func GetLogger() *slog.Logger {
	return defaultLogger
}

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, args ...any) {
	defaultLogger.Debug(msg, args...)
}

// Info logs an info message with optional key-value pairs.
func Info(msg string, args ...any) {
	defaultLogger.Info(msg, args...)
}

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, args ...any) {
	defaultLogger.Warn(msg, args...)
}

// Error logs an error message with optional key-value pairs.
func Error(msg string, args ...any) {
	defaultLogger.Error(msg, args...)
}

// TransferEvent logs a bulk-transfer lifecycle event with common fields.
func TransferEvent(event, opID, src, dst string, args ...any) {
	allArgs := []any{
		"event", event,
		"op_id", opID,
		"src", src,
		"dst", dst,
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Info("transfer", allArgs...)
}

// TransferItemError logs a skipped per-item transfer failure.
func TransferItemError(opID, item string, err error, args ...any) {
	allArgs := []any{
		"op_id", opID,
		"item", item,
		"error", err.Error(),
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Warn("transfer_item_skipped", allArgs...)
}

// MetadataEvent logs a metadata document mutation.
func MetadataEvent(event, root, key string, args ...any) {
	allArgs := []any{
		"event", event,
		"root", root,
		"ingredient", key,
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Info("metadata", allArgs...)
}

// MetadataWarning logs a non-fatal metadata bookkeeping failure. The recording
// workflow keeps the captured audio even when bookkeeping fails, so these are
// warnings rather than errors.
func MetadataWarning(operation, root string, err error, args ...any) {
	allArgs := []any{
		"operation", operation,
		"root", root,
		"error", err.Error(),
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Warn("metadata_warning", allArgs...)
}

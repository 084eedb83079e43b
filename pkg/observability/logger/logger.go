// Package logger provides structured logging for the server runtime.
// All log methods take a message followed by alternating key-value pairs.
package logger

import "context"

// Logger is the logging interface used throughout the module.
type Logger interface {
	// Debug logs a debug-level message with optional key-value pairs
	Debug(msg string, args ...any)

	// Info logs an info-level message with optional key-value pairs
	Info(msg string, args ...any)

	// Warn logs a warning-level message with optional key-value pairs
	Warn(msg string, args ...any)

	// Error logs an error-level message with optional key-value pairs
	Error(msg string, args ...any)

	// With creates a child logger whose entries always carry the given
	// key-value pairs
	With(args ...any) Logger

	// WithContext creates a child logger carrying the request ID found in
	// ctx, if any
	WithContext(ctx context.Context) Logger
}

// Noop returns a logger that discards everything. Useful as a test default.
func Noop() Logger { return noopLogger{} }

type noopLogger struct{}

func (noopLogger) Debug(string, ...any)                  {}
func (noopLogger) Info(string, ...any)                   {}
func (noopLogger) Warn(string, ...any)                   {}
func (noopLogger) Error(string, ...any)                  {}
func (n noopLogger) With(...any) Logger                  { return n }
func (n noopLogger) WithContext(context.Context) Logger  { return n }

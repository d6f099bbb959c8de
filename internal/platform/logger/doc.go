// Package logger provides structured logging for the application using the
// standard library log/slog package, plus helpers for carrying a request
// scoped logger through a context.Context.
package logger

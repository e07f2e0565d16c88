// Package logging is the structured-logging seam the server and client
// code log through. The default backend wraps slog.
package logging

import "context"

// Logger takes a context and key-value pairs in the variadic args:
//
//	log.Info(ctx, "listener up", "addr", addr)
type Logger interface {
	// Info records normal operation.
	Info(ctx context.Context, msg string, args ...any)

	// Warn records unusual but recoverable conditions.
	Warn(ctx context.Context, msg string, args ...any)

	// Error records failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger carrying the given key-value pairs
	// on every record.
	With(args ...any) Logger
}

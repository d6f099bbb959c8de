package shared

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpilot/internal/platform/logger"
)

// ContextKey is the type of the request context keys set by the api package.
type ContextKey string

// TraceIDKey is the key for the trace ID in the request context
const TraceIDKey ContextKey = "traceID"

// SetTraceID stores traceID in the context, generating one when it is
// empty. The ID is also registered as the request ID of context loggers, so
// every log line written while serving the request carries it.
func SetTraceID(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		traceID = uuid.NewString()
	}
	ctx = context.WithValue(ctx, TraceIDKey, traceID)
	return logger.WithRequestID(ctx, traceID)
}

// GetTraceID retrieves the trace ID from the context.
// If no trace ID exists, it returns an empty string.
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

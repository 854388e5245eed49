package utils

import (
	"context"

	"github.com/google/uuid"
)

// TraceHeader carries the trace id of an assistant turn to the server.
const TraceHeader = "X-Trace-Id"

func SetTraceId(ctx context.Context, traceId string) context.Context {
	return context.WithValue(ctx, TraceIdCtx, traceId)
}

func GetTraceId(ctx context.Context) string {
	if traceId, ok := ctx.Value(TraceIdCtx).(string); ok {
		return traceId
	}
	return ""
}

// WithNewTraceId tags ctx with a fresh random trace id and returns it.
func WithNewTraceId(ctx context.Context) (context.Context, string) {
	traceId := uuid.NewString()
	return SetTraceId(ctx, traceId), traceId
}

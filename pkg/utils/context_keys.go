package utils

type traceIdCtxKey string

var TraceIdCtx traceIdCtxKey = "trace_id"

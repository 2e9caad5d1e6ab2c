package ctxutil

import "context"

type traceDataKey struct{}

type TraceData struct {
	TraceID   string
	RequestID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	if td, ok := ctx.Value(traceDataKey{}).(*TraceData); ok {
		return td
	}
	return nil
}

// AnnotateTrace copies the trace and request ids from ctx into m. Keys m
// already holds are kept.
func AnnotateTrace(ctx context.Context, m map[string]any) map[string]any {
	td := GetTraceData(ctx)
	if td == nil {
		return m
	}
	if m == nil {
		m = map[string]any{}
	}
	if td.TraceID != "" {
		if _, ok := m["trace_id"]; !ok {
			m["trace_id"] = td.TraceID
		}
	}
	if td.RequestID != "" {
		if _, ok := m["request_id"]; !ok {
			m["request_id"] = td.RequestID
		}
	}
	return m
}

// TraceFields returns the trace and request ids as logger key/value pairs.
func TraceFields(ctx context.Context) []any {
	td := GetTraceData(ctx)
	if td == nil {
		return nil
	}
	var kv []any
	if td.TraceID != "" {
		kv = append(kv, "trace_id", td.TraceID)
	}
	if td.RequestID != "" {
		kv = append(kv, "request_id", td.RequestID)
	}
	return kv
}

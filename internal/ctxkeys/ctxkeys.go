package ctxkeys

import (
	"context"
	"strconv"
)

// contextKey 用于在 context 中存储值的键类型
type contextKey string

const (
	traceIDKey    contextKey = "trace_id"
	batchIndexKey contextKey = "batch_index"
)

// WithTraceID 设置一次生成调用的 TraceID
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceID 获取 TraceID
func TraceID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(traceIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithBatchIndex 设置当前批次序号
func WithBatchIndex(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, batchIndexKey, index)
}

// BatchIndex 获取当前批次序号
func BatchIndex(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(batchIndexKey).(int)
	return v, ok
}

// RequestID 由 TraceID 与批次序号组成请求 ID, 没有 TraceID 时返回空串
func RequestID(ctx context.Context) string {
	traceID, ok := TraceID(ctx)
	if !ok {
		return ""
	}
	if idx, ok := BatchIndex(ctx); ok {
		return traceID + "-" + strconv.Itoa(idx)
	}
	return traceID
}

package ctxkeys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTraceID(t *testing.T) {
	_, ok := TraceID(context.Background())
	assert.False(t, ok)

	_, ok = TraceID(WithTraceID(context.Background(), ""))
	assert.False(t, ok)

	id, ok := TraceID(WithTraceID(context.Background(), "abc"))
	assert.True(t, ok)
	assert.Equal(t, "abc", id)
}

func TestRequestID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestID(ctx))
	assert.Empty(t, RequestID(WithBatchIndex(ctx, 3)))

	ctx = WithTraceID(ctx, "abc")
	assert.Equal(t, "abc", RequestID(ctx))

	ctx = WithBatchIndex(ctx, 0)
	idx, ok := BatchIndex(ctx)
	assert.True(t, ok)
	assert.Equal(t, 0, idx)
	assert.Equal(t, "abc-0", RequestID(ctx))
	assert.Equal(t, "abc-12", RequestID(WithBatchIndex(ctx, 12)))
}

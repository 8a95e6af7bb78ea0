package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnsureCorrelationIDIsStable(t *testing.T) {
	ctx, first := EnsureCorrelationID(context.Background())
	assert.Len(t, first, 26)

	_, second := EnsureCorrelationID(ctx)
	assert.Equal(t, first, second)
}

func TestRequestAndUserIDs(t *testing.T) {
	ctx := WithRequestID(context.Background(), " req-1 ")
	ctx = WithUserID(ctx, "42")
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "42", UserIDFromContext(ctx))

	assert.Equal(t, ctx, WithUserID(ctx, "  "))
}

func TestOperation(t *testing.T) {
	ctx := WithOperation(context.Background(), "practice.submit")
	assert.Equal(t, "practice.submit", OperationFromContext(ctx))
	assert.Empty(t, OperationFromContext(context.Background()))
}

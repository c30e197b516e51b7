package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestContextRoundTrip(t *testing.T) {
	fields := zap.NewNop().With(zap.String("request_id", "abc"))
	ctx := WithContext(context.Background(), fields)

	assert.Same(t, fields, FromContext(ctx))
}

func TestFromContextFallsBackToGlobal(t *testing.T) {
	got := FromContext(context.Background())
	assert.NotNil(t, got)
}

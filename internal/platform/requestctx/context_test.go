package requestctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoggerFallsBackToNop(t *testing.T) {
	ctx := context.Background()
	require.NotNil(t, Logger(ctx))
	require.False(t, HasLogger(ctx))

	ctx = WithLogger(ctx, nil)
	require.False(t, HasLogger(ctx))

	logger := zap.NewExample()
	ctx = WithLogger(ctx, logger)
	require.True(t, HasLogger(ctx))
	require.Same(t, logger, Logger(ctx))
}

func TestTraceRoundTrip(t *testing.T) {
	require.Empty(t, TraceID(context.Background()))

	ctx := WithTrace(context.Background(), TraceInfo{TraceID: "abc123", SpanID: "1", Sampled: true, ProjectID: "bazaar"})
	info, ok := Trace(ctx)
	require.True(t, ok)
	require.Equal(t, "bazaar", info.ProjectID)
	require.Equal(t, "abc123", TraceID(ctx))
}

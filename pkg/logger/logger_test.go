package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	appctx "stockflow/internal/core/context"
)

func observed() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &Logger{zap.New(core).Sugar()}, logs
}

func TestWithContext_TraceAndUser(t *testing.T) {
	l, logs := observed()

	ctx := appctx.WithTrace(context.Background(), &appctx.TraceContext{
		TraceID:   "4bf92f3577b34da6a3ce929d0e0e4736",
		SpanID:    "00f067aa0ba902b7",
		RequestID: "req-1",
	})
	ctx = appctx.WithUser(ctx, &appctx.UserContext{UserID: "u-1", CompanyID: "c-1"})

	l.WithContext(ctx).Infow("posted")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", fields["span_id"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "u-1", fields["user_id"])
	assert.Equal(t, "c-1", fields["company_id"])
}

func TestWithContext_NoSpan(t *testing.T) {
	l, logs := observed()

	ctx := appctx.WithTrace(context.Background(), appctx.NewTraceContext("", "req-2"))
	l.WithContext(ctx).Infow("posted")

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-2", fields["trace_id"])
	assert.NotContains(t, fields, "span_id")
	assert.NotContains(t, fields, "user_id")
}

func TestFromContext_UsesAttachedLogger(t *testing.T) {
	l, logs := observed()

	ctx := WithLogger(context.Background(), l.WithComponent("relay"))
	Warn(ctx, "retrying", "attempt", 2)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, "relay", entry.ContextMap()["component"])
	assert.EqualValues(t, 2, entry.ContextMap()["attempt"])
}

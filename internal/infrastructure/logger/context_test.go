package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext(t *testing.T) {
	t.Run("missing logger is a no-op", func(t *testing.T) {
		l := FromContext(context.Background())
		require.NotNil(t, l)
		l.Info("dropped")
	})

	t.Run("stored logger is returned", func(t *testing.T) {
		l := zap.NewExample()
		assert.Same(t, l, FromContext(WithContext(context.Background(), l)))
	})
}

func TestWithRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx, l := WithRequestID(context.Background(), zap.New(core), "req-123")

	assert.Equal(t, "req-123", GetRequestID(ctx))
	l.Info("hello")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "req-123", logs.All()[0].ContextMap()["request_id"])
}

func TestContextLogger_EnrichesWithContextFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx, _ := WithRequestID(context.Background(), zap.New(core), "req-9")
	ctx = WithInvoiceID(ctx, "inv-1")

	L(ctx).Warn("recalculation failed")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	fields := entry.ContextMap()
	assert.Equal(t, "inv-1", fields["invoice_id"])
	assert.Equal(t, "req-9", fields["request_id"])
}

func TestContextLogger_TraceFields(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

	core, logs := observer.New(zapcore.InfoLevel)
	WithLogger(ctx, zap.New(core)).Info("traced")

	assert.Equal(t, traceID.String(), GetTraceID(ctx))
	assert.Equal(t, traceID.String(), logs.All()[0].ContextMap()["trace_id"])
	assert.Empty(t, GetTraceID(context.Background()))
}

func TestContextLogger_NilLogger(t *testing.T) {
	cl := WithLogger(context.Background(), nil)
	assert.NotPanics(t, func() {
		cl.With(zap.String("k", "v")).Error("nothing happens")
	})
}

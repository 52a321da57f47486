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

func fieldMap(entry observer.LoggedEntry) map[string]any {
	return entry.ContextMap()
}

func TestFromContext(t *testing.T) {
	t.Run("returns attached logger", func(t *testing.T) {
		l := zap.NewExample()
		ctx := WithContext(context.Background(), l)
		assert.Same(t, l, FromContext(ctx))
	})

	t.Run("returns no-op logger when missing", func(t *testing.T) {
		assert.NotNil(t, FromContext(context.Background()))
	})
}

func TestWithRequestID(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	ctx, enriched := WithRequestID(context.Background(), zap.New(core), "req-1")

	assert.Equal(t, "req-1", GetRequestID(ctx))

	enriched.Info("direct")
	L(ctx).Info("through context")

	logs := recorded.All()
	require.Len(t, logs, 2)
	for _, entry := range logs {
		assert.Equal(t, "req-1", fieldMap(entry)["request_id"], entry.Message)
	}
}

func TestWithRecipientID(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	ctx := WithContext(context.Background(), zap.New(core))
	ctx = WithRecipientID(ctx, "u1")

	assert.Equal(t, "u1", GetRecipientID(ctx))
	assert.Empty(t, GetRecipientID(context.Background()))

	L(ctx).With(zap.String("stage", "render")).Info("stage done")

	logs := recorded.All()
	require.Len(t, logs, 1)
	fields := fieldMap(logs[0])
	assert.Equal(t, "u1", fields["recipient_id"])
	assert.Equal(t, "render", fields["stage"])
}

func TestL_TraceCorrelation(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

	WithLogger(ctx, zap.New(core)).Info("traced")

	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", GetTraceID(ctx))
	logs := recorded.All()
	require.Len(t, logs, 1)
	fields := fieldMap(logs[0])
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", fields["span_id"])
}

func TestL_NoTrace(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	WithLogger(context.Background(), zap.New(core)).Info("plain")

	assert.Empty(t, GetTraceID(context.Background()))
	logs := recorded.All()
	require.Len(t, logs, 1)
	_, hasTrace := fieldMap(logs[0])["trace_id"]
	assert.False(t, hasTrace)
}

func TestContextLogger_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		cl := WithLogger(context.Background(), nil)
		cl.Info("dropped")
		cl.With(zap.String("k", "v")).Warn("dropped")
	})
}

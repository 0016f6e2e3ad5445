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

func TestContextValues(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithActor(ctx, "user-1", "pic")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "user-1", GetUserID(ctx))
	assert.Equal(t, "pic", GetUserRole(ctx))
	assert.Empty(t, GetTraceID(ctx))
}

func TestL_EnrichesEntries(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	ctx := WithRequestID(context.Background(), "req-9")
	ctx = WithActor(ctx, "user-7", "vendor")

	traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)
	ctx = trace.ContextWithSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	L(ctx, zap.New(core)).With(zap.String("document", "BAPB-2024-0001")).Info("transition applied")

	require.Equal(t, 1, recorded.Len())
	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, "req-9", fields["request_id"])
	assert.Equal(t, "user-7", fields["user_id"])
	assert.Equal(t, "vendor", fields["user_role"])
	assert.Equal(t, traceID.String(), fields["trace_id"])
	assert.Equal(t, "BAPB-2024-0001", fields["document"])
	assert.Equal(t, traceID.String(), GetTraceID(ctx))
}

func TestL_BareContext(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	L(context.Background(), zap.New(core)).Info("startup")

	require.Equal(t, 1, recorded.Len())
	assert.Empty(t, recorded.All()[0].Context)
}

func TestL_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		L(context.Background(), nil).With(zap.Int("n", 1)).Warn("nobody listens")
	})
}

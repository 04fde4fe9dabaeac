package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestSetup_DisabledInstallsPropagator(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Enabled: false, ServiceName: "appointments"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	carrier := InjectMap(ctx)
	assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", carrier["traceparent"])

	restored := trace.SpanContextFromContext(ExtractMap(context.Background(), carrier))
	assert.Equal(t, traceID, restored.TraceID())
}

func TestExtractMap_EmptyKeepsContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, ExtractMap(ctx, nil))
}

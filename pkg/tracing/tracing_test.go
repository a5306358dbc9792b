package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSetup_NoEndpointIsNoop(t *testing.T) {
	t.Parallel()
	p, err := Setup(context.Background(), Options{})
	require.NoError(t, err)
	assert.False(t, p.Enabled())

	_, span := p.Tracer().Start(context.Background(), "suite")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewWithExporter_ExportsOnShutdown(t *testing.T) {
	t.Parallel()
	exp := tracetest.NewInMemoryExporter()
	p := NewWithExporter(exp, Options{RunID: "run-1"})
	require.True(t, p.Enabled())

	ctx, cancel := context.WithCancel(context.Background())
	_, span := p.Tracer().Start(ctx, "suite Rate Limiting")
	span.End()
	cancel()

	require.NoError(t, p.sdk.ForceFlush(context.Background()))
	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "suite Rate Limiting", spans[0].Name)

	var service, runID string
	for _, kv := range spans[0].Resource.Attributes() {
		switch kv.Key {
		case "service.name":
			service = kv.Value.AsString()
		case "secprobe.run_id":
			runID = kv.Value.AsString()
		}
	}
	assert.Equal(t, "secprobe", service)
	assert.Equal(t, "run-1", runID)

	assert.NoError(t, p.Shutdown(ctx), "shutdown must survive a cancelled run context")
}

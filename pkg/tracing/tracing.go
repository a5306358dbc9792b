// Package tracing sets up OpenTelemetry spans for a run. Without an OTLP
// endpoint every span is a no-op.
package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/EcMarius/secprobe/pkg/defaults"
	"github.com/EcMarius/secprobe/pkg/duration"
)

// InstrumentationName names the tracer.
const InstrumentationName = "github.com/EcMarius/secprobe"

// Options configures span export.
type Options struct {
	// Endpoint is the OTLP gRPC endpoint (e.g., "localhost:4317"). Empty
	// disables export.
	Endpoint string

	// Insecure uses a plaintext connection.
	Insecure bool

	// ServiceName is the service name for traces (default: "secprobe").
	ServiceName string

	// RunID is attached to every span as secprobe.run_id.
	RunID string

	// ShutdownTimeout bounds the final flush (default: 5s).
	ShutdownTimeout time.Duration
}

// Provider hands out the run tracer and flushes it on shutdown.
type Provider struct {
	tracer   trace.Tracer
	sdk      *sdktrace.TracerProvider
	shutdown time.Duration
}

// Setup returns a provider exporting to opts.Endpoint, or a no-op provider
// when no endpoint is configured.
func Setup(ctx context.Context, opts Options) (*Provider, error) {
	if opts.Endpoint == "" {
		return &Provider{tracer: noop.NewTracerProvider().Tracer(InstrumentationName)}, nil
	}

	exporterOpts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(opts.Endpoint),
	}
	if opts.Insecure {
		exporterOpts = append(exporterOpts,
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}

	dialCtx, cancel := context.WithTimeout(ctx, duration.DialTimeout)
	defer cancel()
	exporter, err := otlptracegrpc.New(dialCtx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}
	return NewWithExporter(exporter, opts), nil
}

// NewWithExporter builds a provider on an existing exporter.
func NewWithExporter(exporter sdktrace.SpanExporter, opts Options) *Provider {
	if opts.ServiceName == "" {
		opts.ServiceName = defaults.ToolName
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = duration.TracingShutdown
	}

	attrs := []attribute.KeyValue{
		semconv.ServiceName(opts.ServiceName),
		semconv.ServiceVersion(defaults.Version),
	}
	if opts.RunID != "" {
		attrs = append(attrs, attribute.String("secprobe.run_id", opts.RunID))
	}
	res := resource.NewWithAttributes(semconv.SchemaURL, attrs...)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	return &Provider{
		tracer:   tp.Tracer(InstrumentationName),
		sdk:      tp,
		shutdown: opts.ShutdownTimeout,
	}
}

// Tracer returns the run tracer.
func (p *Provider) Tracer() trace.Tracer { return p.tracer }

// Enabled reports whether spans are exported.
func (p *Provider) Enabled() bool { return p.sdk != nil }

// Shutdown flushes pending spans. It is bounded by the shutdown timeout
// even when ctx is already cancelled.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.sdk == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.shutdown)
	defer cancel()
	if err := p.sdk.Shutdown(ctx); err != nil {
		return fmt.Errorf("flush traces: %w", err)
	}
	return nil
}

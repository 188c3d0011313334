// Package tracing configures OpenTelemetry trace export over OTLP/gRPC.
// The governed HTTP client and the scanner engine create spans through the
// global provider; without Setup those spans are no-ops.
package tracing

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/shadowprobe/shadowprobe/pkg/defaults"
	"github.com/shadowprobe/shadowprobe/pkg/duration"
)

// ErrNoEndpoint is returned by NewExporter when Options.Endpoint is empty.
var ErrNoEndpoint = errors.New("tracing: no OTLP endpoint configured")

// Options configures trace export.
type Options struct {
	// Endpoint is the OTLP gRPC endpoint (e.g., "localhost:4317").
	// Empty disables export.
	Endpoint string

	// ServiceName is the service name for traces (default: "shadowprobe").
	ServiceName string

	// Insecure uses a plaintext connection.
	Insecure bool

	// Headers are sent with every export request.
	Headers map[string]string

	// ConnectionTimeout bounds exporter creation (default: 10s).
	ConnectionTimeout time.Duration

	// ShutdownTimeout bounds the final flush (default: 5s).
	ShutdownTimeout time.Duration
}

func (o *Options) fill() {
	if o.ServiceName == "" {
		o.ServiceName = defaults.ToolName
	}
	if o.ConnectionTimeout == 0 {
		o.ConnectionTimeout = duration.TelemetryConnect
	}
	if o.ShutdownTimeout == 0 {
		o.ShutdownTimeout = duration.TelemetryShutdown
	}
}

// ShutdownFunc flushes pending spans and releases the exporter.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// NewExporter dials the OTLP collector.
func NewExporter(ctx context.Context, opts Options) (sdktrace.SpanExporter, error) {
	opts.fill()
	if opts.Endpoint == "" {
		return nil, ErrNoEndpoint
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
	if len(opts.Headers) > 0 {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithHeaders(opts.Headers))
	}

	ctx, cancel := context.WithTimeout(ctx, opts.ConnectionTimeout)
	defer cancel()
	return otlptracegrpc.New(ctx, exporterOpts...)
}

// NewProvider builds a tracer provider that batches spans to exporter.
func NewProvider(exporter sdktrace.SpanExporter, serviceName string) *sdktrace.TracerProvider {
	if serviceName == "" {
		serviceName = defaults.ToolName
	}
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(defaults.Version),
		attribute.String("service.component", "scanner"),
	)
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
}

// Setup installs a global tracer provider exporting to opts.Endpoint and
// returns its shutdown function. With no endpoint it installs nothing and
// returns a no-op shutdown.
func Setup(ctx context.Context, opts Options) (ShutdownFunc, error) {
	opts.fill()
	if opts.Endpoint == "" {
		return noopShutdown, nil
	}

	exporter, err := NewExporter(ctx, opts)
	if err != nil {
		return noopShutdown, err
	}
	tp := NewProvider(exporter, opts.ServiceName)
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, opts.ShutdownTimeout)
		defer cancel()
		return tp.Shutdown(ctx)
	}, nil
}

// Package otel wires OpenTelemetry tracing for the API and offers helpers for
// opening spans from request-scoped contexts.
package otel

import (
	"context"
	"fmt"
	"io"
	"os"

	gootel "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"coffeeshop/pkg/logger"
)

// Config configures the tracer provider.
type Config struct {
	ServiceName string
	// Host is the OTLP gRPC collector endpoint. Empty disables OTLP export.
	Host string
	// Exporter selects "stdout" when no Host is given.
	Exporter string
	// Probability is the sampling ratio for root spans.
	Probability float64
	// Writer receives stdout exporter output. Defaults to os.Stdout.
	Writer io.Writer
}

// InitTracing installs a global tracer provider and returns it together with
// its shutdown function.
func InitTracing(log *logger.Logger, cfg Config) (*sdktrace.TracerProvider, func(context.Context) error, error) {
	ctx := context.Background()

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.Probability))),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
		)),
	}

	switch {
	case cfg.Host != "":
		exp, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithEndpoint(cfg.Host),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("creating otlp exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
		log.Info(ctx, "tracing enabled", "exporter", "otlp", "host", cfg.Host)
	case cfg.Exporter == "stdout":
		w := cfg.Writer
		if w == nil {
			w = os.Stdout
		}
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, nil, fmt.Errorf("creating stdout exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
		log.Info(ctx, "tracing enabled", "exporter", "stdout")
	default:
		log.Info(ctx, "tracing without exporter")
	}

	tp := sdktrace.NewTracerProvider(opts...)
	gootel.SetTracerProvider(tp)
	gootel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp, tp.Shutdown, nil
}

type tracerKey struct{}

// InjectTracing stores the tracer in ctx so AddSpan can use it further down
// the call chain.
func InjectTracing(ctx context.Context, tracer trace.Tracer) context.Context {
	return context.WithValue(ctx, tracerKey{}, tracer)
}

// AddSpan starts a span named name using the tracer carried by ctx, falling
// back to the global provider.
func AddSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer, ok := ctx.Value(tracerKey{}).(trace.Tracer)
	if !ok {
		tracer = gootel.Tracer("coffeeshop")
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// GetTraceID returns the hex trace id of the span in ctx, or "" if none.
func GetTraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

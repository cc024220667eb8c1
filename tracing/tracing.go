// Package tracing installs a global OpenTelemetry tracer provider that exports
// spans to a writer.
package tracing

import (
	"context"
	"io"
	"time"

	"github.com/amirrezaask/randomset/errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/trace"
)

const batchTimeout = time.Second

// Init sets the global tracer provider and propagator. The returned function
// flushes and stops the provider.
func Init(w io.Writer) (shutdown func(ctx context.Context) error, err error) {
	otel.SetTextMapPropagator(newPropagator())

	tracerProvider, err := newTraceProvider(w)
	if err != nil {
		return nil, err
	}
	otel.SetTracerProvider(tracerProvider)

	return tracerProvider.Shutdown, nil
}

func newTraceProvider(w io.Writer) (*trace.TracerProvider, error) {
	traceExporter, err := stdouttrace.New(
		stdouttrace.WithWriter(w),
		stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, errors.Wrap(err, "cannot create stdout trace exporter")
	}

	return trace.NewTracerProvider(
		trace.WithBatcher(traceExporter, trace.WithBatchTimeout(batchTimeout)),
	), nil
}

func newPropagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}

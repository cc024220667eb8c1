package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/amirrezaask/randomset/errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/amirrezaask/randomset/store"

type InstrumentOptions struct {
	// Name labels metrics and spans, e.g. "redis" or "sql".
	Name      string
	Namespace string
	// Registerer defaults to prometheus.DefaultRegisterer.
	Registerer     prometheus.Registerer
	TracerProvider trace.TracerProvider
}

type instrumented[T comparable] struct {
	next     Store[T]
	name     string
	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
	tracer   trace.Tracer
}

// Instrument counts, times and traces every operation of s.
func Instrument[T comparable](s Store[T], opts InstrumentOptions) Store[T] {
	if opts.Registerer == nil {
		opts.Registerer = prometheus.DefaultRegisterer
	}
	if opts.TracerProvider == nil {
		opts.TracerProvider = otel.GetTracerProvider()
	}
	factory := promauto.With(opts.Registerer)

	return &instrumented[T]{
		next: s,
		name: opts.Name,
		ops: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "RandomSet store operations, partitioned by store, operation and result.",
		}, []string{"store", "op", "result"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: opts.Namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "RandomSet store operation durations.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"store", "op"}),
		tracer: opts.TracerProvider.Tracer(instrumentationName),
	}
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrEmpty):
		return "empty"
	default:
		return "error"
	}
}

func (i *instrumented[T]) observe(ctx context.Context, op string, f func(ctx context.Context) error) {
	ctx, span := i.tracer.Start(ctx, "randomset."+op, trace.WithAttributes(
		attribute.String("randomset.store", i.name),
	))
	defer span.End()

	start := time.Now()
	err := f(ctx)
	i.duration.WithLabelValues(i.name, op).Observe(time.Since(start).Seconds())

	res := result(err)
	i.ops.WithLabelValues(i.name, op, res).Inc()
	span.SetAttributes(attribute.String("randomset.result", res))
	if res == "error" {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Error("error in randomset store", "store", i.name, "op", op, "err", err)
	}
}

func (i *instrumented[T]) Insert(ctx context.Context, x T) (err error) {
	i.observe(ctx, "insert", func(ctx context.Context) error {
		err = i.next.Insert(ctx, x)
		return err
	})
	return err
}

func (i *instrumented[T]) Remove(ctx context.Context, x T) (err error) {
	i.observe(ctx, "remove", func(ctx context.Context) error {
		err = i.next.Remove(ctx, x)
		return err
	})
	return err
}

func (i *instrumented[T]) Contains(ctx context.Context, x T) (ok bool, err error) {
	i.observe(ctx, "contains", func(ctx context.Context) error {
		ok, err = i.next.Contains(ctx, x)
		return err
	})
	return ok, err
}

func (i *instrumented[T]) Size(ctx context.Context) (n int, err error) {
	i.observe(ctx, "size", func(ctx context.Context) error {
		n, err = i.next.Size(ctx)
		return err
	})
	return n, err
}

func (i *instrumented[T]) Random(ctx context.Context) (x T, err error) {
	i.observe(ctx, "random", func(ctx context.Context) error {
		x, err = i.next.Random(ctx)
		return err
	})
	return x, err
}

func (i *instrumented[T]) Items(ctx context.Context) (xs []T, err error) {
	i.observe(ctx, "items", func(ctx context.Context) error {
		xs, err = i.next.Items(ctx)
		return err
	})
	return xs, err
}

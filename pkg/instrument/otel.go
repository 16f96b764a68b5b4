package instrument

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ripple-ui/ripple/pkg/features/async"
)

// Default tracer name for ripple instrumentation.
const defaultTracerName = "ripple"

// TraceConfig configures async operation tracing.
type TraceConfig struct {
	// TracerName is the name of the tracer (default: "ripple").
	TracerName string

	// Attributes are added to every span.
	Attributes []attribute.KeyValue

	// tracer is the resolved tracer instance.
	tracer trace.Tracer
}

// TraceOption configures async operation tracing.
type TraceOption func(*TraceConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TraceOption {
	return func(c *TraceConfig) {
		c.TracerName = name
	}
}

// WithAttributes adds constant attributes to every span.
func WithAttributes(attrs ...attribute.KeyValue) TraceOption {
	return func(c *TraceConfig) {
		c.Attributes = append(c.Attributes, attrs...)
	}
}

// TraceOp wraps an async operation in an OpenTelemetry span. The span
// covers the whole operation, including retries, carries the operation
// name, and records the error status on failure.
//
//	value.Execute(ctx, instrument.TraceOp("load-user", loadUser))
func TraceOp[T any](name string, op async.Op[T], opts ...TraceOption) async.Op[T] {
	cfg := TraceConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.tracer = otel.Tracer(cfg.TracerName)

	return func(ctx context.Context) (T, error) {
		ctx, span := cfg.tracer.Start(ctx, name,
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(cfg.Attributes...),
		)
		defer span.End()

		result, err := op(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		return result, err
	}
}

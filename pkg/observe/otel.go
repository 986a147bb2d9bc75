package observe

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/beacon-dev/beacon/pkg/beacon"
)

// Default tracer name for beacon applications.
const defaultTracerName = "beacon"

// TracerConfig configures the OpenTelemetry tap.
type TracerConfig struct {
	// TracerName is the name of the tracer (default: "beacon").
	TracerName string

	// AttributeExtractor adds custom attributes to every round span.
	AttributeExtractor func() []attribute.KeyValue

	// tracer is the resolved tracer instance.
	tracer trace.Tracer
}

// TracerOption configures the OpenTelemetry tap.
type TracerOption func(*TracerConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracerOption {
	return func(c *TracerConfig) { c.TracerName = name }
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(fn func() []attribute.KeyValue) TracerOption {
	return func(c *TracerConfig) { c.AttributeExtractor = fn }
}

// Tracer wraps notification rounds in OpenTelemetry spans.
type Tracer struct {
	cfg TracerConfig
}

// NewTracer creates the tracing tap.
func NewTracer(opts ...TracerOption) *Tracer {
	cfg := TracerConfig{TracerName: defaultTracerName}
	for _, o := range opts {
		o(&cfg)
	}
	cfg.tracer = otel.Tracer(cfg.TracerName)
	return &Tracer{cfg: cfg}
}

// Notifiable is the slice of the notifier surface the tracer consumes.
type Notifiable interface {
	Notify() error
	ListenerCount() int
	IsDisposed() bool
}

// Notify runs one round on the node inside a span named after the node.
// The span records the listener count and, on failure, the error.
func (t *Tracer) Notify(ctx context.Context, name string, n Notifiable) error {
	_, span := t.cfg.tracer.Start(ctx, "beacon.notify",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("beacon.node", name),
			attribute.Int("beacon.listeners", n.ListenerCount()),
		),
	)
	defer span.End()

	if t.cfg.AttributeExtractor != nil {
		span.SetAttributes(t.cfg.AttributeExtractor()...)
	}

	err := n.Notify()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if err == beacon.ErrDisposed {
			span.SetAttributes(attribute.Bool("beacon.disposed", true))
		}
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return err
}

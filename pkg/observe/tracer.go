package observe

import (
	"context"
	"time"

	"github.com/vango-dev/reactivity/pkg/reactivity"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name.
const defaultTracerName = "github.com/vango-dev/reactivity"

// SpanName is the name of the span opened for each effect run.
const SpanName = "reactivity.effect"

// TracerConfig configures the OpenTelemetry observer.
type TracerConfig struct {
	// TracerName is the instrumentation name (default: the module path).
	TracerName string

	// Provider supplies the tracer. If nil, the global provider is used.
	Provider trace.TracerProvider

	// Parent is the context new root spans are started from.
	// Default: context.Background()
	Parent context.Context

	// RecordTracks adds a span event for every new subscription.
	// Disabled by default; it is noisy.
	RecordTracks bool
}

// TracerOption configures the OpenTelemetry observer.
type TracerOption func(*TracerConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracerOption {
	return func(c *TracerConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) TracerOption {
	return func(c *TracerConfig) {
		c.Provider = tp
	}
}

// WithParent sets the context root spans are started from.
func WithParent(ctx context.Context) TracerOption {
	return func(c *TracerConfig) {
		c.Parent = ctx
	}
}

// WithRecordTracks enables span events for subscriptions.
func WithRecordTracks(enabled bool) TracerOption {
	return func(c *TracerConfig) {
		c.RecordTracks = enabled
	}
}

type openSpan struct {
	ctx  context.Context
	span trace.Span
	id   uint64
}

// Tracer is a reactivity.Observer that emits OpenTelemetry spans. Like the
// engine it observes, it is not safe for concurrent use.
type Tracer struct {
	reactivity.NopObserver

	config TracerConfig
	tracer trace.Tracer

	// open mirrors the engine's tracking stack.
	open []openSpan
}

// NewTracer creates a tracing observer.
func NewTracer(opts ...TracerOption) *Tracer {
	config := TracerConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Parent == nil {
		config.Parent = context.Background()
	}
	provider := config.Provider
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	return &Tracer{
		config: config,
		tracer: provider.Tracer(config.TracerName),
	}
}

// Depth returns the number of spans currently open.
func (t *Tracer) Depth() int {
	return len(t.open)
}

func (t *Tracer) current() *openSpan {
	if len(t.open) == 0 {
		return nil
	}
	return &t.open[len(t.open)-1]
}

// EffectStarted implements reactivity.Observer.
func (t *Tracer) EffectStarted(ev reactivity.EffectEvent) {
	parent := t.config.Parent
	if cur := t.current(); cur != nil {
		parent = cur.ctx
	}
	attrs := []attribute.KeyValue{
		attribute.Int64("effect.id", int64(ev.ID)),
		attribute.Int("effect.depth", ev.Depth),
	}
	if ev.Name != "" {
		attrs = append(attrs, attribute.String("effect.name", ev.Name))
	}
	ctx, span := t.tracer.Start(parent, SpanName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	t.open = append(t.open, openSpan{ctx: ctx, span: span, id: ev.ID})
}

// EffectFinished implements reactivity.Observer.
func (t *Tracer) EffectFinished(ev reactivity.EffectEvent, elapsed time.Duration, panicked bool) {
	cur := t.current()
	if cur == nil || cur.id != ev.ID {
		return
	}
	cur.span.SetAttributes(attribute.Int64("effect.duration_us", elapsed.Microseconds()))
	if panicked {
		cur.span.SetStatus(codes.Error, "effect panicked")
	} else {
		cur.span.SetStatus(codes.Ok, "")
	}
	cur.span.End()
	t.open[len(t.open)-1] = openSpan{}
	t.open = t.open[:len(t.open)-1]
}

// Triggered implements reactivity.Observer.
func (t *Tracer) Triggered(ev reactivity.TriggerEvent) {
	cur := t.current()
	if cur == nil {
		return
	}
	cur.span.AddEvent("trigger", trace.WithAttributes(
		attribute.Int64("target", int64(ev.Target)),
		attribute.String("key", ev.Key),
		attribute.String("change", ev.Change.String()),
		attribute.Int("effects", ev.Effects),
	))
}

// Tracked implements reactivity.Observer.
func (t *Tracer) Tracked(ev reactivity.TrackEvent) {
	if !t.config.RecordTracks {
		return
	}
	if cur := t.current(); cur != nil {
		cur.span.AddEvent("track", trace.WithAttributes(
			attribute.Int64("target", int64(ev.Target)),
			attribute.String("kind", ev.Kind.String()),
			attribute.String("key", ev.Key),
		))
	}
}

// Diagnosed implements reactivity.Observer.
func (t *Tracer) Diagnosed(d reactivity.Diagnostic) {
	if cur := t.current(); cur != nil {
		cur.span.RecordError(&d, trace.WithAttributes(attribute.String("code", d.Code)))
	}
}

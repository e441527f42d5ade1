package observe

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vango-dev/reactivity/pkg/reactivity"
)

// MetricsConfig configures the Prometheus observer.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "reactivity").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for effect duration.
	// Default: buckets from 10µs to about 1s.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus observer.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "reactivity",
		Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 9),
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics is a reactivity.Observer that records Prometheus metrics.
// Create one per registry; registering twice on the same registry panics.
type Metrics struct {
	reactivity.NopObserver

	tracks         prometheus.Counter
	triggers       *prometheus.CounterVec
	effectRuns     prometheus.Counter
	effectPanics   prometheus.Counter
	effectDuration prometheus.Histogram
	diagnostics    *prometheus.CounterVec
}

// NewMetrics creates the metrics and registers them.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		tracks: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "tracks_total",
			Help:        "Total number of dependency subscriptions recorded",
			ConstLabels: config.ConstLabels,
		}),

		triggers: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "triggers_total",
			Help:        "Total number of writes that invalidated at least one effect",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		effectRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effect_runs_total",
			Help:        "Total number of effect runs",
			ConstLabels: config.ConstLabels,
		}),

		effectPanics: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effect_panics_total",
			Help:        "Total number of effect runs that panicked",
			ConstLabels: config.ConstLabels,
		}),

		effectDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effect_duration_seconds",
			Help:        "Effect run duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		diagnostics: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "diagnostics_total",
			Help:        "Total number of engine diagnostics by code",
			ConstLabels: config.ConstLabels,
		}, []string{"code"}),
	}
}

// Tracked implements reactivity.Observer.
func (m *Metrics) Tracked(reactivity.TrackEvent) {
	m.tracks.Inc()
}

// Triggered implements reactivity.Observer.
func (m *Metrics) Triggered(ev reactivity.TriggerEvent) {
	m.triggers.WithLabelValues(ev.Change.String()).Inc()
}

// EffectFinished implements reactivity.Observer.
func (m *Metrics) EffectFinished(_ reactivity.EffectEvent, elapsed time.Duration, panicked bool) {
	m.effectRuns.Inc()
	m.effectDuration.Observe(elapsed.Seconds())
	if panicked {
		m.effectPanics.Inc()
	}
}

// Diagnosed implements reactivity.Observer.
func (m *Metrics) Diagnosed(d reactivity.Diagnostic) {
	m.diagnostics.WithLabelValues(d.Code).Inc()
}

// Package instrument provides observability adapters for the reactive
// engine: a Prometheus implementation of ripple.Observer and an
// OpenTelemetry wrapper for async operations.
package instrument

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ripple-ui/ripple/pkg/ripple"
)

// MetricsConfig configures the Prometheus observer.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "ripple").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for durations.
	// Default: prometheus.DefBuckets.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer.
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
		Namespace: "ripple",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics is a ripple.Observer exporting engine activity as Prometheus
// metrics. Install it with ripple.SetObserver.
type Metrics struct {
	containersCreated  *prometheus.CounterVec
	containersDisposed *prometheus.CounterVec
	emits              *prometheus.CounterVec
	notifiedListeners  prometheus.Counter
	notifyDuration     prometheus.Histogram
	recomputes         *prometheus.CounterVec
	recomputeDuration  prometheus.Histogram
	effectRuns         *prometheus.CounterVec
	effectDuration     prometheus.Histogram
}

// NewMetrics creates a Prometheus observer and registers its collectors.
func NewMetrics(opts ...MetricsOption) *Metrics {
	cfg := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	factory := promauto.With(cfg.Registry)

	return &Metrics{
		containersCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "containers_created_total",
			Help:        "Total reactive containers created, by kind.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"kind"}),
		containersDisposed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "containers_disposed_total",
			Help:        "Total reactive containers disposed, by kind.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"kind"}),
		emits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "emits_total",
			Help:        "Total emits, by whether the value changed.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"changed"}),
		notifiedListeners: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "notified_listeners_total",
			Help:        "Total listener invocations across notification passes.",
			ConstLabels: cfg.ConstLabels,
		}),
		notifyDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "notify_duration_seconds",
			Help:        "Duration of notification passes.",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}),
		recomputes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "recomputes_total",
			Help:        "Total derived recomputations, by outcome.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"faulted"}),
		recomputeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "recompute_duration_seconds",
			Help:        "Duration of derived recomputations.",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}),
		effectRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "effect_runs_total",
			Help:        "Total watcher runs, by outcome.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"faulted"}),
		effectDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "effect_run_duration_seconds",
			Help:        "Duration of watcher runs.",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}),
	}
}

// ContainerCreated implements ripple.Observer.
func (m *Metrics) ContainerCreated(kind string) {
	m.containersCreated.WithLabelValues(kind).Inc()
}

// ContainerDisposed implements ripple.Observer.
func (m *Metrics) ContainerDisposed(kind string) {
	m.containersDisposed.WithLabelValues(kind).Inc()
}

// Emit implements ripple.Observer.
func (m *Metrics) Emit(changed bool) {
	m.emits.WithLabelValues(strconv.FormatBool(changed)).Inc()
}

// Notify implements ripple.Observer.
func (m *Metrics) Notify(listeners int, d time.Duration) {
	m.notifiedListeners.Add(float64(listeners))
	m.notifyDuration.Observe(d.Seconds())
}

// Recompute implements ripple.Observer.
func (m *Metrics) Recompute(d time.Duration, deps int, faulted bool) {
	m.recomputes.WithLabelValues(strconv.FormatBool(faulted)).Inc()
	m.recomputeDuration.Observe(d.Seconds())
}

// EffectRun implements ripple.Observer.
func (m *Metrics) EffectRun(d time.Duration, faulted bool) {
	m.effectRuns.WithLabelValues(strconv.FormatBool(faulted)).Inc()
	m.effectDuration.Observe(d.Seconds())
}

var _ ripple.Observer = (*Metrics)(nil)

// Package observe provides observability taps for beacon notifiers:
// Prometheus metrics and OpenTelemetry tracing. Taps are ordinary clients
// of the core: a metrics tap is a registered listener plus a wrapped
// error policy, never a hook inside the engine.
package observe

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/beacon-dev/beacon/pkg/beacon"
)

// MetricsConfig configures the Prometheus tap.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "beacon").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus tap.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) { c.Namespace = namespace }
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) { c.Subsystem = subsystem }
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) { c.ConstLabels = labels }
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) { c.Registry = registry }
}

// Metrics is a Prometheus tap shared by any number of notifiers.
type Metrics struct {
	rounds    *prometheus.CounterVec
	errors    *prometheus.CounterVec
	listeners *prometheus.GaugeVec
}

// NewMetrics creates and registers the tap's collectors.
func NewMetrics(opts ...MetricsOption) (*Metrics, error) {
	cfg := MetricsConfig{
		Namespace: "beacon",
		Registry:  prometheus.DefaultRegisterer,
	}
	for _, o := range opts {
		o(&cfg)
	}

	m := &Metrics{
		rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "rounds_total",
			Help:        "Notification rounds observed per tapped node.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"node"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "listener_errors_total",
			Help:        "Listener errors routed through a wrapped error policy.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"node"}),
		listeners: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "listeners",
			Help:        "Live listener registrations per tapped node.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"node"}),
	}

	for _, c := range []prometheus.Collector{m.rounds, m.errors, m.listeners} {
		if err := cfg.Registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Tappable is the slice of the notifier surface a tap consumes. Both
// *beacon.Notifier and *beacon.ValueNotifier[T] satisfy it.
type Tappable interface {
	AddListener(beacon.Listener) (beacon.Key, error)
	ListenerCount() int
}

// Tap starts counting the node's rounds under the given label. The tap is
// an ordinary listener, so it follows the node's snapshot, reversal and
// lifecycle rules; disposing the node drops the tap with the registry.
func (m *Metrics) Tap(name string, n Tappable) error {
	counter := m.rounds.WithLabelValues(name)
	gauge := m.listeners.WithLabelValues(name)
	_, err := n.AddListener(beacon.On(func() {
		counter.Inc()
		gauge.Set(float64(n.ListenerCount()))
	}))
	return err
}

// WrapPolicy returns an error policy that counts every listener error
// under the given label before delegating to next. A nil next keeps the
// default Rethrow behavior.
func (m *Metrics) WrapPolicy(name string, next beacon.ErrorPolicy) beacon.ErrorPolicy {
	counter := m.errors.WithLabelValues(name)
	return func(err error) beacon.Decision {
		counter.Inc()
		if next == nil {
			return beacon.Rethrow
		}
		return next(err)
	}
}

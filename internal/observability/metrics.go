// Package observability exposes Prometheus metrics for composition runs.
package observability

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joeblew999/plat-mapcraft/internal/apperr"
	"github.com/joeblew999/plat-mapcraft/internal/composer"
)

// ComposeCollector bundles the compose metrics. It observes composer state
// transitions directly.
type ComposeCollector struct {
	gatherer prometheus.Gatherer

	Runs        *prometheus.CounterVec
	Durations   prometheus.Histogram
	Transitions *prometheus.CounterVec
	InFlight    prometheus.Gauge

	mu     sync.Mutex
	starts map[string]time.Time
}

// NewComposeCollector registers the compose metrics against reg, defaulting
// to the global registry when nil.
func NewComposeCollector(reg prometheus.Registerer) (*ComposeCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	runs, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mapcraft_compose_runs_total",
		Help: "Finished composition runs, labeled by final state and failure kind.",
	}, []string{"state", "kind"}), "mapcraft_compose_runs_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mapcraft_compose_run_duration_seconds",
		Help:    "Composition run latency in seconds.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}), "mapcraft_compose_run_duration_seconds")
	if err != nil {
		return nil, err
	}

	transitions, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mapcraft_compose_state_transitions_total",
		Help: "Composer state transitions, labeled by target state.",
	}, []string{"to"}), "mapcraft_compose_state_transitions_total")
	if err != nil {
		return nil, err
	}

	inFlight, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mapcraft_compose_in_flight",
		Help: "Composition runs currently executing.",
	}), "mapcraft_compose_in_flight")
	if err != nil {
		return nil, err
	}

	return &ComposeCollector{
		gatherer:    gatherer,
		Runs:        runs,
		Durations:   durations,
		Transitions: transitions,
		InFlight:    inFlight,
		starts:      make(map[string]time.Time),
	}, nil
}

// Transition satisfies composer.Observer.
func (c *ComposeCollector) Transition(t composer.Transition) {
	if c == nil {
		return
	}
	c.Transitions.WithLabelValues(t.To.String()).Inc()

	c.mu.Lock()
	defer c.mu.Unlock()
	if t.From == composer.Idle {
		c.starts[t.RunID] = t.At
		c.InFlight.Inc()
	}
	if !t.To.Terminal() {
		return
	}

	kind := ""
	if t.Err != nil {
		kind = apperr.KindOf(t.Err).String()
	}
	c.Runs.WithLabelValues(t.To.String(), kind).Inc()
	if start, ok := c.starts[t.RunID]; ok {
		c.Durations.Observe(t.At.Sub(start).Seconds())
		delete(c.starts, t.RunID)
		c.InFlight.Dec()
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *ComposeCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

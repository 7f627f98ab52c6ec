// Package metrics holds the Prometheus collectors for commands, persistence and todo counts.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "todo"

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	registry *prometheus.Registry

	commands        *prometheus.CounterVec
	persists        *prometheus.CounterVec
	persistDuration prometheus.Histogram
	items           *prometheus.GaugeVec
}

// New registers all collectors on a private registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.commands = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commands_total",
		Help:      "Session commands handled, by command and whether state changed",
	}, []string{"command", "changed"})

	m.persists = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "persist_total",
		Help:      "Snapshot writes, by result",
	}, []string{"result"})

	m.persistDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "persist_duration_seconds",
		Help:      "Time spent writing a snapshot",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
	})

	m.items = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "items",
		Help:      "Todos currently stored, by status",
	}, []string{"status"})

	m.registry.MustRegister(m.commands, m.persists, m.persistDuration, m.items)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Command(name string, changed bool) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(name, strconv.FormatBool(changed)).Inc()
}

func (m *Metrics) Persist(d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.persists.WithLabelValues(result).Inc()
	m.persistDuration.Observe(d.Seconds())
}

func (m *Metrics) Items(incomplete, complete int) {
	if m == nil {
		return
	}
	m.items.WithLabelValues("incomplete").Set(float64(incomplete))
	m.items.WithLabelValues("complete").Set(float64(complete))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

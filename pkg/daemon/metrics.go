package daemon

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcomes used as label values.
const (
	outcomeOK      = "ok"
	outcomeDomain  = "domain"
	outcomeCommand = "command"
	outcomeError   = "error"
)

type metrics struct {
	registry    *prometheus.Registry
	evaluations *prometheus.CounterVec
	commits     *prometheus.CounterVec
	connections prometheus.Gauge
	subscribers prometheus.Gauge
}

// Each daemon gets its own registry, so that several of them can run in the
// same process in tests.
func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "calcsh",
			Name:      "evaluations_total",
			Help:      "Number of evaluation requests, by outcome.",
		}, []string{"outcome"}),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "calcsh",
			Name:      "commits_total",
			Help:      "Number of commit requests, by outcome.",
		}, []string{"outcome"}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "calcsh",
			Name:      "connections",
			Help:      "Number of connected clients.",
		}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "calcsh",
			Name:      "subscribers",
			Help:      "Number of active history event subscriptions.",
		}),
	}
	m.registry.MustRegister(m.evaluations, m.commits, m.connections, m.subscribers)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

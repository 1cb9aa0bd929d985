// internal/common/metrics/metrics.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns the service counters. Each instance has its own prometheus
// registry so tests can build fresh ones.
type Registry struct {
	reg *prometheus.Registry

	requests       *prometheus.CounterVec
	authAttempts   *prometheus.CounterVec
	activeSessions prometheus.Gauge
	pizzasSold     prometheus.Counter
	pizzaFailures  prometheus.Counter
	revenue        prometheus.Counter
}

// NewRegistry creates the counters labelled with the given source.
func NewRegistry(source string) *Registry {
	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"source": source}
	factory := promauto.With(reg)

	return &Registry{
		reg: reg,
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "pizza_http_requests_total",
				Help:        "Total number of HTTP requests by method",
				ConstLabels: labels,
			},
			[]string{"method"},
		),
		authAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "pizza_auth_attempts_total",
				Help:        "Authentication attempts by result",
				ConstLabels: labels,
			},
			[]string{"result"},
		),
		activeSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name:        "pizza_active_sessions",
				Help:        "Sessions issued and not yet revoked by this instance",
				ConstLabels: labels,
			},
		),
		pizzasSold: factory.NewCounter(
			prometheus.CounterOpts{
				Name:        "pizza_sold_total",
				Help:        "Pizzas fulfilled by the factory",
				ConstLabels: labels,
			},
		),
		pizzaFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name:        "pizza_creation_failures_total",
				Help:        "Pizzas the factory failed to make",
				ConstLabels: labels,
			},
		),
		revenue: factory.NewCounter(
			prometheus.CounterOpts{
				Name:        "pizza_revenue_total",
				Help:        "Revenue of fulfilled orders",
				ConstLabels: labels,
			},
		),
	}
}

// WithRuntimeCollectors adds the go and process collectors.
func (r *Registry) WithRuntimeCollectors() *Registry {
	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Registry) Request(method string) {
	r.requests.WithLabelValues(method).Inc()
}

func (r *Registry) AuthAttempt(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	r.authAttempts.WithLabelValues(result).Inc()
}

func (r *Registry) SessionOpened() {
	r.activeSessions.Inc()
}

func (r *Registry) SessionClosed() {
	r.activeSessions.Dec()
}

func (r *Registry) PizzasSold(count int, revenue float64) {
	r.pizzasSold.Add(float64(count))
	r.revenue.Add(revenue)
}

func (r *Registry) PizzaFailures(count int) {
	r.pizzaFailures.Add(float64(count))
}

// Registerer is used to attach other collectors, such as the OpenTelemetry
// exporter, to the same registry.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.reg
}

// Handler serves the registry in the prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

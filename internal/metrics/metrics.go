// Package metrics holds the Prometheus collectors of the editor core.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Layout outcomes.
const (
	OutcomeCommitted = "committed"
	OutcomeStale     = "stale"
	OutcomeFailed    = "failed"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	graphRebuilds    prometheus.Counter
	layoutDuration   *prometheus.HistogramVec
	layoutResults    *prometheus.CounterVec
	storeMutations   *prometheus.CounterVec
	catalogRefreshes *prometheus.CounterVec
	eventsDropped    *prometheus.CounterVec
}

// New creates the collectors on a fresh registry, so several instances can
// coexist in tests.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		graphRebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flowcanvas_graph_rebuilds_total",
			Help: "Total number of graph rebuilds triggered by integration changes",
		}),
		layoutDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flowcanvas_layout_duration_seconds",
			Help:    "Duration of layout computations",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"engine"}),
		layoutResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowcanvas_layout_results_total",
			Help: "Layout results by outcome",
		}, []string{"outcome"}),
		storeMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowcanvas_store_mutations_total",
			Help: "Integration store mutations by operation",
		}, []string{"op"}),
		catalogRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowcanvas_catalog_refreshes_total",
			Help: "Catalog refreshes by result",
		}, []string{"result"}),
		eventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowcanvas_events_dropped_total",
			Help: "Events not delivered to a full subscriber, by event type",
		}, []string{"event_type"}),
	}
	m.registry.MustRegister(
		m.graphRebuilds,
		m.layoutDuration,
		m.layoutResults,
		m.storeMutations,
		m.catalogRefreshes,
		m.eventsDropped,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) GraphRebuilt() {
	if m == nil {
		return
	}
	m.graphRebuilds.Inc()
}

func (m *Metrics) ObserveLayout(engine string, d time.Duration) {
	if m == nil {
		return
	}
	m.layoutDuration.WithLabelValues(engine).Observe(d.Seconds())
}

func (m *Metrics) LayoutResult(outcome string) {
	if m == nil {
		return
	}
	m.layoutResults.WithLabelValues(outcome).Inc()
}

func (m *Metrics) StoreMutation(op string) {
	if m == nil {
		return
	}
	m.storeMutations.WithLabelValues(op).Inc()
}

func (m *Metrics) CatalogRefreshed(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.catalogRefreshes.WithLabelValues(result).Inc()
}

// EventDropped counts an event a slow subscriber missed.
func (m *Metrics) EventDropped(eventType string) {
	if m == nil {
		return
	}
	m.eventsDropped.WithLabelValues(eventType).Inc()
}

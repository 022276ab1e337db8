package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	return rec.Body.String()
}

func TestCounters(t *testing.T) {
	m := New()

	m.GraphRebuilt()
	m.GraphRebuilt()
	m.LayoutResult(OutcomeCommitted)
	m.LayoutResult(OutcomeStale)
	m.LayoutResult(OutcomeStale)
	m.StoreMutation("add_step")

	body := scrape(t, m)
	assert.Contains(t, body, "flowcanvas_graph_rebuilds_total 2")
	assert.Contains(t, body, `flowcanvas_layout_results_total{outcome="stale"} 2`)
	assert.Contains(t, body, `flowcanvas_layout_results_total{outcome="committed"} 1`)
	assert.Contains(t, body, `flowcanvas_store_mutations_total{op="add_step"} 1`)
}

func TestHistogramAndCatalog(t *testing.T) {
	m := New()
	m.ObserveLayout("layered", 3*time.Millisecond)
	m.CatalogRefreshed(false)
	m.EventDropped("graph.committed")

	body := scrape(t, m)
	assert.Contains(t, body, `flowcanvas_events_dropped_total{event_type="graph.committed"} 1`)
	assert.Contains(t, body, `flowcanvas_layout_duration_seconds_count{engine="layered"} 1`)
	assert.Contains(t, body, `flowcanvas_catalog_refreshes_total{result="error"} 1`)
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.GraphRebuilt()

	assert.Contains(t, scrape(t, a), "flowcanvas_graph_rebuilds_total 1")
	assert.Contains(t, scrape(t, b), "flowcanvas_graph_rebuilds_total 0")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.GraphRebuilt()
		m.ObserveLayout("layered", time.Millisecond)
		m.LayoutResult(OutcomeFailed)
		m.StoreMutation("delete_step")
		m.CatalogRefreshed(true)
	})
}

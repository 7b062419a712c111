package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersAreExposed(t *testing.T) {
	m := New()
	m.ObserveRequest(http.MethodGet, "/api/v1/products", http.StatusOK, 15*time.Millisecond)
	m.ProductionRun("committed")
	m.ProductionRun("committed")
	m.EntityWrite("category", "create")

	if got := testutil.ToFloat64(m.productionRuns.WithLabelValues("committed")); got != 2 {
		t.Fatalf("expected 2 committed runs, got %v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`http_requests_total{method="GET",path="/api/v1/products",status="200"} 1`,
		`stockroom_entity_writes_total{entity="category",op="create"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics output", want)
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	m.ProductionRun("rejected")
	m.EntityWrite("sale", "delete")
}

func TestSeparateInstancesDoNotCollide(t *testing.T) {
	New()
	New()
}

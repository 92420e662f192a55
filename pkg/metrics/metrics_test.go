package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ChunksTotal.WithLabelValues("outbound", "has_suggestions").Inc()
	m.CircuitBreakerState.WithLabelValues("document-store").Set(1)

	if got := testutil.ToFloat64(m.ChunksTotal.WithLabelValues("outbound", "has_suggestions")); got != 1 {
		t.Errorf("chunks = %v, want 1", got)
	}
	n, err := testutil.GatherAndCount(reg, "linksuggest_chunks_total", "circuit_breaker_state")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("gathered %d series, want 2", n)
	}
}

func TestNewMux(t *testing.T) {
	mux := NewMux()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "linksuggest_chunks_total") {
		t.Errorf("index = %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/metrics = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("/nope = %d, want 404", rec.Code)
	}
}

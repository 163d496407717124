package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()

	m.Provision(ResultCreated)
	m.Provision(ResultExisting)
	m.Provision(ResultExisting)
	m.Ping(SourceMQTT, ResultOK)

	if got := testutil.ToFloat64(m.provisions.WithLabelValues(ResultExisting)); got != 2 {
		t.Errorf("existing provisions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.pings.WithLabelValues(SourceMQTT, ResultOK)); got != 1 {
		t.Errorf("mqtt pings = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Provision(ResultCreated)
	m.Claim(ResultConflict)
	m.Ping(SourceHTTP, ResultOK)
	m.Login(ResultOK)
	m.ObserveRequest("GET", "/api/devices", "200", 0.01)
}

func TestHandler(t *testing.T) {
	m := New()
	m.Login(ResultUnauthorized)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `intelvis_login_total{result="unauthorized"} 1`) {
		t.Errorf("login counter missing from output:\n%s", rec.Body.String())
	}
}

package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/JaimeStill/tally/internal/metrics"
)

func TestNewIsolatedRegistries(t *testing.T) {
	a := metrics.New()
	b := metrics.New()

	a.ImportsTotal.WithLabelValues("inventory", "inspect", "ok").Inc()

	if got := testutil.ToFloat64(a.ImportsTotal.WithLabelValues("inventory", "inspect", "ok")); got != 1 {
		t.Errorf("a imports = %f, want 1", got)
	}
	if got := testutil.ToFloat64(b.ImportsTotal.WithLabelValues("inventory", "inspect", "ok")); got != 0 {
		t.Errorf("b imports = %f, want 0", got)
	}
}

func TestMiddlewareRecordsPattern(t *testing.T) {
	reg := metrics.New()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /records/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	handler := reg.Middleware()(mux)

	for _, id := range []string{"a", "b", "c"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/records/"+id, nil))
	}

	got := testutil.ToFloat64(reg.HTTPRequestsTotal.WithLabelValues("GET /records/{id}", "GET", "404"))
	if got != 3 {
		t.Errorf("requests = %f, want 3", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := metrics.New()
	reg.AssistCallsTotal.WithLabelValues("timeout").Inc()

	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `tally_assist_calls_total{outcome="timeout"} 1`) {
		t.Error("assist counter missing from exposition")
	}
}

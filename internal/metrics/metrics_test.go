package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNew(t *testing.T) {
	m := New()
	if m == nil {
		t.Fatal("New() returned nil")
	}
	if m.Registry() == nil {
		t.Error("Registry() returned nil")
	}
	if m.BackendRequestsTotal == nil {
		t.Error("BackendRequestsTotal is nil")
	}
	if m.BackendRequestDurationSeconds == nil {
		t.Error("BackendRequestDurationSeconds is nil")
	}
	if m.HTTPRequestsTotal == nil {
		t.Error("HTTPRequestsTotal is nil")
	}
	if m.DispatchesTotal == nil {
		t.Error("DispatchesTotal is nil")
	}
	if m.ExportsTotal == nil {
		t.Error("ExportsTotal is nil")
	}
	if m.TemplateSavesTotal == nil {
		t.Error("TemplateSavesTotal is nil")
	}
}

func TestGlobalHelpers(t *testing.T) {
	SetGlobal(nil)
	// Nil-safe: none of these should panic without a global instance.
	ObserveBackendRequest("dashboard", time.Millisecond, nil)
	IncDispatches("whatsapp")
	IncExports("csv")
	IncTemplateSaves("create")
	IncHTTPErrors("bad_request")

	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	ObserveBackendRequest("dashboard", time.Millisecond, nil)
	ObserveBackendRequest("dashboard", time.Millisecond, http.ErrHandlerTimeout)
	IncDispatches("whatsapp")
	IncExports("csv")

	if got := counterValue(t, m.BackendRequestsTotal, "dashboard", "ok"); got != 1 {
		t.Errorf("backend ok count = %v, want 1", got)
	}
	if got := counterValue(t, m.BackendRequestsTotal, "dashboard", "error"); got != 1 {
		t.Errorf("backend error count = %v, want 1", got)
	}
	if got := counterValue(t, m.DispatchesTotal, "whatsapp"); got != 1 {
		t.Errorf("dispatch count = %v, want 1", got)
	}
	if got := counterValue(t, m.ExportsTotal, "csv"); got != 1 {
		t.Errorf("export count = %v, want 1", got)
	}
}

func TestHTTPMiddleware(t *testing.T) {
	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	handler := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/templates/42", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	// Outside a chi route context the numeric segment collapses.
	if got := counterValue(t, m.HTTPRequestsTotal, http.MethodGet, "/api/v1/templates/{id}", "404"); got != 1 {
		t.Errorf("http request count = %v, want 1", got)
	}
	if got := counterValue(t, m.HTTPErrorsTotal, "not_found"); got != 1 {
		t.Errorf("http error count = %v, want 1", got)
	}
}

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	c, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v): %v", labels, err)
	}
	var pb dto.Metric
	if err := c.Write(&pb); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return pb.GetCounter().GetValue()
}

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordToolInvocation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordToolInvocation("sanctum_add_liquidity", "success", 0.2)
	m.RecordToolInvocation("sanctum_add_liquidity", "error", 0.1)
	m.RecordToolInvocation("sanctum_add_liquidity", "success", 0.3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.toolInvocationsTotal.WithLabelValues("sanctum_add_liquidity", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.toolInvocationsTotal.WithLabelValues("sanctum_add_liquidity", "error")))
}

func TestRecordChatRender(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordChatRender("rendered")
	m.RecordChatRender("skipped")
	m.RecordChatRender("skipped")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.chatRendersTotal.WithLabelValues("rendered")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.chatRendersTotal.WithLabelValues("skipped")))
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	handler := HTTPMetricsMiddleware(m, "/api/v1/tools")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tools", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("/api/v1/tools", "GET", "4xx")))
}

func TestHTTPMetricsMiddleware_NilMetrics(t *testing.T) {
	called := false
	handler := HTTPMetricsMiddleware(nil, "/health")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.True(t, called)
}

func TestStatusCodeToString(t *testing.T) {
	assert.Equal(t, "2xx", statusCodeToString(201))
	assert.Equal(t, "3xx", statusCodeToString(304))
	assert.Equal(t, "4xx", statusCodeToString(400))
	assert.Equal(t, "5xx", statusCodeToString(503))
	assert.Equal(t, "unknown", statusCodeToString(99))
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// Solana RPC Metrics
	solanaRPCCallsTotal   *prometheus.CounterVec
	solanaRPCCallDuration *prometheus.HistogramVec

	// Tool Metrics
	toolInvocationsTotal   *prometheus.CounterVec
	toolInvocationDuration *prometheus.HistogramVec
	transactionsSubmitted  *prometheus.CounterVec

	// Sanctum API Metrics
	sanctumRequestsTotal   *prometheus.CounterVec
	sanctumRequestDuration *prometheus.HistogramVec

	// Chat view Metrics
	chatRendersTotal *prometheus.CounterVec

	// Database Metrics
	dbQueryDuration   *prometheus.HistogramVec
	dbOperationsTotal *prometheus.CounterVec

	// HTTP Metrics
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsTotal    *prometheus.CounterVec
	sseActiveConnections *prometheus.GaugeVec
	sseEventsSent        *prometheus.CounterVec

	// NATS Metrics
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		// Solana RPC Metrics
		solanaRPCCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_calls_total",
				Help: "Total number of Solana RPC calls by method and status",
			},
			[]string{"method", "status", "endpoint"},
		),
		solanaRPCCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_call_duration_seconds",
				Help:    "Duration of Solana RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "endpoint"},
		),

		// Tool Metrics
		toolInvocationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_invocations_total",
				Help: "Total number of tool invocations by tool and envelope status",
			},
			[]string{"tool", "status"},
		),
		toolInvocationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tool_invocation_duration_seconds",
				Help:    "Duration of tool invocations in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"tool"},
		),
		transactionsSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transactions_submitted_total",
				Help: "Total number of transactions produced by tools, by mode (sent or sign_only)",
			},
			[]string{"mode"},
		),

		// Sanctum API Metrics
		sanctumRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sanctum_api_requests_total",
				Help: "Total number of Sanctum API requests",
			},
			[]string{"endpoint", "status"},
		),
		sanctumRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sanctum_api_request_duration_seconds",
				Help:    "Duration of Sanctum API requests in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"endpoint"},
		),

		// Chat view Metrics
		chatRendersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_renders_total",
				Help: "Total number of message list renders, by result (rendered or skipped)",
			},
			[]string{"result"},
		),

		// Database Metrics
		dbQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "db_query_duration_seconds",
				Help:    "Duration of database queries in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"operation", "table"},
		),
		dbOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "db_operations_total",
				Help: "Total number of database operations",
			},
			[]string{"operation", "status"},
		),

		// HTTP Metrics
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),
		sseActiveConnections: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sse_active_connections",
				Help: "Number of active SSE connections",
			},
			[]string{"tool"},
		),
		sseEventsSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sse_events_sent_total",
				Help: "Total number of SSE events sent",
			},
			[]string{"tool", "event_type"},
		),

		// NATS Metrics
		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of NATS messages published",
			},
			[]string{"subject", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"subject"},
		),
	}
}

// Solana RPC metric helpers

// RecordRPCCall records a Solana RPC call with duration.
func (m *Metrics) RecordRPCCall(method, status, endpoint string, duration float64) {
	m.solanaRPCCallsTotal.WithLabelValues(method, status, endpoint).Inc()
	m.solanaRPCCallDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// Tool metric helpers

// RecordToolInvocation records a tool invocation and its envelope status.
func (m *Metrics) RecordToolInvocation(tool, status string, duration float64) {
	m.toolInvocationsTotal.WithLabelValues(tool, status).Inc()
	m.toolInvocationDuration.WithLabelValues(tool).Observe(duration)
}

// RecordTransaction records a transaction produced by a tool.
func (m *Metrics) RecordTransaction(mode string) {
	m.transactionsSubmitted.WithLabelValues(mode).Inc()
}

// RecordSanctumRequest records a request to the Sanctum API.
func (m *Metrics) RecordSanctumRequest(endpoint, status string, duration float64) {
	m.sanctumRequestsTotal.WithLabelValues(endpoint, status).Inc()
	m.sanctumRequestDuration.WithLabelValues(endpoint).Observe(duration)
}

// RecordChatRender records whether the message list was rendered or served from cache.
func (m *Metrics) RecordChatRender(result string) {
	m.chatRendersTotal.WithLabelValues(result).Inc()
}

// Database metric helpers

// RecordDBQuery records a database query with duration.
func (m *Metrics) RecordDBQuery(operation, table string, duration float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.dbQueryDuration.WithLabelValues(operation, table).Observe(duration)
	m.dbOperationsTotal.WithLabelValues(operation, status).Inc()
}

// HTTP metric helpers

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	status := statusCodeToString(statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// RecordSSEConnectionChange records a change in SSE connection count.
func (m *Metrics) RecordSSEConnectionChange(tool string, delta float64) {
	m.sseActiveConnections.WithLabelValues(tool).Add(delta)
}

// RecordSSEEventSent records an SSE event being sent.
func (m *Metrics) RecordSSEEventSent(tool, eventType string) {
	m.sseEventsSent.WithLabelValues(tool, eventType).Inc()
}

// NATS metric helpers

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(subject, status string, duration float64) {
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
	m.natsPublishDuration.WithLabelValues(subject).Observe(duration)
}

// Helper functions

func statusCodeToString(code int) string {
	// Group status codes by class
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}

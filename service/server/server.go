package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brojonat/solkit/service/config"
	"github.com/brojonat/solkit/service/db"
	"github.com/brojonat/solkit/service/metrics"
	"github.com/brojonat/solkit/service/temporal"
	"github.com/brojonat/solkit/service/toolkit"
)

// Store is the persistence the HTTP surface needs. *db.Store satisfies it.
type Store interface {
	ListInvocations(ctx context.Context, params db.ListInvocationsParams) ([]*db.Invocation, error)
	AppendMessage(ctx context.Context, params db.AppendMessageParams) (*db.ChatMessage, error)
	ListMessages(ctx context.Context, chatID string, limit int32) ([]*db.ChatMessage, error)
}

// ToolExecutor runs tools durably. *temporal.Client satisfies it.
type ToolExecutor interface {
	StartToolExecution(ctx context.Context, tool, input string) (string, error)
	GetExecution(ctx context.Context, id string) (*temporal.Execution, error)
}

// Server represents the HTTP server for the agent tools.
type Server struct {
	addr         string
	cfg          *config.Config
	registry     *toolkit.Registry
	store        Store
	executor     ToolExecutor
	ssePublisher *SSEPublisher
	renderer     *ChatRenderer
	metrics      *metrics.Metrics
	logger       *slog.Logger
	server       *http.Server
}

// New creates a new HTTP server with the given dependencies.
// The store is optional - if nil, invocation and chat endpoints respond 503.
// The executor is optional - if nil, async execution endpoints won't be available.
// The ssePublisher is optional - if nil, SSE endpoints won't be available.
// The metrics is optional - if nil, metrics endpoints won't be available.
func New(addr string, cfg *config.Config, registry *toolkit.Registry, store Store, executor ToolExecutor, ssePublisher *SSEPublisher, m *metrics.Metrics, logger *slog.Logger) *Server {
	return &Server{
		addr:         addr,
		cfg:          cfg,
		registry:     registry,
		store:        store,
		executor:     executor,
		ssePublisher: ssePublisher,
		metrics:      m,
		logger:       logger,
	}
}

// WithTemplates adds chat rendering support to the server using embedded files
func (s *Server) WithTemplates() error {
	renderer, err := NewChatRenderer(s.metrics, s.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize templates: %w", err)
	}
	s.renderer = renderer
	s.logger.Info("chat templates loaded from embedded files")
	return nil
}

// Handler builds the routed handler, wrapped with CORS.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	instrument := func(name string, h http.Handler) http.Handler {
		return metrics.HTTPMetricsMiddleware(s.metrics, name)(h)
	}

	// Tool routes
	mux.Handle("GET /api/v1/tools", instrument("/api/v1/tools", handleListTools(s.registry, s.logger)))
	mux.Handle("POST /api/v1/tools/{name}", instrument("/api/v1/tools/{name}", handleInvokeTool(s.registry, s.logger)))
	mux.Handle("GET /api/v1/invocations", instrument("/api/v1/invocations", handleListInvocations(s.store, s.logger)))

	// Durable execution routes (if Temporal is configured)
	if s.executor != nil {
		mux.Handle("POST /api/v1/tools/{name}/async", instrument("/api/v1/tools/{name}/async", handleStartExecution(s.registry, s.executor, s.logger)))
		mux.Handle("GET /api/v1/executions/{id}", instrument("/api/v1/executions/{id}", handleGetExecution(s.executor, s.logger)))
		s.logger.Info("async execution endpoints enabled")
	} else {
		s.logger.Warn("temporal not configured, async execution endpoints disabled")
	}

	// Chat routes
	maxMessages := int32(200)
	if s.cfg != nil && s.cfg.MaxChatMessages > 0 {
		maxMessages = int32(s.cfg.MaxChatMessages)
	}
	mux.Handle("POST /api/v1/chats/{id}/messages", instrument("/api/v1/chats/{id}/messages", handleAppendMessage(s.store, s.logger)))
	if s.renderer != nil {
		mux.Handle("GET /chats/{id}", instrument("/chats/{id}", handleChatPage(s.store, s.renderer, maxMessages)))
		s.logger.Info("HTML chat endpoints enabled")
	}

	// SSE streaming endpoints (if SSE publisher is configured)
	if s.ssePublisher != nil {
		mux.Handle("GET /api/v1/stream/tools/{tool}", handleStreamTools(s.ssePublisher, s.registry, s.metrics, s.logger))
		mux.Handle("GET /api/v1/stream/tools", handleStreamTools(s.ssePublisher, s.registry, s.metrics, s.logger))
		s.logger.Info("SSE streaming endpoints enabled")
	} else {
		s.logger.Warn("SSE publisher not configured, streaming endpoints disabled")
	}

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics endpoint (if metrics collector is configured)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
		s.logger.Info("Prometheus metrics endpoint enabled")
	}

	return corsMiddleware(mux)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	writeTimeout := 15 * time.Second
	if s.cfg != nil && s.cfg.ToolTimeout+5*time.Second > writeTimeout {
		// Synchronous tool calls may take up to the tool timeout.
		writeTimeout = s.cfg.ToolTimeout + 5*time.Second
	}

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	// Close SSE publisher first (disconnects all clients)
	if s.ssePublisher != nil {
		s.ssePublisher.Close()
	}

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

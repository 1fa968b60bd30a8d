package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/brojonat/solkit/service/metrics"
	natspkg "github.com/brojonat/solkit/service/nats"
	"github.com/brojonat/solkit/service/toolkit"
)

// SSEPublisher manages Server-Sent Events connections for tool event streaming.
type SSEPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *slog.Logger
}

// NewSSEPublisher creates a new SSE publisher that subscribes to NATS internally.
func NewSSEPublisher(natsURL string, logger *slog.Logger) (*SSEPublisher, error) {
	nc, js, err := natspkg.Connect(natsURL, "solkit-sse-publisher")
	if err != nil {
		return nil, err
	}

	logger.Info("SSE publisher initialized", "nats_url", natsURL)

	return &SSEPublisher{
		nc:     nc,
		js:     js,
		logger: logger,
	}, nil
}

// Close closes the NATS connection.
func (p *SSEPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
		p.logger.Info("SSE publisher closed")
	}
	return nil
}

// writeSSEEvent writes one event with v encoded as JSON data.
func writeSSEEvent(w io.Writer, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

// handleStreamTools handles SSE streaming for tool events.
// If the tool path parameter is empty, streams all tools. Otherwise, streams
// one registered tool.
func handleStreamTools(publisher *SSEPublisher, registry *toolkit.Registry, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tool := r.PathValue("tool")

		subject := natspkg.StreamSubjects
		toolDesc := "all"
		if tool != "" {
			// Only registered names reach the subject, so NATS wildcards
			// cannot widen the filter.
			if _, ok := registry.Get(tool); !ok {
				writeError(w, fmt.Sprintf("unknown tool: %s", tool), http.StatusNotFound)
				return
			}
			subject = natspkg.SubjectPrefix + tool
			toolDesc = tool
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		flush := func() {
			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}
		}
		flush()

		logger.DebugContext(r.Context(), "SSE client connected",
			"tool", toolDesc,
			"remote_addr", r.RemoteAddr,
		)
		if m != nil {
			m.RecordSSEConnectionChange(toolDesc, 1)
			defer m.RecordSSEConnectionChange(toolDesc, -1)
		}

		// Ephemeral consumer for this connection; only new events are delivered.
		cons, err := publisher.js.CreateOrUpdateConsumer(r.Context(), natspkg.StreamName, jetstream.ConsumerConfig{
			FilterSubject:     subject,
			AckPolicy:         jetstream.AckExplicitPolicy,
			DeliverPolicy:     jetstream.DeliverNewPolicy,
			InactiveThreshold: time.Minute,
		})
		if err != nil {
			logger.ErrorContext(r.Context(), "failed to create consumer",
				"tool", toolDesc,
				"error", err,
			)
			writeSSEEvent(w, "error", map[string]string{"error": "failed to subscribe"})
			flush()
			return
		}

		msgChan := make(chan jetstream.Msg, 10)
		doneChan := make(chan struct{})

		go func() {
			defer close(doneChan)
			cc, err := cons.Consume(func(msg jetstream.Msg) {
				select {
				case msgChan <- msg:
				case <-r.Context().Done():
					return
				}
			})
			if err != nil {
				logger.ErrorContext(r.Context(), "failed to start consuming messages",
					"error", err,
				)
				return
			}
			<-r.Context().Done()
			cc.Stop()
		}()

		writeSSEEvent(w, "connected", map[string]string{"tool": toolDesc})
		flush()

		keepalive := time.NewTicker(10 * time.Second)
		defer keepalive.Stop()

		for {
			select {
			case <-keepalive.C:
				fmt.Fprintf(w, ": keepalive\n\n")
				flush()

			case msg := <-msgChan:
				var event natspkg.ToolEvent
				if err := json.Unmarshal(msg.Data(), &event); err != nil {
					logger.WarnContext(r.Context(), "failed to unmarshal event",
						"error", err,
					)
					msg.Ack()
					continue
				}

				if err := writeSSEEvent(w, "tool", event); err != nil {
					logger.WarnContext(r.Context(), "failed to write event",
						"error", err,
					)
					msg.Ack()
					continue
				}
				flush()
				msg.Ack()

				if m != nil {
					m.RecordSSEEventSent(toolDesc, "tool")
				}
				logger.DebugContext(r.Context(), "sent tool event",
					"tool", event.Tool,
					"invocation_id", event.InvocationID,
				)

			case <-r.Context().Done():
				logger.DebugContext(r.Context(), "SSE client disconnected",
					"tool", toolDesc,
					"remote_addr", r.RemoteAddr,
				)
				return

			case <-doneChan:
				return
			}
		}
	})
}

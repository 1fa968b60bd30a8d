package nats

import (
	"time"

	"github.com/brojonat/solkit/service/toolkit"
)

// ToolEvent is published to NATS after every tool invocation.
// It is published to the subject "tools.{tool_name}" in JetStream.
type ToolEvent struct {
	InvocationID string `json:"invocation_id"`
	Tool         string `json:"tool"`

	// Outcome
	Status  string `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	TxID    string `json:"tx_id,omitempty"`

	// Timing information
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`

	// Metadata
	PublishedAt time.Time `json:"published_at"`
}

// Subject returns the subject the event is published to.
func (e *ToolEvent) Subject() string {
	return SubjectPrefix + e.Tool
}

// FromInvocation converts a registry invocation to a ToolEvent for publishing.
// The raw input is not included.
func FromInvocation(inv toolkit.Invocation) *ToolEvent {
	event := &ToolEvent{
		InvocationID: inv.ID,
		Tool:         inv.Tool,
		Status:       inv.Status,
		Code:         inv.Code,
		StartedAt:    inv.StartedAt,
		DurationMS:   inv.Duration.Milliseconds(),
		PublishedAt:  time.Now().UTC(),
	}

	if env, err := toolkit.ParseEnvelope(inv.Output); err == nil {
		event.Message = env.Message
		event.TxID = env.TxID
	}

	return event
}

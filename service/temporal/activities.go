package temporal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/brojonat/solkit/service/db"
	"github.com/brojonat/solkit/service/metrics"
	natspkg "github.com/brojonat/solkit/service/nats"
	"github.com/brojonat/solkit/service/toolkit"
)

// InvokeToolInput contains parameters for the InvokeTool activity.
type InvokeToolInput struct {
	Tool  string `json:"tool"`
	Input string `json:"input"`
}

// ToolInvoker runs a named tool. *toolkit.Registry satisfies it.
type ToolInvoker interface {
	Invoke(ctx context.Context, name, input string) toolkit.Invocation
}

// StoreInterface defines the database operations needed by activities.
// This allows for easy mocking in tests.
type StoreInterface interface {
	RecordInvocation(context.Context, db.RecordInvocationParams) (*db.Invocation, error)
}

// PublisherInterface defines the NATS publishing operations needed by activities.
// This allows for easy mocking in tests.
type PublisherInterface interface {
	PublishToolEvent(ctx context.Context, event *natspkg.ToolEvent) error
}

// Activities holds the dependencies needed by Temporal activities.
// Store and publisher are optional; their activities are no-ops when unset.
type Activities struct {
	invoker   ToolInvoker
	store     StoreInterface
	publisher PublisherInterface
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewActivities creates a new Activities instance with explicit dependencies.
// If metrics is nil, no metrics will be recorded.
func NewActivities(invoker ToolInvoker, store StoreInterface, publisher PublisherInterface, m *metrics.Metrics, logger *slog.Logger) *Activities {
	if logger == nil {
		logger = slog.Default()
	}
	return &Activities{
		invoker:   invoker,
		store:     store,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// InvokeTool runs the tool once. A tool failure is reported in the returned
// envelope, not as an activity error.
func (a *Activities) InvokeTool(ctx context.Context, input InvokeToolInput) (*toolkit.Invocation, error) {
	if a.invoker == nil {
		return nil, fmt.Errorf("no tool invoker configured")
	}
	a.logger.DebugContext(ctx, "invoking tool", "tool", input.Tool)

	inv := a.invoker.Invoke(ctx, input.Tool, input.Input)

	a.logger.InfoContext(ctx, "tool invocation finished",
		"tool", input.Tool,
		"invocation_id", inv.ID,
		"status", inv.Status,
		"code", inv.Code,
	)
	return &inv, nil
}

// RecordInvocation writes the invocation to the audit log.
func (a *Activities) RecordInvocation(ctx context.Context, inv toolkit.Invocation) error {
	if a.store == nil {
		a.logger.DebugContext(ctx, "no store configured, skipping invocation record", "invocation_id", inv.ID)
		return nil
	}

	params := db.RecordInvocationParams{
		ID:        inv.ID,
		Tool:      inv.Tool,
		Input:     inv.Input,
		Output:    inv.Output,
		Status:    inv.Status,
		Code:      inv.Code,
		StartedAt: inv.StartedAt,
		Duration:  inv.Duration,
	}
	if env, err := toolkit.ParseEnvelope(inv.Output); err == nil {
		params.TxID = env.TxID
	}

	if _, err := a.store.RecordInvocation(ctx, params); err != nil {
		a.logger.ErrorContext(ctx, "failed to record invocation",
			"invocation_id", inv.ID,
			"error", err,
		)
		return fmt.Errorf("failed to record invocation: %w", err)
	}
	return nil
}

// PublishToolEvent announces the invocation on NATS.
func (a *Activities) PublishToolEvent(ctx context.Context, inv toolkit.Invocation) error {
	if a.publisher == nil {
		a.logger.DebugContext(ctx, "no publisher configured, skipping tool event", "invocation_id", inv.ID)
		return nil
	}
	if err := a.publisher.PublishToolEvent(ctx, natspkg.FromInvocation(inv)); err != nil {
		a.logger.WarnContext(ctx, "failed to publish tool event",
			"invocation_id", inv.ID,
			"error", err,
		)
		return fmt.Errorf("failed to publish tool event: %w", err)
	}
	return nil
}

package temporal

import (
	"fmt"
	"time"

	temporalsdk "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/brojonat/solkit/service/toolkit"
)

var a *Activities // for type-safe activity invocation

// ExecuteToolInput contains the input parameters for a durable tool execution.
type ExecuteToolInput struct {
	Tool    string        `json:"tool"`
	Input   string        `json:"input"`
	Timeout time.Duration `json:"timeout,omitempty"`
}

// ExecuteToolResult contains the result of a durable tool execution.
type ExecuteToolResult struct {
	InvocationID string `json:"invocation_id"`
	Tool         string `json:"tool"`
	Status       string `json:"status"`
	Code         string `json:"code,omitempty"`
	TxID         string `json:"tx_id,omitempty"`
	Output       string `json:"output"`
	Recorded     bool   `json:"recorded"`
	Published    bool   `json:"published"`
}

// ExecuteToolWorkflow runs one tool invocation and then records and publishes it.
//
// The workflow performs these steps:
// 1. Invoke the tool exactly once (InvokeTool activity)
// 2. Write the invocation to the audit log (RecordInvocation activity)
// 3. Publish a tool event to NATS (PublishToolEvent activity)
//
// Tools submit transactions, so InvokeTool is never retried. Steps 2 and 3
// are retried and their failure does not fail the workflow.
func ExecuteToolWorkflow(ctx workflow.Context, input ExecuteToolInput) (*ExecuteToolResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("ExecuteToolWorkflow started", "tool", input.Tool)

	timeout := input.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	invokeCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy: &temporalsdk.RetryPolicy{
			MaximumAttempts: 1,
		},
	})

	var inv *toolkit.Invocation
	err := workflow.ExecuteActivity(invokeCtx, a.InvokeTool, InvokeToolInput{
		Tool:  input.Tool,
		Input: input.Input,
	}).Get(ctx, &inv)
	if err != nil {
		return nil, fmt.Errorf("failed to invoke tool: %w", err)
	}

	result := &ExecuteToolResult{
		InvocationID: inv.ID,
		Tool:         inv.Tool,
		Status:       inv.Status,
		Code:         inv.Code,
		Output:       inv.Output,
	}
	if env, err := toolkit.ParseEnvelope(inv.Output); err == nil {
		result.TxID = env.TxID
	}

	sideCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporalsdk.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    3,
		},
	})

	if err := workflow.ExecuteActivity(sideCtx, a.RecordInvocation, *inv).Get(ctx, nil); err != nil {
		logger.Warn("failed to record invocation", "invocation_id", inv.ID, "error", err)
	} else {
		result.Recorded = true
	}

	if err := workflow.ExecuteActivity(sideCtx, a.PublishToolEvent, *inv).Get(ctx, nil); err != nil {
		logger.Warn("failed to publish tool event", "invocation_id", inv.ID, "error", err)
	} else {
		result.Published = true
	}

	logger.Info("ExecuteToolWorkflow completed",
		"tool", input.Tool,
		"invocation_id", inv.ID,
		"status", inv.Status,
	)
	return result, nil
}

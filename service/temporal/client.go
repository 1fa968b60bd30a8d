package temporal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
)

// Execution is the state of a durable tool execution.
type Execution struct {
	WorkflowID string             `json:"workflow_id"`
	RunID      string             `json:"run_id"`
	Status     string             `json:"status"`
	Result     *ExecuteToolResult `json:"result,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// Client starts and inspects tool executions in Temporal.
type Client struct {
	client      client.Client
	taskQueue   string
	toolTimeout time.Duration
	logger      *slog.Logger
}

// NewClient creates a new Temporal client.
func NewClient(host, namespace, taskQueue string, toolTimeout time.Duration, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("connecting to temporal",
		"host", host,
		"namespace", namespace,
		"task_queue", taskQueue,
	)

	c, err := client.Dial(client.Options{
		HostPort:  host,
		Namespace: namespace,
		Logger:    newTemporalLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Temporal: %w", err)
	}

	logger.Info("connected to temporal successfully")

	return NewClientFromSDK(c, taskQueue, toolTimeout, logger), nil
}

// NewClientFromSDK wraps an existing SDK client.
func NewClientFromSDK(c client.Client, taskQueue string, toolTimeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		client:      c,
		taskQueue:   taskQueue,
		toolTimeout: toolTimeout,
		logger:      logger,
	}
}

// StartToolExecution starts ExecuteToolWorkflow and returns its workflow ID.
func (c *Client) StartToolExecution(ctx context.Context, tool, input string) (string, error) {
	id := workflowID(tool)

	run, err := c.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        id,
		TaskQueue: c.taskQueue,
		Memo: map[string]interface{}{
			"tool":       tool,
			"created_by": "solkit",
		},
	}, ExecuteToolWorkflow, ExecuteToolInput{
		Tool:    tool,
		Input:   input,
		Timeout: c.toolTimeout,
	})
	if err != nil {
		c.logger.Error("failed to start tool execution",
			"tool", tool,
			"workflow_id", id,
			"error", err,
		)
		return "", fmt.Errorf("failed to start workflow %q: %w", id, err)
	}

	c.logger.Info("tool execution started",
		"tool", tool,
		"workflow_id", run.GetID(),
		"run_id", run.GetRunID(),
	)
	return run.GetID(), nil
}

// GetExecution reports the status of a tool execution, with its result once
// the workflow has completed.
func (c *Client) GetExecution(ctx context.Context, id string) (*Execution, error) {
	desc, err := c.client.DescribeWorkflowExecution(ctx, id, "")
	if err != nil {
		return nil, fmt.Errorf("failed to describe workflow %q: %w", id, err)
	}

	info := desc.GetWorkflowExecutionInfo()
	status := info.GetStatus()
	exec := &Execution{
		WorkflowID: id,
		RunID:      info.GetExecution().GetRunId(),
		Status:     statusString(status),
	}

	switch status {
	case enumspb.WORKFLOW_EXECUTION_STATUS_COMPLETED:
		var result ExecuteToolResult
		if err := c.client.GetWorkflow(ctx, id, exec.RunID).Get(ctx, &result); err != nil {
			return nil, fmt.Errorf("failed to get workflow result %q: %w", id, err)
		}
		exec.Result = &result
	case enumspb.WORKFLOW_EXECUTION_STATUS_FAILED,
		enumspb.WORKFLOW_EXECUTION_STATUS_TIMED_OUT,
		enumspb.WORKFLOW_EXECUTION_STATUS_TERMINATED,
		enumspb.WORKFLOW_EXECUTION_STATUS_CANCELED:
		if err := c.client.GetWorkflow(ctx, id, exec.RunID).Get(ctx, nil); err != nil {
			exec.Error = err.Error()
		}
	}
	return exec, nil
}

// SDKClient returns the underlying Temporal SDK client for direct workflow operations.
func (c *Client) SDKClient() client.Client {
	return c.client
}

// TaskQueue returns the configured task queue for this client.
func (c *Client) TaskQueue() string {
	return c.taskQueue
}

// Close closes the Temporal client connection.
func (c *Client) Close() {
	c.logger.Info("closing temporal client")
	c.client.Close()
}

func workflowID(tool string) string {
	return "tool-" + tool + "-" + uuid.NewString()
}

// statusString turns WORKFLOW_EXECUTION_STATUS_RUNNING into "running".
func statusString(s enumspb.WorkflowExecutionStatus) string {
	name := strings.TrimPrefix(s.String(), "WORKFLOW_EXECUTION_STATUS_")
	return strings.ToLower(name)
}

// temporalLogger adapts slog.Logger to Temporal's logger interface.
type temporalLogger struct {
	logger *slog.Logger
}

func newTemporalLogger(logger *slog.Logger) *temporalLogger {
	return &temporalLogger{logger: logger}
}

func (l *temporalLogger) Debug(msg string, keyvals ...interface{}) {
	l.logger.Debug(msg, keyvals...)
}

func (l *temporalLogger) Info(msg string, keyvals ...interface{}) {
	l.logger.Info(msg, keyvals...)
}

func (l *temporalLogger) Warn(msg string, keyvals ...interface{}) {
	l.logger.Warn(msg, keyvals...)
}

func (l *temporalLogger) Error(msg string, keyvals ...interface{}) {
	l.logger.Error(msg, keyvals...)
}

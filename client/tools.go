// Package client is the HTTP client for the solkit tool server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Param describes one field of a tool's JSON input.
type Param struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Description string `json:"description"`
}

// ToolInfo describes a tool the server exposes.
type ToolInfo struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"params,omitempty"`
}

// Envelope is a tool's result. Raw holds the body exactly as returned.
type Envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
	TxID    string `json:"txId,omitempty"`

	InvocationID string          `json:"-"`
	Raw          json.RawMessage `json:"-"`
}

// OK reports whether the tool succeeded.
func (e *Envelope) OK() bool { return e.Status == "success" }

// ExecutionResult is the outcome of a completed durable execution.
type ExecutionResult struct {
	InvocationID string `json:"invocation_id"`
	Tool         string `json:"tool"`
	Status       string `json:"status"`
	Code         string `json:"code,omitempty"`
	TxID         string `json:"tx_id,omitempty"`
	Output       string `json:"output"`
	Recorded     bool   `json:"recorded"`
	Published    bool   `json:"published"`
}

// Execution is the state of a durable tool execution.
type Execution struct {
	WorkflowID string           `json:"workflow_id"`
	RunID      string           `json:"run_id"`
	Status     string           `json:"status"`
	Result     *ExecutionResult `json:"result,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// Done reports whether the execution has reached a terminal state.
func (e *Execution) Done() bool {
	switch e.Status {
	case "running", "unspecified", "":
		return false
	}
	return true
}

// Invocation is a recorded tool call from the audit log.
type Invocation struct {
	ID         string          `json:"id"`
	Tool       string          `json:"tool"`
	Status     string          `json:"status"`
	Code       *string         `json:"code,omitempty"`
	TxID       *string         `json:"tx_id,omitempty"`
	Output     json.RawMessage `json:"output"`
	StartedAt  time.Time       `json:"started_at"`
	DurationMS int64           `json:"duration_ms"`
}

// Message is one chat transcript entry.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Client is the HTTP client for the solkit tool server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new tool server client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 3 * time.Minute}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// ListTools returns the tools the server exposes.
func (c *Client) ListTools(ctx context.Context) ([]ToolInfo, error) {
	var out struct {
		Tools []ToolInfo `json:"tools"`
	}
	if err := c.getJSON(ctx, "/api/v1/tools", &out); err != nil {
		return nil, err
	}
	c.logger.Debug("listed tools", "count", len(out.Tools))
	return out.Tools, nil
}

// CallTool runs a tool synchronously. A tool-level failure is not a Go
// error; inspect the returned envelope.
func (c *Client) CallTool(ctx context.Context, name, input string) (*Envelope, error) {
	if input == "" {
		input = "{}"
	}
	u := fmt.Sprintf("%s/api/v1/tools/%s", c.baseURL, url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, "POST", u, strings.NewReader(input))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil || env.Status == "" {
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}
	env.InvocationID = resp.Header.Get("X-Invocation-ID")
	env.Raw = body

	c.logger.Debug("tool called",
		"tool", name,
		"invocation_id", env.InvocationID,
		"status", env.Status,
	)
	return &env, nil
}

// StartToolExecution starts a durable execution and returns its workflow ID.
func (c *Client) StartToolExecution(ctx context.Context, name, input string) (string, error) {
	if input == "" {
		input = "{}"
	}
	u := fmt.Sprintf("/api/v1/tools/%s/async", url.PathEscape(name))
	var out struct {
		WorkflowID string `json:"workflow_id"`
	}
	if err := c.postJSON(ctx, u, []byte(input), http.StatusAccepted, &out); err != nil {
		return "", err
	}
	c.logger.Debug("tool execution started", "tool", name, "workflow_id", out.WorkflowID)
	return out.WorkflowID, nil
}

// GetExecution returns the current state of a durable execution.
func (c *Client) GetExecution(ctx context.Context, workflowID string) (*Execution, error) {
	var exec Execution
	if err := c.getJSON(ctx, "/api/v1/executions/"+url.PathEscape(workflowID), &exec); err != nil {
		return nil, err
	}
	return &exec, nil
}

// AwaitExecution polls until the execution finishes or ctx is done.
func (c *Client) AwaitExecution(ctx context.Context, workflowID string, interval time.Duration) (*Execution, error) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		exec, err := c.GetExecution(ctx, workflowID)
		if err != nil {
			return nil, err
		}
		if exec.Done() {
			return exec, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for execution %s: %w", workflowID, ctx.Err())
		case <-ticker.C:
		}
	}
}

// ListInvocations returns recorded tool calls, newest first. tool may be empty.
func (c *Client) ListInvocations(ctx context.Context, tool string, limit, offset int) ([]Invocation, error) {
	q := url.Values{}
	if tool != "" {
		q.Set("tool", tool)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	path := "/api/v1/invocations"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out struct {
		Invocations []Invocation `json:"invocations"`
	}
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Invocations, nil
}

// AppendMessage adds a message to a chat transcript.
func (c *Client) AppendMessage(ctx context.Context, chatID, role, content string) (*Message, error) {
	body, err := json.Marshal(map[string]string{"role": role, "content": content})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	var msg Message
	path := fmt.Sprintf("/api/v1/chats/%s/messages", url.PathEscape(chatID))
	if err := c.postJSON(ctx, path, body, http.StatusCreated, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, body []byte, want int, v any) error {
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return c.parseErrorResponse(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// parseErrorResponse attempts to parse an error response from the server.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errResp struct {
		Error string `json:"error"`
	}

	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return fmt.Errorf("request failed: %s", errResp.Error)
}

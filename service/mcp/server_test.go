package mcp

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brojonat/solkit/service/toolkit"
)

type echoTool struct{}

func (echoTool) Name() string        { return "echo" }
func (echoTool) Description() string { return "returns a fixed envelope" }
func (echoTool) Call(ctx context.Context, input string) string {
	if input == `{"fail":true}` {
		return `{"status":"error","message":"asked to fail","code":"TOOL_EXECUTION_FAILED"}`
	}
	return `{"status":"success","message":"ok","txId":"sig"}`
}
func (echoTool) Params() []toolkit.Param {
	return []toolkit.Param{
		{Name: "text", Type: "string", Required: true, Description: "text"},
		{Name: "count", Type: "number", Description: "count"},
	}
}

func testRegistry(t *testing.T) *toolkit.Registry {
	t.Helper()
	reg := toolkit.NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, reg.Register(echoTool{}))
	return reg
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestToolDefinition(t *testing.T) {
	def := toolDefinition(echoTool{})
	assert.Equal(t, "echo", def.Name)
	assert.Equal(t, "returns a fixed envelope", def.Description)
	assert.Contains(t, def.InputSchema.Properties, "text")
	assert.Contains(t, def.InputSchema.Properties, "count")
	assert.Equal(t, []string{"text"}, def.InputSchema.Required)
}

func TestToolHandler_Success(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var seen string
	reg := testRegistry(t)
	reg.AddObserver(func(ctx context.Context, inv toolkit.Invocation) { seen = inv.Input })

	req := mcp.CallToolRequest{}
	req.Params.Name = "echo"
	req.Params.Arguments = map[string]any{"text": "hi", "count": 2}

	res, err := toolHandler(reg, "echo", logger)(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, textOf(t, res), `"txId":"sig"`)
	assert.JSONEq(t, `{"text":"hi","count":2}`, seen)
}

func TestToolHandler_ErrorEnvelope(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	req := mcp.CallToolRequest{}
	req.Params.Name = "echo"
	req.Params.Arguments = map[string]any{"fail": true}

	res, err := toolHandler(testRegistry(t), "echo", logger)(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "asked to fail")
}

func TestToolHandler_NoArguments(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var seen string
	reg := testRegistry(t)
	reg.AddObserver(func(ctx context.Context, inv toolkit.Invocation) { seen = inv.Input })

	_, err := toolHandler(reg, "echo", logger)(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.Equal(t, "{}", seen)
}

func TestNewServer(t *testing.T) {
	s := NewServer(testRegistry(t), slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.NotNil(t, s)
}

// Package mcp serves the tool registry over the Model Context Protocol.
package mcp

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/brojonat/solkit/service/toolkit"
)

const (
	ServerName    = "solkit"
	ServerVersion = "0.1.0"
)

// NewServer returns an MCP server exposing every tool in reg.
func NewServer(reg *toolkit.Registry, logger *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	for _, t := range reg.List() {
		s.AddTool(toolDefinition(t), toolHandler(reg, t.Name(), logger))
		logger.Debug("registered MCP tool", "name", t.Name())
	}
	return s
}

// ServeStdio blocks serving reg on stdin and stdout.
func ServeStdio(reg *toolkit.Registry, logger *slog.Logger) error {
	logger.Info("serving MCP over stdio", "tools", len(reg.List()))
	return server.ServeStdio(NewServer(reg, logger))
}

func toolDefinition(t toolkit.Tool) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(t.Description())}
	for _, p := range toolkit.ParamsOf(t) {
		propOpts := []mcp.PropertyOption{mcp.Description(p.Description)}
		if p.Required {
			propOpts = append(propOpts, mcp.Required())
		}
		switch p.Type {
		case "number":
			opts = append(opts, mcp.WithNumber(p.Name, propOpts...))
		default:
			opts = append(opts, mcp.WithString(p.Name, propOpts...))
		}
	}
	return mcp.NewTool(t.Name(), opts...)
}

// toolHandler re-encodes the MCP arguments as the tool's JSON input and
// returns the envelope as text. Error envelopes are flagged as errors.
func toolHandler(reg *toolkit.Registry, name string, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		if args == nil {
			args = map[string]any{}
		}
		input, err := json.Marshal(args)
		if err != nil {
			return mcp.NewToolResultError(toolkit.ErrorJSON(err, toolkit.CodeInvalidInput)), nil
		}

		inv := reg.Invoke(ctx, name, string(input))
		logger.DebugContext(ctx, "MCP tool call",
			"tool", name,
			"invocation_id", inv.ID,
			"status", inv.Status,
		)
		if inv.Status != toolkit.StatusSuccess {
			return mcp.NewToolResultError(inv.Output), nil
		}
		return mcp.NewToolResultText(inv.Output), nil
	}
}

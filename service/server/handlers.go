package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.temporal.io/api/serviceerror"

	"github.com/brojonat/solkit/service/db"
	"github.com/brojonat/solkit/service/toolkit"
)

const (
	maxRequestBodySize = 1 << 20 // 1MB - tool inputs are small JSON objects
	maxListLimit       = 1000
)

// toolResponse is the JSON response format for a tool.
type toolResponse struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Params      []toolkit.Param `json:"params,omitempty"`
}

// handleListTools returns a handler that lists the registered tools.
// GET /api/v1/tools
func handleListTools(registry *toolkit.Registry, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tools := registry.List()
		resp := make([]toolResponse, len(tools))
		for i, t := range tools {
			resp[i] = toolResponse{
				Name:        t.Name(),
				Description: t.Description(),
				Params:      toolkit.ParamsOf(t),
			}
		}
		logger.Debug("tools listed", "count", len(resp))
		writeJSON(w, map[string]interface{}{
			"tools": resp,
			"count": len(resp),
		}, http.StatusOK)
	})
}

// handleInvokeTool returns a handler that runs a tool synchronously.
// POST /api/v1/tools/{name}
// The request body is the tool's JSON input; the response body is its envelope.
func handleInvokeTool(registry *toolkit.Registry, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")

		input, err := readInput(w, r)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		inv := registry.Invoke(r.Context(), name, input)

		status := http.StatusOK
		if inv.Code == toolkit.CodeUnknownTool {
			status = http.StatusNotFound
		}
		logger.Debug("tool invoked over HTTP",
			"tool", name,
			"invocation_id", inv.ID,
			"status", inv.Status,
		)

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Invocation-ID", inv.ID)
		w.WriteHeader(status)
		io.WriteString(w, inv.Output)
	})
}

// invocationResponse is the JSON response format for a stored invocation.
type invocationResponse struct {
	ID         string          `json:"id"`
	Tool       string          `json:"tool"`
	Status     string          `json:"status"`
	Code       *string         `json:"code,omitempty"`
	TxID       *string         `json:"tx_id,omitempty"`
	Output     json.RawMessage `json:"output"`
	StartedAt  time.Time       `json:"started_at"`
	DurationMS int64           `json:"duration_ms"`
}

// invocationToResponse converts a stored Invocation to a response format.
func invocationToResponse(inv *db.Invocation) invocationResponse {
	output := json.RawMessage(inv.Output)
	if !json.Valid(output) {
		encoded, _ := json.Marshal(inv.Output)
		output = encoded
	}
	return invocationResponse{
		ID:         inv.ID,
		Tool:       inv.Tool,
		Status:     inv.Status,
		Code:       inv.Code,
		TxID:       inv.TxID,
		Output:     output,
		StartedAt:  inv.StartedAt,
		DurationMS: inv.Duration.Milliseconds(),
	}
}

// handleListInvocations returns a handler that lists recorded tool invocations.
// GET /api/v1/invocations?tool=NAME&limit=N&offset=N
func handleListInvocations(store Store, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			writeError(w, "invocation log not configured", http.StatusServiceUnavailable)
			return
		}

		query := r.URL.Query()
		limit, err := parseBoundedInt(query.Get("limit"), 100, 1, maxListLimit, "limit")
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		offset, err := parseBoundedInt(query.Get("offset"), 0, 0, -1, "offset")
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		tool := query.Get("tool")
		invocations, err := store.ListInvocations(r.Context(), db.ListInvocationsParams{
			Tool:   tool,
			Limit:  int32(limit),
			Offset: int32(offset),
		})
		if err != nil {
			logger.Error("failed to list invocations", "tool", tool, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		resp := make([]invocationResponse, len(invocations))
		for i := range invocations {
			resp[i] = invocationToResponse(invocations[i])
		}

		writeJSON(w, map[string]interface{}{
			"invocations": resp,
			"count":       len(resp),
			"limit":       limit,
			"offset":      offset,
		}, http.StatusOK)
	})
}

// handleStartExecution returns a handler that starts a durable tool execution.
// POST /api/v1/tools/{name}/async
func handleStartExecution(registry *toolkit.Registry, executor ToolExecutor, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		if _, ok := registry.Get(name); !ok {
			writeError(w, fmt.Sprintf("unknown tool: %s", name), http.StatusNotFound)
			return
		}

		input, err := readInput(w, r)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		workflowID, err := executor.StartToolExecution(r.Context(), name, input)
		if err != nil {
			logger.Error("failed to start tool execution", "tool", name, "error", err)
			writeError(w, "failed to start execution", http.StatusInternalServerError)
			return
		}

		logger.Info("tool execution started", "tool", name, "workflow_id", workflowID)
		writeJSON(w, map[string]string{
			"workflow_id": workflowID,
			"tool":        name,
			"status_url":  "/api/v1/executions/" + workflowID,
		}, http.StatusAccepted)
	})
}

// handleGetExecution returns a handler that reports a durable tool execution.
// GET /api/v1/executions/{id}
func handleGetExecution(executor ToolExecutor, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		exec, err := executor.GetExecution(r.Context(), id)
		if err != nil {
			var notFound *serviceerror.NotFound
			if errors.As(err, &notFound) {
				writeError(w, "execution not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to get execution", "workflow_id", id, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, exec, http.StatusOK)
	})
}

// readInput reads the tool input from the request body. An empty body is "{}".
func readInput(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return "", fmt.Errorf("request body too large")
		}
		return "", fmt.Errorf("failed to read request body")
	}
	if len(body) == 0 {
		return "{}", nil
	}
	return string(body), nil
}

// parseBoundedInt parses a query parameter. hi < 0 means unbounded.
func parseBoundedInt(raw string, def, lo, hi int, name string) (int, error) {
	if raw == "" {
		return def, nil
	}
	var v int
	if _, err := fmt.Sscanf(raw, "%d", &v); err != nil {
		return 0, fmt.Errorf("invalid %s parameter: must be an integer", name)
	}
	if v < lo {
		return 0, fmt.Errorf("%s must be at least %d", name, lo)
	}
	if hi >= 0 && v > hi {
		return 0, fmt.Errorf("%s cannot exceed %d", name, hi)
	}
	return v, nil
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

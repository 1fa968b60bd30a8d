package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/api/serviceerror"

	"github.com/brojonat/solkit/service/config"
	"github.com/brojonat/solkit/service/db"
	"github.com/brojonat/solkit/service/temporal"
	"github.com/brojonat/solkit/service/toolkit"
)

type stubTool struct {
	name   string
	output string
	calls  []string
}

func (s *stubTool) Name() string        { return s.name }
func (s *stubTool) Description() string { return "stub " + s.name }
func (s *stubTool) Params() []toolkit.Param {
	return []toolkit.Param{{Name: "text", Type: "string", Required: true}}
}
func (s *stubTool) Call(ctx context.Context, input string) string {
	s.calls = append(s.calls, input)
	return s.output
}

// memStore is an in-memory Store.
type memStore struct {
	mu          sync.Mutex
	invocations []*db.Invocation
	messages    map[string][]*db.ChatMessage
	err         error
	lastList    db.ListInvocationsParams
}

func newMemStore() *memStore {
	return &memStore{messages: make(map[string][]*db.ChatMessage)}
}

func (s *memStore) ListInvocations(ctx context.Context, params db.ListInvocationsParams) ([]*db.Invocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastList = params
	if s.err != nil {
		return nil, s.err
	}
	var out []*db.Invocation
	for _, inv := range s.invocations {
		if params.Tool == "" || inv.Tool == params.Tool {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (s *memStore) AppendMessage(ctx context.Context, params db.AppendMessageParams) (*db.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	msg := &db.ChatMessage{
		ID:        uuid.NewString(),
		ChatID:    params.ChatID,
		Role:      params.Role,
		Content:   params.Content,
		CreatedAt: time.Now(),
	}
	s.messages[params.ChatID] = append(s.messages[params.ChatID], msg)
	return msg, nil
}

func (s *memStore) ListMessages(ctx context.Context, chatID string, limit int32) ([]*db.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	msgs := s.messages[chatID]
	if int(limit) < len(msgs) {
		msgs = msgs[len(msgs)-int(limit):]
	}
	return append([]*db.ChatMessage(nil), msgs...), nil
}

type mockExecutor struct {
	mock.Mock
}

func (m *mockExecutor) StartToolExecution(ctx context.Context, tool, input string) (string, error) {
	args := m.Called(ctx, tool, input)
	return args.String(0), args.Error(1)
}

func (m *mockExecutor) GetExecution(ctx context.Context, id string) (*temporal.Execution, error) {
	args := m.Called(ctx, id)
	if exec := args.Get(0); exec != nil {
		return exec.(*temporal.Execution), args.Error(1)
	}
	return nil, args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestHandler builds the full routed handler. store and executor may be nil.
func newTestHandler(t *testing.T, store Store, executor ToolExecutor, tools ...toolkit.Tool) http.Handler {
	t.Helper()
	reg := toolkit.NewRegistry(testLogger())
	require.NoError(t, reg.Register(tools...))

	s := New(":0", &config.Config{MaxChatMessages: 50}, reg, store, executor, nil, nil, testLogger())
	require.NoError(t, s.WithTemplates())
	return s.Handler()
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}

func TestListTools(t *testing.T) {
	h := newTestHandler(t, nil, nil, &stubTool{name: "b"}, &stubTool{name: "a"})

	rec := do(h, http.MethodGet, "/api/v1/tools", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(2), body["count"])
	tools := body["tools"].([]any)
	first := tools[0].(map[string]any)
	assert.Equal(t, "a", first["name"])
	assert.Len(t, first["params"], 1)
}

func TestInvokeTool(t *testing.T) {
	echo := &stubTool{name: "echo", output: `{"status":"success","message":"ok","txId":"sig"}`}
	h := newTestHandler(t, nil, nil, echo)

	tests := []struct {
		name           string
		target         string
		body           string
		expectedStatus int
		check          func(t *testing.T, rec *httptest.ResponseRecorder)
	}{
		{
			name:           "success returns the envelope",
			target:         "/api/v1/tools/echo",
			body:           `{"text":"hi"}`,
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.JSONEq(t, echo.output, rec.Body.String())
				assert.NotEmpty(t, rec.Header().Get("X-Invocation-ID"))
			},
		},
		{
			name:           "unknown tool",
			target:         "/api/v1/tools/missing",
			body:           `{}`,
			expectedStatus: http.StatusNotFound,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				body := decodeBody(t, rec)
				assert.Equal(t, "error", body["status"])
				assert.Equal(t, toolkit.CodeUnknownTool, body["code"])
			},
		},
		{
			name:           "body too large",
			target:         "/api/v1/tools/echo",
			body:           `{"text":"` + strings.Repeat("A", 2*maxRequestBodySize) + `"}`,
			expectedStatus: http.StatusBadRequest,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Contains(t, rec.Body.String(), "request body too large")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, http.MethodPost, tt.target, tt.body)
			assert.Equal(t, tt.expectedStatus, rec.Code)
			tt.check(t, rec)
		})
	}
}

func TestInvokeTool_EmptyBody(t *testing.T) {
	echo := &stubTool{name: "echo", output: `{"status":"success","message":"ok"}`}
	h := newTestHandler(t, nil, nil, echo)

	rec := do(h, http.MethodPost, "/api/v1/tools/echo", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, echo.calls, 1)
	assert.Equal(t, "{}", echo.calls[0])
}

func TestListInvocations(t *testing.T) {
	t.Run("store not configured", func(t *testing.T) {
		h := newTestHandler(t, nil, nil)
		rec := do(h, http.MethodGet, "/api/v1/invocations", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	store := newMemStore()
	txID := "sig"
	store.invocations = []*db.Invocation{
		{ID: "1", Tool: "deploy_token", Output: `{"status":"success","txId":"sig"}`, Status: "success", TxID: &txID, Duration: 1500 * time.Millisecond},
		{ID: "2", Tool: "sanctum_add_liquidity", Output: "not json", Status: "error"},
	}
	h := newTestHandler(t, store, nil)

	t.Run("filters by tool", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/api/v1/invocations?tool=deploy_token&limit=10&offset=5", "")
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		assert.Equal(t, float64(1), body["count"])
		inv := body["invocations"].([]any)[0].(map[string]any)
		assert.Equal(t, "sig", inv["tx_id"])
		assert.Equal(t, float64(1500), inv["duration_ms"])
		assert.Equal(t, "success", inv["output"].(map[string]any)["status"])

		assert.Equal(t, int32(10), store.lastList.Limit)
		assert.Equal(t, int32(5), store.lastList.Offset)
	})

	t.Run("non-JSON output is quoted", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/api/v1/invocations?tool=sanctum_add_liquidity", "")
		require.Equal(t, http.StatusOK, rec.Code)
		inv := decodeBody(t, rec)["invocations"].([]any)[0].(map[string]any)
		assert.Equal(t, "not json", inv["output"])
	})

	for _, q := range []string{"limit=0", "limit=1001", "limit=abc", "offset=-1"} {
		t.Run("rejects "+q, func(t *testing.T) {
			rec := do(h, http.MethodGet, "/api/v1/invocations?"+q, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	t.Run("store failure", func(t *testing.T) {
		failing := newMemStore()
		failing.err = errors.New("connection refused")
		rec := do(newTestHandler(t, failing, nil), http.MethodGet, "/api/v1/invocations", "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "connection refused")
	})
}

func TestAsyncExecution(t *testing.T) {
	executor := new(mockExecutor)
	h := newTestHandler(t, nil, executor, &stubTool{name: "deploy_token"})

	t.Run("start", func(t *testing.T) {
		executor.On("StartToolExecution", mock.Anything, "deploy_token", `{"name":"x"}`).
			Return("tool-deploy_token-abc", nil).Once()

		rec := do(h, http.MethodPost, "/api/v1/tools/deploy_token/async", `{"name":"x"}`)
		require.Equal(t, http.StatusAccepted, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "tool-deploy_token-abc", body["workflow_id"])
		assert.Equal(t, "/api/v1/executions/tool-deploy_token-abc", body["status_url"])
	})

	t.Run("start unknown tool", func(t *testing.T) {
		rec := do(h, http.MethodPost, "/api/v1/tools/missing/async", `{}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("start failure", func(t *testing.T) {
		executor.On("StartToolExecution", mock.Anything, "deploy_token", "{}").
			Return("", errors.New("temporal down")).Once()
		rec := do(h, http.MethodPost, "/api/v1/tools/deploy_token/async", "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("get completed", func(t *testing.T) {
		executor.On("GetExecution", mock.Anything, "wf-1").Return(&temporal.Execution{
			WorkflowID: "wf-1",
			Status:     "completed",
			Result:     &temporal.ExecuteToolResult{Tool: "deploy_token", Status: "success", TxID: "sig"},
		}, nil).Once()

		rec := do(h, http.MethodGet, "/api/v1/executions/wf-1", "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "completed", body["status"])
		assert.NotNil(t, body["result"])
	})

	t.Run("get not found", func(t *testing.T) {
		executor.On("GetExecution", mock.Anything, "wf-missing").
			Return(nil, fmt.Errorf("describe: %w", serviceerror.NewNotFound("workflow not found"))).Once()

		rec := do(h, http.MethodGet, "/api/v1/executions/wf-missing", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	executor.AssertExpectations(t)
}

func TestAsyncRoutesDisabledWithoutExecutor(t *testing.T) {
	h := newTestHandler(t, nil, nil, &stubTool{name: "deploy_token", output: `{"status":"success"}`})

	rec := do(h, http.MethodGet, "/api/v1/executions/wf-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatPage(t *testing.T) {
	store := newMemStore()
	h := newTestHandler(t, store, nil)

	t.Run("empty chat shows the greeting", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/chats/empty", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, rec.Body.String(), `data-testid="greeting"`)
	})

	t.Run("invalid status", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/chats/empty?status=thinking", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("repeat render is served from cache", func(t *testing.T) {
		_, err := store.AppendMessage(context.Background(), db.AppendMessageParams{ChatID: "c1", Role: "user", Content: "hello"})
		require.NoError(t, err)

		first := do(h, http.MethodGet, "/chats/c1?status=submitted", "")
		require.Equal(t, http.StatusOK, first.Code)
		assert.Equal(t, "miss", first.Header().Get("X-Render-Cache"))
		assert.Contains(t, first.Body.String(), `data-testid="thinking"`)
		assert.NotContains(t, first.Body.String(), `data-testid="greeting"`)

		second := do(h, http.MethodGet, "/chats/c1?status=submitted", "")
		assert.Equal(t, "hit", second.Header().Get("X-Render-Cache"))
		assert.Equal(t, first.Body.String(), second.Body.String())

		third := do(h, http.MethodGet, "/chats/c1?status=streaming", "")
		assert.Equal(t, "miss", third.Header().Get("X-Render-Cache"))
		assert.Contains(t, third.Body.String(), `data-loading="true"`)
	})

	t.Run("readonly viewer is rendered separately", func(t *testing.T) {
		_, err := store.AppendMessage(context.Background(), db.AppendMessageParams{ChatID: "c2", Role: "assistant", Content: "hi"})
		require.NoError(t, err)

		editable := do(h, http.MethodGet, "/chats/c2", "")
		require.Equal(t, http.StatusOK, editable.Code)
		assert.Contains(t, editable.Body.String(), `class="copy"`)

		readonly := do(h, http.MethodGet, "/chats/c2?readonly=true&artifact=true", "")
		require.Equal(t, http.StatusOK, readonly.Code)
		assert.Equal(t, "miss", readonly.Header().Get("X-Render-Cache"))
		assert.NotContains(t, readonly.Body.String(), `class="copy"`)
		assert.Contains(t, readonly.Body.String(), "messages-narrow")
	})
}

func TestAppendMessage(t *testing.T) {
	t.Run("store not configured", func(t *testing.T) {
		rec := do(newTestHandler(t, nil, nil), http.MethodPost, "/api/v1/chats/c1/messages", `{"role":"user","content":"hi"}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	store := newMemStore()
	h := newTestHandler(t, store, nil)

	tests := []struct {
		name           string
		body           string
		expectedStatus int
	}{
		{"valid user message", `{"role":"user","content":"hi"}`, http.StatusCreated},
		{"valid assistant message", `{"role":"assistant","content":"hello"}`, http.StatusCreated},
		{"malformed JSON", `{"role":`, http.StatusBadRequest},
		{"bad role", `{"role":"system","content":"x"}`, http.StatusBadRequest},
		{"blank content", `{"role":"user","content":"   "}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, http.MethodPost, "/api/v1/chats/c1/messages", tt.body)
			assert.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
		})
	}

	msgs, err := store.ListMessages(context.Background(), "c1", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "assistant", msgs[1].Role)
}

func TestCORSAndHealth(t *testing.T) {
	h := newTestHandler(t, nil, nil)

	rec := do(h, http.MethodOptions, "/api/v1/tools", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestStreamRoutesDisabledWithoutPublisher(t *testing.T) {
	h := newTestHandler(t, nil, nil)

	rec := do(h, http.MethodGet, "/api/v1/stream/tools", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

package toolkit

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brojonat/solkit/service/metrics"
)

// Invocation records one tool call through the registry.
type Invocation struct {
	ID        string        `json:"id"`
	Tool      string        `json:"tool"`
	Input     string        `json:"input"`
	Output    string        `json:"output"`
	Status    string        `json:"status"`
	Code      string        `json:"code,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Observer is notified after every invocation. It must not block for long.
type Observer func(ctx context.Context, inv Invocation)

// Registry holds the tools available to callers.
type Registry struct {
	mu        sync.RWMutex
	tools     map[string]Tool
	observers []Observer
	timeout   time.Duration
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithTimeout bounds every invocation.
func WithTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) { r.timeout = d }
}

// WithObserver adds an invocation observer.
func WithObserver(o Observer) RegistryOption {
	return func(r *Registry) { r.observers = append(r.observers, o) }
}

// WithMetrics records invocation counts and durations.
func WithMetrics(m *metrics.Metrics) RegistryOption {
	return func(r *Registry) { r.metrics = m }
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger, opts ...RegistryOption) *Registry {
	r := &Registry{
		tools:  make(map[string]Tool),
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds tools. Registering a duplicate name is an error.
func (r *Registry) Register(tools ...Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range tools {
		if _, exists := r.tools[t.Name()]; exists {
			return fmt.Errorf("tool %q already registered", t.Name())
		}
		r.tools[t.Name()] = t
	}
	return nil
}

// AddObserver adds an observer after construction.
func (r *Registry) AddObserver(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, o)
}

// Get returns the tool with the given name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns all tools sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Invoke calls the named tool and returns its envelope. It never panics.
func (r *Registry) Invoke(ctx context.Context, name, input string) Invocation {
	inv := Invocation{
		ID:        uuid.NewString(),
		Tool:      name,
		Input:     input,
		StartedAt: time.Now(),
	}

	tool, ok := r.Get(name)
	if !ok {
		inv.Output = ErrorJSON(&CodedError{Code: CodeUnknownTool, Err: fmt.Errorf("unknown tool: %s", name)}, CodeUnknownTool)
	} else {
		if r.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}
		inv.Output = r.call(ctx, tool, input)
	}
	inv.Duration = time.Since(inv.StartedAt)

	if env, err := ParseEnvelope(inv.Output); err == nil {
		inv.Status = env.Status
		inv.Code = env.Code
	} else {
		inv.Status = StatusError
		inv.Code = CodeUnknown
	}

	if r.metrics != nil {
		r.metrics.RecordToolInvocation(name, inv.Status, inv.Duration.Seconds())
	}
	r.logger.InfoContext(ctx, "tool invoked",
		"invocation_id", inv.ID,
		"tool", name,
		"status", inv.Status,
		"code", inv.Code,
		"duration", inv.Duration,
	)

	r.mu.RLock()
	observers := append([]Observer(nil), r.observers...)
	r.mu.RUnlock()
	for _, o := range observers {
		o(ctx, inv)
	}
	return inv
}

func (r *Registry) call(ctx context.Context, tool Tool, input string) (out string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.ErrorContext(ctx, "tool panicked", "tool", tool.Name(), "panic", rec)
			out = ErrorJSON(fmt.Errorf("tool panicked: %v", rec), CodeUnknown)
		}
	}()
	return tool.Call(ctx, input)
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/tariffsheriff/tradeassist/internal/domain/chat"
	"github.com/tariffsheriff/tradeassist/internal/port/tool"
	"github.com/tariffsheriff/tradeassist/internal/resilience"
)

// Registry holds the registered tools and guards each behind a health
// breaker. A tool that fails repeatedly is taken out of rotation until
// its cooldown passes, so one broken tool cannot drag every query down.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]tool.Tool
	order  []string
	health *resilience.Group
	log    *slog.Logger
	now    func() time.Time // for latency measurement in tests
}

// NewRegistry creates a registry whose tools share the given health
// breaker group.
func NewRegistry(health *resilience.Group, log *slog.Logger) *Registry {
	return &Registry{
		tools:  make(map[string]tool.Tool),
		health: health,
		log:    log,
		now:    time.Now,
	}
}

// Register adds a tool. Registering the same name twice is a wiring bug.
func (r *Registry) Register(t tool.Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := t.Name()
	if _, dup := r.tools[name]; dup {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	sort.Strings(r.order)
	return nil
}

// Definitions returns the model-facing definitions of every tool that is
// currently healthy, in stable name order.
func (r *Registry) Definitions() []chat.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]chat.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		if r.health.State(name) == resilience.StateOpen {
			continue
		}
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Names returns every registered tool name, healthy or not.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// IsAvailable reports whether the tool is registered and not cooling
// down after repeated failures.
func (r *Registry) IsAvailable(name string) bool {
	r.mu.RLock()
	_, registered := r.tools[name]
	r.mu.RUnlock()
	return registered && r.health.State(name) != resilience.StateOpen
}

// Health snapshots the breaker state of every registered tool.
func (r *Registry) Health() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.order))
	for _, name := range r.order {
		out[name] = r.health.State(name).String()
	}
	return out
}

// Execute validates the call against the tool's schema and runs it
// through the tool's health breaker. Soft failures (the tool ran but
// found nothing) count as healthy executions.
func (r *Registry) Execute(ctx context.Context, call chat.ToolCall) (chat.ToolResult, error) {
	r.mu.RLock()
	t, ok := r.tools[call.Name]
	r.mu.RUnlock()
	if !ok {
		return chat.ToolResult{}, chat.NewError(chat.KindToolExecution,
			fmt.Sprintf("model selected unknown tool %q", call.Name))
	}

	if err := validateArgs(t.Definition(), call.Args); err != nil {
		return chat.ToolResult{}, err
	}

	if !r.health.Allow(call.Name) {
		return chat.ToolResult{}, chat.NewError(chat.KindServiceUnavailable,
			fmt.Sprintf("tool %q is cooling down after repeated failures", call.Name))
	}

	start := r.now()
	result, err := t.Execute(ctx, call)
	elapsed := r.now().Sub(start)

	if err != nil {
		r.health.RecordFailure(call.Name)
		r.log.Warn("tool execution failed",
			"tool", call.Name,
			"latency_ms", elapsed.Milliseconds(),
			"error", err)
		return chat.ToolResult{}, chat.WrapError(chat.KindToolExecution,
			fmt.Sprintf("tool %q failed", call.Name), err)
	}

	r.health.RecordSuccess(call.Name)
	result.ToolName = call.Name
	result.Latency = elapsed
	r.log.Debug("tool executed",
		"tool", call.Name,
		"success", result.Success,
		"latency_ms", elapsed.Milliseconds())
	return result, nil
}

// validateArgs checks required parameters and coarse types before the
// tool runs, so tools can trust their inputs.
func validateArgs(def chat.ToolDefinition, args map[string]any) error {
	for _, p := range def.Parameters {
		v, present := args[p.Name]
		if !present {
			if p.Required {
				return chat.NewError(chat.KindValidation,
					fmt.Sprintf("tool %q requires argument %q", def.Name, p.Name))
			}
			continue
		}
		if !typeMatches(p.Type, v) {
			return chat.NewError(chat.KindValidation,
				fmt.Sprintf("tool %q argument %q must be %s", def.Name, p.Name, p.Type))
		}
	}
	return nil
}

func typeMatches(want string, v any) bool {
	switch want {
	case "string":
		_, ok := v.(string)
		return ok
	case "number", "integer":
		// JSON numbers decode as float64.
		_, ok := v.(float64)
		return ok
	case "boolean":
		_, ok := v.(bool)
		return ok
	default:
		return true
	}
}

// Package dispatch provides a reference action dispatcher for the loop: a
// registry of per-type handlers honoring the per-action timeout, with panics
// and timeouts normalized into error-status results. Callers with their own
// dispatch infrastructure implement the loop's dispatcher interface directly
// and skip this package.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jeeves-cluster-organization/actengine/actcore/act"
)

// ActionHandler executes one action and returns its result text.
type ActionHandler func(ctx context.Context, action act.ActionSpec) (string, error)

// HandlerDefinition defines an action type's metadata and handler.
type HandlerDefinition struct {
	Type        string
	Description string
	Handler     ActionHandler
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry dispatches actions to registered handlers by action type.
// Thread-safe.
type Registry struct {
	perActionTimeout time.Duration

	mu       sync.RWMutex
	handlers map[string]*HandlerDefinition
}

// NewRegistry creates a registry enforcing the given per-action timeout.
func NewRegistry(perActionTimeout time.Duration) *Registry {
	return &Registry{
		perActionTimeout: perActionTimeout,
		handlers:         make(map[string]*HandlerDefinition),
	}
}

// Register registers a handler for an action type.
func (r *Registry) Register(def *HandlerDefinition) error {
	if def.Type == "" {
		return fmt.Errorf("action type is required")
	}
	if def.Handler == nil {
		return fmt.Errorf("handler is required for '%s'", def.Type)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[def.Type] = def
	return nil
}

// Has checks if a handler is registered for an action type.
func (r *Registry) Has(actionType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.handlers[actionType]
	return exists
}

// List returns all registered action types.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.handlers))
	for actionType := range r.handlers {
		types = append(types, actionType)
	}
	return types
}

// =============================================================================
// DISPATCH
// =============================================================================

// ExecuteActions dispatches a plan in order and returns one result per
// action. Handler failures, timeouts, and panics become error-status
// results; an unregistered action type is a dispatcher fault and returns
// an error with no results.
func (r *Registry) ExecuteActions(ctx context.Context, topic string, actions []act.ActionSpec) ([]act.ActionResult, error) {
	results := make([]act.ActionResult, 0, len(actions))
	for _, action := range actions {
		result, err := r.DispatchAction(ctx, topic, action)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// DispatchAction dispatches a single action, used for the whole plan by
// ExecuteActions and directly for critic retries.
func (r *Registry) DispatchAction(ctx context.Context, topic string, action act.ActionSpec) (act.ActionResult, error) {
	r.mu.RLock()
	def, exists := r.handlers[action.Type]
	r.mu.RUnlock()

	if !exists {
		return act.ActionResult{}, fmt.Errorf("no handler registered for action type '%s'", action.Type)
	}

	actionCtx, cancel := context.WithTimeout(ctx, r.perActionTimeout)
	defer cancel()

	start := time.Now()
	text, err := r.runHandler(actionCtx, def, action)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		return act.ActionResult{
			ActionType:    action.Type,
			Status:        act.ActionStatusError,
			Result:        err.Error(),
			ExecutionTime: elapsed,
		}, nil
	}
	return act.ActionResult{
		ActionType:    action.Type,
		Status:        act.ActionStatusSuccess,
		Result:        text,
		ExecutionTime: elapsed,
	}, nil
}

// runHandler invokes the handler on its own goroutine so the timeout holds
// even against handlers that ignore their context. Panics surface as errors.
func (r *Registry) runHandler(ctx context.Context, def *HandlerDefinition, action act.ActionSpec) (string, error) {
	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- outcome{err: fmt.Errorf("action '%s' panicked: %v", action.Type, rec)}
			}
		}()
		text, err := def.Handler(ctx, action)
		done <- outcome{text: text, err: err}
	}()

	select {
	case out := <-done:
		return out.text, out.err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("action '%s' timed out after %s", action.Type, r.perActionTimeout)
		}
		return "", ctx.Err()
	}
}

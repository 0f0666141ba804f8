// Package loop provides the orchestrator for bounded action runs: each run
// repeatedly plans, guards against repetition, executes, optionally verifies,
// accrues fatigue, and decides when to stop. The loop is the single authority
// for this behavior; callers inject the capabilities it coordinates.
package loop

import (
	"context"
	"time"

	"github.com/jeeves-cluster-organization/actengine/actcore/act"
)

// =============================================================================
// COLLABORATOR CONTRACTS
// =============================================================================

// Logger is the interface for logging.
type Logger interface {
	Info(msg string, fields ...any)
	Debug(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
	Bind(fields ...any) Logger
}

// ChatMessage is one prior conversation turn handed to the plan provider.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PlanRequest is the rendered context for one plan-generation call. The loop
// fills ActHistoryText each iteration; everything else passes through from
// RunParams untouched.
type PlanRequest struct {
	PromptTemplate string
	OriginalPrompt string
	Classification string
	ChatHistory    []ChatMessage
	ActHistoryText string
	Extras         map[string]any
}

// PlanProvider is the language-model capability: it turns the rendered
// context into a candidate action plan. Failures are load-bearing and
// propagate out of Run.
type PlanProvider interface {
	GeneratePlan(ctx context.Context, req PlanRequest) (*act.Plan, error)
}

// Dispatcher executes action plans. ExecuteActions runs one iteration's plan
// in order; DispatchAction re-runs a single corrected action for the critic.
// Implementations own the per-action timeout. Failures are load-bearing and
// propagate out of Run.
type Dispatcher interface {
	ExecuteActions(ctx context.Context, topic string, actions []act.ActionSpec) ([]act.ActionResult, error)
	DispatchAction(ctx context.Context, topic string, action act.ActionSpec) (act.ActionResult, error)
}

// Governor is the continuation authority for one run: it admits iterations,
// keeps the fatigue ledger, and predicts next-iteration utilization. A fresh
// governor is created per run; NewGovernor on the orchestrator overrides the
// default construction.
type Governor interface {
	CanContinue() (bool, act.TerminationReason)
	AccumulateFatigue(results []act.ActionResult, iteration int) float64
	ChargeCriticFatigue(cost float64) float64
	PredictedUtilization(planned []act.ActionSpec, iteration int) float64
	EstimateNetValue(results []act.ActionResult, iteration int) float64
	Fatigue() float64
	FatigueBudget() float64
	FatigueGrowthRate() float64
}

// OfferCard is one pending deferred offer for a topic.
type OfferCard struct {
	OfferID     string `json:"offer_id"`
	DisplayName string `json:"display_name"`
	CardType    string `json:"card_type,omitempty"`
}

// OfferStore lists deferred offers pending for a topic. Consulted only when
// deferred card context is enabled; failures skip the augmentation.
type OfferStore interface {
	ListOffers(ctx context.Context, topic string) ([]OfferCard, error)
}

// SkillRecorder receives executed action outcomes for adaptive ranking
// elsewhere in the system. Failures are swallowed.
type SkillRecorder interface {
	RecordOutcome(ctx context.Context, topic string, result act.ActionResult) error
}

// IterationCallback is polled once per iteration, after the iteration log is
// written. The state is the live run state and must not be mutated. A
// non-empty returned reason ends the run only when no reason was decided
// internally; errors and panics are logged and ignored.
type IterationCallback func(state *act.LoopState, iterationStart time.Time, executed []act.ActionResult, reason act.TerminationReason) (act.TerminationReason, error)

// nopLogger backs the orchestrator when the caller supplies no logger.
type nopLogger struct{}

func (nopLogger) Info(msg string, fields ...any)  {}
func (nopLogger) Debug(msg string, fields ...any) {}
func (nopLogger) Warn(msg string, fields ...any)  {}
func (nopLogger) Error(msg string, fields ...any) {}
func (n nopLogger) Bind(fields ...any) Logger     { return n }

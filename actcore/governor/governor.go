// Package governor provides continuation admission for the action loop -
// fatigue accounting against a budget, wall-clock and iteration ceilings,
// and next-iteration cost prediction.
//
// The governor keeps its own ledger; the loop mirrors the fatigue total into
// its run state after every mutation. The only component other than the loop
// allowed to mutate the ledger is the critic, through ChargeCriticFatigue.
package governor

import (
	"math"
	"sync"
	"time"

	"github.com/jeeves-cluster-organization/actengine/actcore/act"
	"github.com/jeeves-cluster-organization/actengine/actcore/config"
)

// Logger interface for the governor.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Result-status value weights for net-value estimation.
const (
	successValue = 1.0
	errorValue   = -0.5
)

// =============================================================================
// BUDGET GOVERNOR
// =============================================================================

// BudgetGovernor tracks a monotonically increasing fatigue ledger against a
// configured budget and answers continuation checks. One instance serves one
// run; the iteration odometer advances on every AccumulateFatigue call.
//
// Thread-safe: the critic may charge fatigue from the loop goroutine while
// external observers read the ledger.
type BudgetGovernor struct {
	loopCfg *config.LoopConfig
	govCfg  *config.GovernorConfig
	logger  Logger

	startedAt time.Time

	mu                sync.RWMutex
	fatigue           float64
	iterationsStarted int
}

// NewBudgetGovernor creates a governor for one run. Nil configs fall back
// to defaults; a nil logger disables governor logging.
func NewBudgetGovernor(loopCfg *config.LoopConfig, govCfg *config.GovernorConfig, logger Logger) *BudgetGovernor {
	if loopCfg == nil {
		loopCfg = config.GetLoopConfig()
	}
	if govCfg == nil {
		govCfg = config.GetGovernorConfig()
	}
	return &BudgetGovernor{
		loopCfg:   loopCfg,
		govCfg:    govCfg,
		logger:    logger,
		startedAt: time.Now().UTC(),
	}
}

// CanContinue reports whether another iteration may start. On refusal the
// returned reason names the exhausted ceiling: fatigue first, then
// wall-clock, then the iteration cap.
func (g *BudgetGovernor) CanContinue() (bool, act.TerminationReason) {
	g.mu.RLock()
	fatigue := g.fatigue
	iterations := g.iterationsStarted
	g.mu.RUnlock()

	if fatigue >= g.govCfg.FatigueBudget {
		g.refused(act.TerminationReasonFatigueExhausted, "fatigue", fatigue)
		return false, act.TerminationReasonFatigueExhausted
	}
	if elapsed := time.Since(g.startedAt); elapsed >= g.loopCfg.CumulativeTimeout() {
		g.refused(act.TerminationReasonCumulativeTimeout, "elapsed_seconds", elapsed.Seconds())
		return false, act.TerminationReasonCumulativeTimeout
	}
	if iterations >= g.loopCfg.MaxIterations {
		g.refused(act.TerminationReasonMaxIterations, "iterations", iterations)
		return false, act.TerminationReasonMaxIterations
	}
	return true, act.TerminationReasonNone
}

// AccumulateFatigue charges the ledger for one iteration's executed results
// and advances the iteration odometer. Injected advisories and critic audit
// entries are free. Returns the cost added.
func (g *BudgetGovernor) AccumulateFatigue(results []act.ActionResult, iteration int) float64 {
	cost := g.iterationCost(results, iteration)

	g.mu.Lock()
	g.fatigue += cost
	g.iterationsStarted++
	fatigue := g.fatigue
	g.mu.Unlock()

	if g.logger != nil {
		g.logger.Debug("fatigue_accumulated",
			"iteration", iteration,
			"cost_added", cost,
			"fatigue", fatigue,
			"budget", g.govCfg.FatigueBudget,
		)
	}
	return cost
}

// ChargeCriticFatigue adds a critic evaluation charge to the ledger without
// advancing the odometer. This is the single sanctioned mutation point for
// components other than the loop. Returns the new total.
func (g *BudgetGovernor) ChargeCriticFatigue(cost float64) float64 {
	g.mu.Lock()
	g.fatigue += cost
	fatigue := g.fatigue
	g.mu.Unlock()

	if g.logger != nil {
		g.logger.Debug("critic_fatigue_charged", "cost", cost, "fatigue", fatigue)
	}
	return fatigue
}

// PredictedUtilization returns the fraction of budget that would be consumed
// if the planned actions executed at the given iteration's growth factor.
func (g *BudgetGovernor) PredictedUtilization(planned []act.ActionSpec, iteration int) float64 {
	growth := g.growthFactor(iteration)
	predicted := 0.0
	for _, a := range planned {
		predicted += g.govCfg.CostFor(a.Type) * growth
	}

	g.mu.RLock()
	fatigue := g.fatigue
	g.mu.RUnlock()

	return (fatigue + predicted) / g.govCfg.FatigueBudget
}

// EstimateNetValue scores one iteration's results for telemetry: successes
// add value, errors subtract, and the iteration's fatigue cost (normalized
// by budget) is deducted. Purely advisory; never gates continuation.
func (g *BudgetGovernor) EstimateNetValue(results []act.ActionResult, iteration int) float64 {
	value := 0.0
	for _, r := range results {
		if r.IsAdvisory() || r.Status == act.ActionStatusCriticCorrection {
			continue
		}
		switch r.Status {
		case act.ActionStatusSuccess:
			value += successValue
		case act.ActionStatusError:
			value += errorValue
		}
	}
	return value - g.iterationCost(results, iteration)/g.govCfg.FatigueBudget
}

// =============================================================================
// READABLE FIELDS
// =============================================================================

// Fatigue returns the cumulative fatigue charged so far.
func (g *BudgetGovernor) Fatigue() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.fatigue
}

// FatigueBudget returns the per-run budget.
func (g *BudgetGovernor) FatigueBudget() float64 {
	return g.govCfg.FatigueBudget
}

// FatigueGrowthRate returns the per-iteration compounding factor.
func (g *BudgetGovernor) FatigueGrowthRate() float64 {
	return g.govCfg.FatigueGrowthRate
}

// IterationsStarted returns the odometer reading.
func (g *BudgetGovernor) IterationsStarted() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.iterationsStarted
}

// Utilization returns fatigue as a fraction of budget.
func (g *BudgetGovernor) Utilization() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.fatigue / g.govCfg.FatigueBudget
}

// =============================================================================
// SNAPSHOT EVALUATION
// =============================================================================

// EvaluateState answers the continuation question for a restored state
// snapshot without constructing a run-scoped ledger. Subprocess callers
// restore a state dict and ask whether the next iteration would be admitted
// under the given tables. Ceiling order matches CanContinue.
func EvaluateState(state *act.LoopState, loopCfg *config.LoopConfig, govCfg *config.GovernorConfig) (bool, act.TerminationReason) {
	if loopCfg == nil {
		loopCfg = config.GetLoopConfig()
	}
	if govCfg == nil {
		govCfg = config.GetGovernorConfig()
	}

	if state.Fatigue >= govCfg.FatigueBudget {
		return false, act.TerminationReasonFatigueExhausted
	}
	if elapsed := time.Since(state.StartedAt); elapsed >= loopCfg.CumulativeTimeout() {
		return false, act.TerminationReasonCumulativeTimeout
	}
	if state.IterationNumber >= loopCfg.MaxIterations {
		return false, act.TerminationReasonMaxIterations
	}
	return true, act.TerminationReasonNone
}

// =============================================================================
// INTERNAL
// =============================================================================

// iterationCost sums the growth-scaled cost of dispatched results. Injected
// advisories and critic audit entries are free; critic evaluations are
// charged separately through ChargeCriticFatigue.
func (g *BudgetGovernor) iterationCost(results []act.ActionResult, iteration int) float64 {
	growth := g.growthFactor(iteration)
	cost := 0.0
	for _, r := range results {
		if r.IsAdvisory() || r.Status == act.ActionStatusCriticCorrection {
			continue
		}
		cost += g.govCfg.CostFor(r.ActionType) * growth
	}
	return cost
}

func (g *BudgetGovernor) growthFactor(iteration int) float64 {
	if iteration <= 0 {
		return 1.0
	}
	return math.Pow(g.govCfg.FatigueGrowthRate, float64(iteration))
}

func (g *BudgetGovernor) refused(reason act.TerminationReason, key string, value any) {
	if g.logger != nil {
		g.logger.Warn("continuation_refused", "reason", string(reason), key, value)
	}
}

package governor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeeves-cluster-organization/actengine/actcore/act"
	"github.com/jeeves-cluster-organization/actengine/actcore/config"
)

func testConfigs() (*config.LoopConfig, *config.GovernorConfig) {
	loopCfg := config.DefaultLoopConfig()
	govCfg := config.DefaultGovernorConfig()
	govCfg.FatigueGrowthRate = 1.0
	return loopCfg, govCfg
}

func successResult(actionType string) act.ActionResult {
	return act.ActionResult{ActionType: actionType, Status: act.ActionStatusSuccess, Result: "ok"}
}

// =============================================================================
// CONTINUATION TESTS
// =============================================================================

func TestCanContinueFreshGovernor(t *testing.T) {
	loopCfg, govCfg := testConfigs()
	g := NewBudgetGovernor(loopCfg, govCfg, nil)

	ok, reason := g.CanContinue()
	assert.True(t, ok)
	assert.Equal(t, act.TerminationReasonNone, reason)
}

func TestCanContinueRefusesAtIterationCap(t *testing.T) {
	loopCfg, govCfg := testConfigs()
	loopCfg.MaxIterations = 2
	g := NewBudgetGovernor(loopCfg, govCfg, nil)

	results := []act.ActionResult{successResult("web_search")}

	g.AccumulateFatigue(results, 0)
	ok, _ := g.CanContinue()
	require.True(t, ok, "one iteration consumed out of two")

	g.AccumulateFatigue(results, 1)
	ok, reason := g.CanContinue()
	assert.False(t, ok)
	assert.Equal(t, act.TerminationReasonMaxIterations, reason)
}

func TestCanContinueRefusesWhenFatigueSpent(t *testing.T) {
	loopCfg, govCfg := testConfigs()
	govCfg.FatigueBudget = 2.0
	g := NewBudgetGovernor(loopCfg, govCfg, nil)

	g.AccumulateFatigue([]act.ActionResult{
		successResult("a"),
		successResult("b"),
	}, 0)

	ok, reason := g.CanContinue()
	assert.False(t, ok)
	assert.Equal(t, act.TerminationReasonFatigueExhausted, reason)
}

func TestCanContinueRefusesAfterWallClock(t *testing.T) {
	loopCfg, govCfg := testConfigs()
	loopCfg.CumulativeTimeoutSeconds = 0.05
	g := NewBudgetGovernor(loopCfg, govCfg, nil)
	g.startedAt = time.Now().Add(-time.Second)

	ok, reason := g.CanContinue()
	assert.False(t, ok)
	assert.Equal(t, act.TerminationReasonCumulativeTimeout, reason)
}

func TestFatigueTakesPrecedenceOverIterations(t *testing.T) {
	loopCfg, govCfg := testConfigs()
	loopCfg.MaxIterations = 1
	govCfg.FatigueBudget = 0.5
	g := NewBudgetGovernor(loopCfg, govCfg, nil)

	// One iteration exhausts both the odometer and the budget.
	g.AccumulateFatigue([]act.ActionResult{successResult("a")}, 0)

	_, reason := g.CanContinue()
	assert.Equal(t, act.TerminationReasonFatigueExhausted, reason)
}

// =============================================================================
// FATIGUE ACCOUNTING TESTS
// =============================================================================

func TestAccumulateFatigueChargesCostTable(t *testing.T) {
	loopCfg, govCfg := testConfigs()
	govCfg.ActionCosts = map[string]float64{"web_search": 2.0}
	govCfg.DefaultActionCost = 0.5
	g := NewBudgetGovernor(loopCfg, govCfg, nil)

	cost := g.AccumulateFatigue([]act.ActionResult{
		successResult("web_search"),
		successResult("unlisted_type"),
	}, 0)

	assert.Equal(t, 2.5, cost)
	assert.Equal(t, 2.5, g.Fatigue())
	assert.Equal(t, 1, g.IterationsStarted())
}

func TestAccumulateFatigueCompoundsWithGrowthRate(t *testing.T) {
	loopCfg, govCfg := testConfigs()
	govCfg.FatigueGrowthRate = 2.0
	g := NewBudgetGovernor(loopCfg, govCfg, nil)

	results := []act.ActionResult{successResult("a")}

	assert.Equal(t, 1.0, g.AccumulateFatigue(results, 0), "iteration 0 at base cost")
	assert.Equal(t, 2.0, g.AccumulateFatigue(results, 1))
	assert.Equal(t, 4.0, g.AccumulateFatigue(results, 2))
	assert.Equal(t, 7.0, g.Fatigue())
	assert.Equal(t, 3, g.IterationsStarted())
}

func TestAccumulateFatigueSkipsAdvisoriesAndAudits(t *testing.T) {
	loopCfg, govCfg := testConfigs()
	g := NewBudgetGovernor(loopCfg, govCfg, nil)

	cost := g.AccumulateFatigue([]act.ActionResult{
		successResult("web_search"),
		act.NewSystemAdvisory("budget warning"),
		act.NewCorrectionAudit("web_search", "narrow the query"),
	}, 0)

	assert.Equal(t, 1.0, cost, "only the dispatched action costs")
}

func TestAccumulateFatigueErrorsStillCost(t *testing.T) {
	loopCfg, govCfg := testConfigs()
	g := NewBudgetGovernor(loopCfg, govCfg, nil)

	cost := g.AccumulateFatigue([]act.ActionResult{
		{ActionType: "web_search", Status: act.ActionStatusError, Result: "boom"},
	}, 0)

	assert.Equal(t, 1.0, cost)
}

func TestChargeCriticFatigue(t *testing.T) {
	loopCfg, govCfg := testConfigs()
	g := NewBudgetGovernor(loopCfg, govCfg, nil)

	total := g.ChargeCriticFatigue(0.3)
	assert.Equal(t, 0.3, total)
	total = g.ChargeCriticFatigue(0.3)
	assert.InDelta(t, 0.6, total, 1e-9)

	assert.Zero(t, g.IterationsStarted(), "critic charges never advance the odometer")
}

// =============================================================================
// PREDICTION AND NET VALUE TESTS
// =============================================================================

func TestPredictedUtilization(t *testing.T) {
	loopCfg, govCfg := testConfigs()
	govCfg.FatigueBudget = 10.0
	g := NewBudgetGovernor(loopCfg, govCfg, nil)
	g.ChargeCriticFatigue(4.0) // seed the ledger

	planned := []act.ActionSpec{{Type: "a"}, {Type: "b"}}

	// (4 existing + 2 planned) / 10
	assert.InDelta(t, 0.6, g.PredictedUtilization(planned, 0), 1e-9)
}

func TestPredictedUtilizationScalesWithGrowth(t *testing.T) {
	loopCfg, govCfg := testConfigs()
	govCfg.FatigueBudget = 10.0
	govCfg.FatigueGrowthRate = 2.0
	g := NewBudgetGovernor(loopCfg, govCfg, nil)

	planned := []act.ActionSpec{{Type: "a"}}

	// 1 * 2^3 / 10
	assert.InDelta(t, 0.8, g.PredictedUtilization(planned, 3), 1e-9)
}

func TestEstimateNetValue(t *testing.T) {
	loopCfg, govCfg := testConfigs()
	govCfg.FatigueBudget = 10.0
	g := NewBudgetGovernor(loopCfg, govCfg, nil)

	results := []act.ActionResult{
		successResult("a"),
		{ActionType: "b", Status: act.ActionStatusError},
		act.NewSystemAdvisory("free"),
	}

	// +1.0 success - 0.5 error - (2 cost / 10 budget)
	assert.InDelta(t, 0.3, g.EstimateNetValue(results, 0), 1e-9)
}

// =============================================================================
// READABLE FIELD TESTS
// =============================================================================

func TestReadableFields(t *testing.T) {
	loopCfg, govCfg := testConfigs()
	govCfg.FatigueBudget = 8.0
	govCfg.FatigueGrowthRate = 1.25
	g := NewBudgetGovernor(loopCfg, govCfg, nil)

	assert.Equal(t, 8.0, g.FatigueBudget())
	assert.Equal(t, 1.25, g.FatigueGrowthRate())
	assert.Zero(t, g.Utilization())

	g.AccumulateFatigue([]act.ActionResult{successResult("a")}, 0)
	assert.InDelta(t, 0.125, g.Utilization(), 1e-9)
}

func TestNilConfigsFallBackToDefaults(t *testing.T) {
	g := NewBudgetGovernor(nil, nil, nil)

	assert.Equal(t, config.DefaultGovernorConfig().FatigueBudget, g.FatigueBudget())
	ok, _ := g.CanContinue()
	assert.True(t, ok)
}

// =============================================================================
// SNAPSHOT EVALUATION TESTS
// =============================================================================

func TestEvaluateStateAdmitsFreshState(t *testing.T) {
	loopCfg, govCfg := testConfigs()
	state := act.NewLoopState("topic", "session")

	ok, reason := EvaluateState(state, loopCfg, govCfg)
	assert.True(t, ok)
	assert.Equal(t, act.TerminationReasonNone, reason)
}

func TestEvaluateStateCeilings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*act.LoopState, *config.LoopConfig, *config.GovernorConfig)
		reason act.TerminationReason
	}{
		{
			name: "fatigue spent",
			mutate: func(s *act.LoopState, _ *config.LoopConfig, g *config.GovernorConfig) {
				g.FatigueBudget = 2.0
				s.Fatigue = 2.0
			},
			reason: act.TerminationReasonFatigueExhausted,
		},
		{
			name: "wall clock elapsed",
			mutate: func(s *act.LoopState, l *config.LoopConfig, _ *config.GovernorConfig) {
				l.CumulativeTimeoutSeconds = 0.05
				s.StartedAt = time.Now().UTC().Add(-time.Second)
			},
			reason: act.TerminationReasonCumulativeTimeout,
		},
		{
			name: "iteration cap",
			mutate: func(s *act.LoopState, l *config.LoopConfig, _ *config.GovernorConfig) {
				l.MaxIterations = 3
				s.IterationNumber = 3
			},
			reason: act.TerminationReasonMaxIterations,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loopCfg, govCfg := testConfigs()
			state := act.NewLoopState("topic", "session")
			tt.mutate(state, loopCfg, govCfg)

			ok, reason := EvaluateState(state, loopCfg, govCfg)
			assert.False(t, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestEvaluateStateMatchesLiveGovernorOrder(t *testing.T) {
	// Fatigue wins over the iteration cap when both are exhausted, exactly
	// as the run-scoped ledger decides it.
	loopCfg, govCfg := testConfigs()
	loopCfg.MaxIterations = 1
	govCfg.FatigueBudget = 0.5

	state := act.NewLoopState("topic", "session")
	state.Fatigue = 1.0
	state.IterationNumber = 1

	_, reason := EvaluateState(state, loopCfg, govCfg)
	assert.Equal(t, act.TerminationReasonFatigueExhausted, reason)
}

package act

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// LOOP STATE TESTS
// =============================================================================

func TestNewLoopState(t *testing.T) {
	state := NewLoopState("book a table", "session-1")

	assert.NotEmpty(t, state.LoopID)
	assert.Equal(t, "book a table", state.Topic)
	assert.Equal(t, "session-1", state.SessionID)
	assert.Equal(t, time.UTC, state.StartedAt.Location())
	assert.Zero(t, state.IterationNumber)
	assert.Zero(t, state.Fatigue)
	assert.Empty(t, state.ActHistory)

	other := NewLoopState("book a table", "session-1")
	assert.NotEqual(t, state.LoopID, other.LoopID, "each run gets a fresh id")
}

func TestObservePlanShape(t *testing.T) {
	state := NewLoopState("t", "s")

	// Single actions of the same type build a run.
	assert.Equal(t, 1, state.ObservePlanShape([]ActionSpec{{Type: "web_search", Query: "a"}}))
	assert.Equal(t, 2, state.ObservePlanShape([]ActionSpec{{Type: "web_search", Query: "b"}}))
	assert.Equal(t, 3, state.ObservePlanShape([]ActionSpec{{Type: "web_search", Query: "c"}}))

	// A different single type restarts the run at 1.
	assert.Equal(t, 1, state.ObservePlanShape([]ActionSpec{{Type: "memory"}}))
	assert.Equal(t, "memory", state.LastActionType)

	// Multi-action plans reset to 0.
	assert.Equal(t, 0, state.ObservePlanShape([]ActionSpec{{Type: "memory"}, {Type: "notify"}}))
	assert.Equal(t, 0, state.ConsecutiveSameAction)

	// After a reset a matching single action starts a new run at 1, not 2.
	assert.Equal(t, 1, state.ObservePlanShape([]ActionSpec{{Type: "memory"}}))
}

func TestResetRepetitionCounter(t *testing.T) {
	state := NewLoopState("t", "s")
	state.ObservePlanShape([]ActionSpec{{Type: "web_search"}})
	state.ObservePlanShape([]ActionSpec{{Type: "web_search"}})

	state.ResetRepetitionCounter()

	assert.Zero(t, state.ConsecutiveSameAction)
	assert.Equal(t, "web_search", state.LastActionType, "type memory survives the reset")
}

func TestPushWindowEntryEvictsOldest(t *testing.T) {
	state := NewLoopState("t", "s")

	for i, fp := range []string{"a", "b", "c", "d", "e"} {
		state.PushWindowEntry(WindowEntry{Fingerprint: fp, Types: map[string]bool{"web_search": true}})
		if i < repetitionWindowCap {
			assert.Len(t, state.Window, i+1)
		}
	}

	require.Len(t, state.Window, repetitionWindowCap)
	assert.Equal(t, "b", state.Window[0].Fingerprint, "oldest entry evicted")
	assert.Equal(t, "e", state.Window[3].Fingerprint)
}

func TestAppendHistory(t *testing.T) {
	state := NewLoopState("t", "s")
	state.AppendHistory(ActionResult{ActionType: "web_search", Status: ActionStatusSuccess})
	state.AppendHistory(
		NewSystemAdvisory("hint"),
		ActionResult{ActionType: "memory", Status: ActionStatusError},
	)

	require.Len(t, state.ActHistory, 3)
	assert.Equal(t, "web_search", state.ActHistory[0].ActionType)
	assert.Equal(t, SystemActionType, state.ActHistory[1].ActionType)
}

func TestLoopStateCloneIsDeep(t *testing.T) {
	conf := 0.7
	state := NewLoopState("t", "s")
	state.IterationNumber = 2
	state.Fatigue = 3.5
	state.AppendHistory(ActionResult{ActionType: "web_search", Status: ActionStatusSuccess, Confidence: &conf})
	state.IterationLogs = []IterationLog{{Iteration: 1, ActionTypes: []string{"web_search"}}}
	state.PushWindowEntry(WindowEntry{Fingerprint: "f", Types: map[string]bool{"web_search": true}})

	clone := state.Clone()
	clone.ActHistory[0].Result = "changed"
	*clone.ActHistory[0].Confidence = 0.1
	clone.IterationLogs[0].ActionTypes[0] = "changed"
	clone.Window[0].Types["memory"] = true
	clone.Fatigue = 99

	assert.Empty(t, state.ActHistory[0].Result)
	assert.Equal(t, 0.7, *state.ActHistory[0].Confidence)
	assert.Equal(t, []string{"web_search"}, state.IterationLogs[0].ActionTypes)
	assert.False(t, state.Window[0].Types["memory"])
	assert.Equal(t, 3.5, state.Fatigue)

	var nilState *LoopState
	assert.Nil(t, nilState.Clone())
}

// =============================================================================
// STATE DICT TESTS
// =============================================================================

func TestStateDictRoundTrip(t *testing.T) {
	conf := 0.8
	state := NewLoopState("plan dinner", "session-9")
	state.IterationNumber = 3
	state.Fatigue = 4.25
	state.ConsecutiveSameAction = 2
	state.LastActionType = "web_search"
	state.PivotHintInjected = true
	state.EscalationHintInjected = true
	state.BudgetWarningInjected = true
	state.AppendHistory(
		ActionResult{ActionType: "web_search", Status: ActionStatusSuccess, Result: "found it", ExecutionTime: 0.42, Confidence: &conf},
		NewSystemAdvisory("pivot"),
	)
	state.IterationLogs = []IterationLog{
		{
			Iteration:         1,
			StartedAt:         time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			DurationMS:        310,
			PlannedActions:    2,
			ActionTypes:       []string{"web_search", "memory"},
			ExecutedCount:     2,
			Confidence:        0.8,
			FingerprintDigest: 12345,
			FatigueAfter:      2.1,
			NetValue:          0.5,
		},
		{Iteration: 2, Skipped: true, TerminationReason: TerminationReasonMaxIterations},
	}
	state.PushWindowEntry(WindowEntry{
		Fingerprint: "web_search:weather",
		Types:       map[string]bool{"web_search": true},
	})

	restored := FromStateDict(state.ToStateDict())

	assert.Equal(t, state.LoopID, restored.LoopID)
	assert.Equal(t, state.Topic, restored.Topic)
	assert.Equal(t, state.SessionID, restored.SessionID)
	assert.True(t, state.StartedAt.Equal(restored.StartedAt))
	assert.Equal(t, state.IterationNumber, restored.IterationNumber)
	assert.Equal(t, state.Fatigue, restored.Fatigue)
	assert.Equal(t, state.ConsecutiveSameAction, restored.ConsecutiveSameAction)
	assert.Equal(t, state.LastActionType, restored.LastActionType)
	assert.True(t, restored.PivotHintInjected)
	assert.True(t, restored.EscalationHintInjected)
	assert.True(t, restored.BudgetWarningInjected)

	require.Len(t, restored.ActHistory, 2)
	assert.Equal(t, state.ActHistory[0], restored.ActHistory[0])
	assert.True(t, restored.ActHistory[1].IsAdvisory())

	require.Len(t, restored.IterationLogs, 2)
	assert.Equal(t, state.IterationLogs[0], restored.IterationLogs[0])
	assert.True(t, restored.IterationLogs[1].Skipped)
	assert.Equal(t, TerminationReasonMaxIterations, restored.IterationLogs[1].TerminationReason)

	require.Len(t, restored.Window, 1)
	assert.Equal(t, state.Window[0], restored.Window[0])
}

func TestFromStateDictToleratesJSONNumbers(t *testing.T) {
	// JSON unmarshaling produces float64 for every number.
	restored := FromStateDict(map[string]any{
		"loop_id":                 "abc",
		"iteration_number":        float64(4),
		"fatigue":                 float64(2),
		"consecutive_same_action": float64(1),
		"act_history": []any{
			map[string]any{
				"action_type":    "web_search",
				"status":         "success",
				"result":         "ok",
				"execution_time": float64(1),
				"confidence":     0.5,
			},
		},
	})

	assert.Equal(t, "abc", restored.LoopID)
	assert.Equal(t, 4, restored.IterationNumber)
	assert.Equal(t, 2.0, restored.Fatigue)
	assert.Equal(t, 1, restored.ConsecutiveSameAction)
	require.Len(t, restored.ActHistory, 1)
	require.NotNil(t, restored.ActHistory[0].Confidence)
	assert.Equal(t, 0.5, *restored.ActHistory[0].Confidence)
}

func TestFromStateDictEmptyMap(t *testing.T) {
	restored := FromStateDict(map[string]any{})

	assert.NotEmpty(t, restored.LoopID, "missing loop_id gets a fresh one")
	assert.Zero(t, restored.IterationNumber)
	assert.Empty(t, restored.ActHistory)
	assert.False(t, restored.StartedAt.IsZero())
}

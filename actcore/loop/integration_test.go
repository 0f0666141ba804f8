// Package loop_test provides orchestrator integration tests.
//
// These tests validate end-to-end runs with the shared mocks from the
// testutil package. They cover critic correction and escalation, semantic
// repetition, budget exhaustion, persistent-task hand-off, and telemetry
// wiring.
package loop_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeeves-cluster-organization/actengine/actcore/act"
	"github.com/jeeves-cluster-organization/actengine/actcore/critic"
	"github.com/jeeves-cluster-organization/actengine/actcore/loop"
	"github.com/jeeves-cluster-organization/actengine/actcore/telemetry"
	"github.com/jeeves-cluster-organization/actengine/actcore/testutil"
)

// =============================================================================
// CRITIC FLOW TESTS
// =============================================================================

func TestLoopIntegration_CriticCorrectionFlow(t *testing.T) {
	// One rejected result is re-dispatched with the correction, the verified
	// replacement lands in history, and the audit entry follows it.
	cfg := testutil.NewTestLoopConfig()
	cfg.CriticEnabled = true

	dispatcher := testutil.NewMockDispatcher().WithPayload("web_search", "initial answer")
	judge := testutil.NewMockJudge().WithVerdicts(
		critic.Verdict{Verified: false, Correction: "narrow the date range"},
		critic.Verdict{Verified: true},
	)

	orch, err := loop.NewOrchestrator(cfg, testutil.NewTestGovernorConfig(10), dispatcher, testutil.NewMockLogger())
	require.NoError(t, err)
	orch.Judge = judge

	planner := testutil.NewMockPlanProvider(testutil.NewTestPlan("web_search"), &act.Plan{})

	result, err := orch.Run(context.Background(), planner, loop.RunParams{
		Topic:     "research",
		SessionID: "sess-critic",
		Text:      "find recent coverage",
	})
	require.NoError(t, err)

	require.NoError(t, testutil.AssertTerminated(result, act.TerminationReasonNoActions))
	require.NoError(t, testutil.AssertHistoryTypes(result, "web_search", "web_search"))
	assert.Equal(t, act.ActionStatusSuccess, result.ActHistory[0].Status)
	assert.Equal(t, act.ActionStatusCriticCorrection, result.ActHistory[1].Status)
	assert.Equal(t, "narrow the date range", result.ActHistory[1].Result)

	// The re-dispatch carried the judge's correction.
	dispatched := dispatcher.GetDispatchCalls()
	require.Len(t, dispatched, 1)
	assert.Equal(t, "web_search", dispatched[0].Type)
	assert.Equal(t, "narrow the date range", dispatched[0].Correction)

	assert.Equal(t, 2, result.Critic.Evaluations)
	assert.Equal(t, 1, result.Critic.Corrections)
	assert.Equal(t, 0, result.Critic.Escalations)
	assert.InDelta(t, 0.2, result.Critic.FatigueCharged, 1e-9)
	assert.InDelta(t, 1.2, result.Fatigue, 1e-9)

	// The next planning call sees the corrected result and the audit entry.
	requests := planner.GetRequests()
	require.Len(t, requests, 2)
	assert.Contains(t, requests[1].ActHistoryText, "[success] web_search: initial answer")
	assert.Contains(t, requests[1].ActHistoryText, "[critic_correction] web_search: narrow the date range")
}

func TestLoopIntegration_CriticEscalationPausesAction(t *testing.T) {
	// An unverifiable consequential action raises the one-shot user
	// escalation instead of retrying.
	cfg := testutil.NewTestLoopConfig()
	cfg.CriticEnabled = true

	dispatcher := testutil.NewMockDispatcher()
	judge := testutil.NewMockJudge().
		WithUnsafe("send_message").
		WithVerdicts(critic.Verdict{Verified: false, Issue: "recipient looks wrong"})
	escalation := testutil.NewMockEscalation()

	orch, err := loop.NewOrchestrator(cfg, testutil.NewTestGovernorConfig(10), dispatcher, testutil.NewMockLogger())
	require.NoError(t, err)
	orch.Judge = judge
	orch.Escalation = escalation

	planner := testutil.NewMockPlanProvider(testutil.NewTestPlan("send_message"), &act.Plan{})

	result, err := orch.Run(context.Background(), planner, loop.RunParams{
		Topic:     "outreach",
		SessionID: "sess-escalate",
		Text:      "message the vendor",
	})
	require.NoError(t, err)

	messages := escalation.GetMessages()
	require.Len(t, messages, 1)
	assert.Equal(t, "outreach", messages[0].Topic)
	assert.Contains(t, messages[0].Text, "send_message")
	assert.Contains(t, messages[0].Text, "recipient looks wrong")
	assert.Equal(t, "send_message", messages[0].Metadata["action_type"])

	assert.Equal(t, 1, result.Critic.Evaluations)
	assert.Equal(t, 0, result.Critic.Corrections)
	assert.Equal(t, 1, result.Critic.Escalations)

	// The original result stays in history untouched; nothing was retried.
	require.NoError(t, testutil.AssertHistoryTypes(result, "send_message"))
	assert.Equal(t, act.ActionStatusSuccess, result.ActHistory[0].Status)
	assert.Empty(t, dispatcher.GetDispatchCalls())
}

// =============================================================================
// TERMINATION TESTS
// =============================================================================

func TestLoopIntegration_SmartRepetitionStops(t *testing.T) {
	// Two same-type plans with different wording embed to the same vector,
	// so the semantic scan flags the second iteration as a repeat.
	cfg := testutil.NewTestLoopConfig()
	cfg.SmartRepetition = true

	dispatcher := testutil.NewMockDispatcher()
	embedder := testutil.NewMockEmbedder()

	orch, err := loop.NewOrchestrator(cfg, testutil.NewTestGovernorConfig(10), dispatcher, testutil.NewMockLogger())
	require.NoError(t, err)
	orch.Embedder = embedder

	rephrased := &act.Plan{
		Actions:    []act.ActionSpec{{Type: "web_search", Query: "same question, new words"}},
		Confidence: 0.9,
	}
	planner := testutil.NewMockPlanProvider(testutil.NewTestPlan("web_search"), rephrased)

	result, err := orch.Run(context.Background(), planner, loop.RunParams{
		Topic:     "research",
		SessionID: "sess-repeat",
		Text:      "find the answer",
	})
	require.NoError(t, err)

	require.NoError(t, testutil.AssertTerminated(result, act.TerminationReasonSmartRepetition))
	assert.Equal(t, 2, result.IterationsUsed)
	assert.Len(t, dispatcher.GetExecuteCalls(), 2)

	// One scan ran: the current fingerprint plus one prior candidate.
	assert.Equal(t, 2, embedder.GetCallCount())

	require.Len(t, result.IterationLogs, 2)
	assert.Equal(t, act.TerminationReasonSmartRepetition, result.IterationLogs[1].TerminationReason)
	assert.NotZero(t, result.IterationLogs[1].FingerprintDigest)
}

func TestLoopIntegration_FatigueBudgetStopsRun(t *testing.T) {
	// Alternating action types dodge the repetition guards, so the run ends
	// only when accrued fatigue crosses the budget.
	cfg := testutil.NewTestLoopConfig()

	dispatcher := testutil.NewMockDispatcher()
	planner := testutil.NewMockPlanProvider(
		testutil.NewTestPlan("web_search"),
		testutil.NewTestPlan("data_query"),
		testutil.NewTestPlan("web_search"),
	)

	orch, err := loop.NewOrchestrator(cfg, testutil.NewTestGovernorConfig(2.5), dispatcher, testutil.NewMockLogger())
	require.NoError(t, err)

	result, err := orch.Run(context.Background(), planner, loop.RunParams{
		Topic:     "research",
		SessionID: "sess-budget",
		Text:      "dig deep",
	})
	require.NoError(t, err)

	require.NoError(t, testutil.AssertTerminated(result, act.TerminationReasonFatigueExhausted))
	assert.Equal(t, 3, result.IterationsUsed)
	assert.Len(t, dispatcher.GetExecuteCalls(), 3)
	assert.InDelta(t, 3.0, result.FatigueReport.Final, 1e-9)
	assert.InDelta(t, 2.5, result.FatigueReport.Budget, 1e-9)
	assert.InDelta(t, 1.2, result.FatigueReport.Utilization, 1e-9)
}

func TestLoopIntegration_PersistentTaskHandoffEndsRun(t *testing.T) {
	// A successful background hand-off ends the run on the same iteration
	// and emits the hand-off event.
	cfg := testutil.NewTestLoopConfig()
	cfg.PersistentTaskExit = true

	dispatcher := testutil.NewMockDispatcher()
	eventSink := testutil.NewMockEventSink()

	orch, err := loop.NewOrchestrator(cfg, testutil.NewTestGovernorConfig(10), dispatcher, testutil.NewMockLogger())
	require.NoError(t, err)
	orch.Recorder = telemetry.NewRecorder(testutil.NewMockLogSink(), eventSink, testutil.NewMockLogger())

	handoff := &act.Plan{
		Actions:    []act.ActionSpec{{Type: act.PersistentTaskActionType, Query: "remind me at 9am"}},
		Confidence: 0.9,
	}
	planner := testutil.NewMockPlanProvider(handoff)

	result, err := orch.Run(context.Background(), planner, loop.RunParams{
		Topic:     "reminders",
		SessionID: "sess-handoff",
		Text:      "set a reminder",
	})
	require.NoError(t, err)

	require.NoError(t, testutil.AssertTerminated(result, act.TerminationReasonPersistentTaskDispatched))
	assert.Equal(t, 1, result.IterationsUsed)
	assert.Equal(t, []string{
		telemetry.EventRunStarted,
		telemetry.EventPersistentTaskHandoff,
		telemetry.EventIterationCompleted,
		telemetry.EventRunCompleted,
	}, eventSink.EventTypes())
}

// =============================================================================
// TELEMETRY TESTS
// =============================================================================

func TestLoopIntegration_TelemetryEventLifecycle(t *testing.T) {
	// A two-iteration run emits the full event sequence and flushes one
	// iteration batch through the log sink.
	cfg := testutil.NewTestLoopConfig()

	dispatcher := testutil.NewMockDispatcher()
	logSink := testutil.NewMockLogSink()
	eventSink := testutil.NewMockEventSink()

	orch, err := loop.NewOrchestrator(cfg, testutil.NewTestGovernorConfig(10), dispatcher, testutil.NewMockLogger())
	require.NoError(t, err)
	orch.Recorder = telemetry.NewRecorder(logSink, eventSink, testutil.NewMockLogger())

	planner := testutil.NewMockPlanProvider(testutil.NewTestPlan("web_search"), &act.Plan{})

	result, err := orch.Run(context.Background(), planner, loop.RunParams{
		Topic:     "research",
		SessionID: "sess-telemetry",
		Text:      "look it up",
	})
	require.NoError(t, err)
	require.NoError(t, testutil.AssertTerminated(result, act.TerminationReasonNoActions))

	assert.Equal(t, []string{
		telemetry.EventRunStarted,
		telemetry.EventIterationCompleted,
		telemetry.EventIterationCompleted,
		telemetry.EventRunCompleted,
	}, eventSink.EventTypes())

	for _, event := range eventSink.Events {
		assert.Equal(t, telemetry.SourceLoop, event.Source)
		assert.Equal(t, "research", event.Topic)
	}

	completed, ok := eventSink.FindEvent(telemetry.EventRunCompleted)
	require.True(t, ok)
	assert.Equal(t, "sess-telemetry", completed.Payload["session_id"])
	assert.Equal(t, string(act.TerminationReasonNoActions), completed.Payload["termination_reason"])
	assert.Equal(t, 2, completed.Payload["iterations_used"])
	assert.Equal(t, result.LoopID, completed.Payload["loop_id"])

	batches := logSink.GetBatches()
	require.Len(t, batches, 1)
	assert.Equal(t, "run-test", batches[0].RunID)
	assert.Equal(t, "research", batches[0].Topic)
	assert.Equal(t, "sess-telemetry", batches[0].SessionID)
	require.Len(t, batches[0].Iterations, 2)
	assert.Equal(t, 1, batches[0].Iterations[0].ExecutedCount)
	assert.Equal(t, 0, batches[0].Iterations[1].PlannedActions)
	assert.Equal(t, act.TerminationReasonNoActions, batches[0].Iterations[1].TerminationReason)
}

// =============================================================================
// SIDE CHANNEL TESTS
// =============================================================================

func TestLoopIntegration_OffersAndSkillsSideChannels(t *testing.T) {
	// Pending card offers augment every planning request, and executed
	// results flow into the skill recorder.
	cfg := testutil.NewTestLoopConfig()
	cfg.DeferredCardContext = true

	dispatcher := testutil.NewMockDispatcher()
	offers := testutil.NewMockOfferStore(loop.OfferCard{
		OfferID:     "card-7",
		DisplayName: "Weather snapshot",
		CardType:    "weather",
	})
	skills := testutil.NewMockSkillRecorder()

	orch, err := loop.NewOrchestrator(cfg, testutil.NewTestGovernorConfig(10), dispatcher, testutil.NewMockLogger())
	require.NoError(t, err)
	orch.Offers = offers
	orch.Skills = skills

	planner := testutil.NewMockPlanProvider(testutil.NewTestPlan("web_search", "data_query"), &act.Plan{})

	result, err := orch.Run(context.Background(), planner, loop.RunParams{
		Topic:     "morning-briefing",
		SessionID: "sess-cards",
		Text:      "prepare my briefing",
	})
	require.NoError(t, err)
	require.NoError(t, testutil.AssertTerminated(result, act.TerminationReasonNoActions))

	requests := planner.GetRequests()
	require.Len(t, requests, 2)
	assert.Contains(t, requests[0].ActHistoryText, "No actions taken yet.")
	assert.Contains(t, requests[0].ActHistoryText, "Pending card offers for this topic:")
	assert.Contains(t, requests[0].ActHistoryText, "Weather snapshot (offer_id: card-7)")
	assert.Contains(t, requests[1].ActHistoryText, "[success] web_search")
	assert.Equal(t, 2, offers.CallCount)

	outcomes := skills.GetOutcomes()
	require.Len(t, outcomes, 2)
	assert.Equal(t, "web_search", outcomes[0].ActionType)
	assert.Equal(t, "data_query", outcomes[1].ActionType)
}

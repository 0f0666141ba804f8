package loop

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jeeves-cluster-organization/actengine/actcore/act"
	"github.com/jeeves-cluster-organization/actengine/actcore/config"
	"github.com/jeeves-cluster-organization/actengine/actcore/critic"
	"github.com/jeeves-cluster-organization/actengine/actcore/governor"
	"github.com/jeeves-cluster-organization/actengine/actcore/observability"
	"github.com/jeeves-cluster-organization/actengine/actcore/repetition"
	"github.com/jeeves-cluster-organization/actengine/actcore/telemetry"
)

var tracer = otel.Tracer("actengine/loop")

// Budget safety net: once the history holds this many dispatched actions and
// the predicted post-iteration utilization reaches the threshold, exactly one
// warning advisory is injected for the rest of the run.
const (
	budgetWarningMinActions  = 4
	budgetWarningUtilization = 0.85
)

// Advisory texts injected into the visible history.
const (
	pivotHintText = "System notice: the last three iterations planned the same action type. " +
		"Change approach - try a different action type, or finish with what is already known."
	budgetWarningTextFmt = "System notice: the action budget is nearly exhausted (predicted utilization %.0f%%). " +
		"Wrap up with the information gathered, or hand the remaining work to a persistent task."
)

var _ Governor = (*governor.BudgetGovernor)(nil)

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Orchestrator runs bounded action loops. It is safe for concurrent runs:
// every Run call owns a private LoopState and a fresh governor ledger, and
// the orchestrator's own fields are read-only once configured.
type Orchestrator struct {
	Config         *config.LoopConfig
	GovernorConfig *config.GovernorConfig
	Dispatcher     Dispatcher
	Logger         Logger

	// Optional collaborators, set between construction and first use.
	Judge      critic.Judge
	Escalation critic.EscalationChannel
	Embedder   repetition.Embedder
	Offers     OfferStore
	Skills     SkillRecorder
	Recorder   *telemetry.Recorder

	// NewGovernor overrides per-run ledger construction. Nil uses the
	// budget governor with the configured tables.
	NewGovernor func() Governor
}

// NewOrchestrator creates an orchestrator. The dispatcher is required; nil
// configs fall back to the process-wide defaults; a nil logger disables loop
// logging.
func NewOrchestrator(loopCfg *config.LoopConfig, govCfg *config.GovernorConfig, dispatcher Dispatcher, logger Logger) (*Orchestrator, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("orchestrator requires a dispatcher")
	}
	if loopCfg == nil {
		loopCfg = config.GetLoopConfig()
	}
	if err := loopCfg.Validate(); err != nil {
		return nil, fmt.Errorf("loop config: %w", err)
	}
	if govCfg == nil {
		govCfg = config.GetGovernorConfig()
	}
	if err := govCfg.Validate(); err != nil {
		return nil, fmt.Errorf("governor config: %w", err)
	}
	if logger == nil {
		logger = nopLogger{}
	}

	return &Orchestrator{
		Config:         loopCfg,
		GovernorConfig: govCfg,
		Dispatcher:     dispatcher,
		Logger:         logger,
	}, nil
}

// RunParams carries the per-run inputs of one conversational goal.
type RunParams struct {
	// Topic identifies the goal; it is routed to the dispatcher, the sinks,
	// and the escalation channel.
	Topic string

	// SessionID groups runs belonging to one session in logs and telemetry.
	SessionID string

	// Text is the original user prompt; the critic verifies results
	// against it.
	Text string

	// Plan-provider passthroughs.
	PromptTemplate string
	Classification string
	ChatHistory    []ChatMessage
	Extras         map[string]any

	// OnIterationComplete, when set, is polled once per iteration.
	OnIterationComplete IterationCallback
}

// Run executes one bounded action loop and returns its immutable result.
//
// Plan-provider and dispatcher failures are load-bearing: they propagate
// unchanged and no result is returned. Every other side operation is
// best-effort and can never change the run's outcome.
func (o *Orchestrator) Run(ctx context.Context, planner PlanProvider, params RunParams) (*act.Result, error) {
	if planner == nil {
		return nil, fmt.Errorf("run requires a plan provider")
	}

	state := act.NewLoopState(params.Topic, params.SessionID)
	logger := o.Logger.Bind("loop_id", state.LoopID, "topic", params.Topic)

	r := &run{
		o:       o,
		params:  params,
		planner: planner,
		state:   state,
		gov:     o.newGovernor(logger),
		logger:  logger,
	}
	if o.Config.SmartRepetition && o.Embedder != nil {
		r.detector = repetition.NewSmartDetector(o.Embedder, o.Config.RepetitionSimThreshold)
	}
	if o.Config.CriticEnabled && o.Judge != nil {
		r.verifier = critic.NewVerifier(o.Judge, o.Dispatcher, r.gov, o.Escalation, o.Config.MaxCriticRetries, logger)
	}

	ctx, span := tracer.Start(ctx, "act.run", trace.WithAttributes(
		attribute.String("act.loop_id", state.LoopID),
		attribute.String("act.topic", params.Topic),
	))
	defer span.End()

	startTime := time.Now()
	logger.Info("act_run_started",
		"session_id", params.SessionID,
		"max_iterations", o.Config.MaxIterations,
		"critic_enabled", r.verifier != nil,
		"smart_repetition", r.detector != nil,
	)
	r.emit(ctx, telemetry.EventRunStarted, map[string]any{
		"loop_id":    state.LoopID,
		"session_id": params.SessionID,
	})

	var reason act.TerminationReason
	for {
		iterReason, err := r.iterate(ctx)
		if err != nil {
			// Load-bearing failure: the caller decides retry or abort,
			// and no result exists to flush.
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Error("act_run_failed",
				"iteration", state.IterationNumber,
				"error", err.Error(),
			)
			return nil, err
		}
		if iterReason.IsSet() {
			reason = iterReason
			break
		}
	}

	durationMS := int(time.Since(startTime).Milliseconds())

	// Post-loop bookkeeping runs however the loop exited.
	state.Fatigue = r.gov.Fatigue()
	fatigueTel := act.FatigueTelemetry{
		Final:           r.gov.Fatigue(),
		Budget:          r.gov.FatigueBudget(),
		GrowthRate:      r.gov.FatigueGrowthRate(),
		NetValue:        r.netValue,
		WarningInjected: state.BudgetWarningInjected,
	}
	if fatigueTel.Budget > 0 {
		fatigueTel.Utilization = fatigueTel.Final / fatigueTel.Budget
	}

	if o.Recorder != nil {
		o.Recorder.FlushIterations(ctx, params.Topic, params.SessionID, state.IterationLogs)
	}
	r.emit(ctx, telemetry.EventRunCompleted, map[string]any{
		"loop_id":            state.LoopID,
		"session_id":         params.SessionID,
		"termination_reason": string(reason),
		"iterations_used":    state.IterationNumber,
		"final_fatigue":      fatigueTel.Final,
		"budget_utilization": fatigueTel.Utilization,
		"net_value":          fatigueTel.NetValue,
		"critic_evaluations": r.criticTotals.Evaluations,
		"critic_corrections": r.criticTotals.Corrections,
	})

	observability.RecordRun(string(reason), state.IterationNumber, fatigueTel.Utilization, durationMS)
	span.SetAttributes(
		attribute.String("act.termination_reason", string(reason)),
		attribute.Int("act.iterations_used", state.IterationNumber),
		attribute.Int("duration_ms", durationMS),
	)
	span.SetStatus(codes.Ok, string(reason))

	logger.Info("act_run_completed",
		"termination_reason", string(reason),
		"iterations_used", state.IterationNumber,
		"fatigue", fatigueTel.Final,
		"duration_ms", durationMS,
	)

	return act.BuildResult(state, reason, r.criticTotals, fatigueTel), nil
}

func (o *Orchestrator) newGovernor(logger Logger) Governor {
	if o.NewGovernor != nil {
		return o.NewGovernor()
	}
	return governor.NewBudgetGovernor(o.Config, o.GovernorConfig, logger)
}

// =============================================================================
// RUN STATE
// =============================================================================

// run owns the mutable state of one Run call.
type run struct {
	o        *Orchestrator
	params   RunParams
	planner  PlanProvider
	state    *act.LoopState
	gov      Governor
	verifier *critic.Verifier
	detector *repetition.SmartDetector
	logger   Logger

	criticTotals act.CriticTelemetry
	netValue     float64
}

// iterate runs one loop pass. It returns the decided termination reason, or
// none to continue, or a load-bearing error.
func (r *run) iterate(ctx context.Context) (act.TerminationReason, error) {
	// Hard cancellation between iterations follows the usual context rules;
	// cooperative cancellation goes through the iteration callback.
	select {
	case <-ctx.Done():
		return act.TerminationReasonNone, ctx.Err()
	default:
	}

	iterStart := time.Now().UTC()
	state := r.state
	cfg := r.o.Config

	ctx, span := tracer.Start(ctx, "act.iteration", trace.WithAttributes(
		attribute.Int("act.iteration", state.IterationNumber),
	))
	defer span.End()

	// Render the visible history, with the optional deferred-card block.
	historyText := renderActHistory(state.ActHistory)
	if cfg.DeferredCardContext && r.o.Offers != nil {
		historyText += r.renderOfferBlock(ctx)
	}

	plan, err := r.planner.GeneratePlan(ctx, PlanRequest{
		PromptTemplate: r.params.PromptTemplate,
		OriginalPrompt: r.params.Text,
		Classification: r.params.Classification,
		ChatHistory:    r.params.ChatHistory,
		ActHistoryText: historyText,
		Extras:         r.params.Extras,
	})
	if err != nil {
		return act.TerminationReasonNone, fmt.Errorf("plan generation failed: %w", err)
	}

	var actions []act.ActionSpec
	confidence := 0.0
	if plan != nil {
		actions = plan.Actions
		confidence = plan.Confidence
	}

	var reason act.TerminationReason
	var executed []act.ActionResult
	var digest uint64
	iterNet := 0.0

	// Type-based repetition guard. At the limit, escalation hints grant one
	// pivot advisory per run before the guard terminates.
	if runLength := state.ObservePlanShape(actions); runLength >= repetition.TypeRunLimit {
		if cfg.EscalationHints && !state.PivotHintInjected {
			r.injectPivotHint(ctx, actions[0].Type, runLength)
		} else {
			reason = act.TerminationReasonRepetitionDetected
			r.logger.Info("repetition_detected",
				"action_type", actions[0].Type,
				"consecutive_count", runLength,
			)
		}
	}

	if !reason.IsSet() {
		// Generic continuation check. The first pass is always admitted: the
		// ledger is empty and the caller just asked for the run.
		if state.IterationNumber > 0 {
			if ok, why := r.gov.CanContinue(); !ok {
				r.logSkippedIteration(iterStart, actions, why)
				return why, nil
			}
		}

		r.maybeInjectBudgetWarning(ctx, actions)

		if len(actions) == 0 {
			reason = act.TerminationReasonNoActions
			r.logger.Info("no_actions_planned", "iteration", state.IterationNumber)
		} else {
			executed, digest, reason, iterNet, err = r.executeActions(ctx, actions)
			if err != nil {
				return act.TerminationReasonNone, err
			}
		}

		// Re-check continuation; its refusal becomes the termination reason.
		if !reason.IsSet() {
			if ok, why := r.gov.CanContinue(); !ok {
				reason = why
			}
		}
	}

	// Log the completed iteration and advance.
	durationMS := time.Since(iterStart).Milliseconds()
	state.Fatigue = r.gov.Fatigue()
	entry := act.IterationLog{
		Iteration:         state.IterationNumber,
		StartedAt:         iterStart,
		DurationMS:        durationMS,
		PlannedActions:    len(actions),
		ActionTypes:       planActionTypes(actions),
		ExecutedCount:     len(executed),
		Confidence:        confidence,
		FingerprintDigest: digest,
		FatigueAfter:      state.Fatigue,
		NetValue:          iterNet,
		TerminationReason: reason,
	}
	state.IterationLogs = append(state.IterationLogs, entry)
	state.IterationNumber++

	observability.RecordIteration("completed", int(durationMS))
	span.SetAttributes(
		attribute.Int("act.executed_count", entry.ExecutedCount),
		attribute.Int("duration_ms", int(durationMS)),
	)
	r.logger.Info("act_iteration_completed",
		"iteration", entry.Iteration,
		"planned_actions", entry.PlannedActions,
		"executed_count", entry.ExecutedCount,
		"fatigue_after", entry.FatigueAfter,
		"duration_ms", durationMS,
		"termination_reason", string(reason),
	)
	r.emit(ctx, telemetry.EventIterationCompleted, map[string]any{
		"loop_id":            state.LoopID,
		"session_id":         state.SessionID,
		"iteration":          entry.Iteration,
		"duration_ms":        int(durationMS),
		"executed_count":     entry.ExecutedCount,
		"fatigue_after":      entry.FatigueAfter,
		"termination_reason": string(reason),
	})

	// The caller's callback may supply a reason when none exists; it can
	// never override an internally decided one.
	reason = r.invokeCallback(iterStart, executed, reason)

	return reason, nil
}

// executeActions runs the dispatch/verify/accrue phase of one iteration over
// a non-empty plan. It returns the executed results (as appended to history),
// the plan fingerprint digest, any termination reason decided by the
// repetition scan or the persistent-task exit, and the iteration net value.
func (r *run) executeActions(ctx context.Context, actions []act.ActionSpec) ([]act.ActionResult, uint64, act.TerminationReason, float64, error) {
	state := r.state
	cfg := r.o.Config

	executed, err := r.o.Dispatcher.ExecuteActions(ctx, r.params.Topic, actions)
	if err != nil {
		return nil, 0, act.TerminationReasonNone, 0, fmt.Errorf("action execution failed: %w", err)
	}

	if r.verifier != nil {
		verified, report, verr := r.verifier.Verify(ctx, r.params.Topic, r.params.Text, actions, executed, !state.EscalationHintInjected)
		if verr != nil {
			return nil, 0, act.TerminationReasonNone, 0, fmt.Errorf("critic re-dispatch failed: %w", verr)
		}
		executed = verified
		r.recordCriticReport(ctx, report)
	}

	state.AppendHistory(executed...)
	for _, res := range executed {
		observability.RecordAction(res.ActionType, string(res.Status), int(res.ExecutionTime*1000))
	}

	var reason act.TerminationReason

	// Semantic repetition scan over the fingerprint window. Detection is
	// advisory: a dead embedder logs and moves on.
	fingerprint := act.Fingerprint(actions)
	digest := act.FingerprintDigest(fingerprint)
	if r.detector != nil {
		state.PushWindowEntry(act.WindowEntry{
			Fingerprint: fingerprint,
			Types:       act.TypeSet(actions),
		})
		match, scanErr := r.detector.Scan(ctx, state.Window)
		if scanErr != nil {
			r.logger.Warn("smart_repetition_scan_failed", "error", scanErr.Error())
		} else if match.Repeated {
			reason = act.TerminationReasonSmartRepetition
			r.logger.Info("smart_repetition_detected",
				"similarity", match.Similarity,
				"matched_fingerprint", match.Fingerprint,
			)
		}
	}

	// Fatigue accrual and net-value estimate. The work was done, so the
	// ledger is charged even when the scan above decided to stop.
	r.gov.AccumulateFatigue(executed, state.IterationNumber)
	iterNet := r.gov.EstimateNetValue(executed, state.IterationNumber)
	r.netValue += iterNet

	// A successful hand-off to the background task path ends the run on
	// this same iteration, regardless of remaining budget.
	if cfg.PersistentTaskExit && !reason.IsSet() {
		for _, res := range executed {
			if res.ActionType == act.PersistentTaskActionType && res.Status == act.ActionStatusSuccess {
				reason = act.TerminationReasonPersistentTaskDispatched
				r.logger.Info("persistent_task_handed_off", "iteration", state.IterationNumber)
				r.emit(ctx, telemetry.EventPersistentTaskHandoff, map[string]any{
					"loop_id":   state.LoopID,
					"iteration": state.IterationNumber,
				})
				break
			}
		}
	}

	if r.o.Skills != nil {
		recorder := r.o.Skills
		topic := r.params.Topic
		results := executed
		runBestEffort(r.logger, "skill_outcome_recording", func() error {
			for _, res := range results {
				if res.IsAdvisory() || res.Status == act.ActionStatusCriticCorrection {
					continue
				}
				if err := recorder.RecordOutcome(ctx, topic, res); err != nil {
					return err
				}
			}
			return nil
		})
	}

	return executed, digest, reason, iterNet, nil
}

// =============================================================================
// ADVISORY INJECTION
// =============================================================================

// injectPivotHint appends the one-per-run diversification advisory and resets
// the consecutive-type counter, granting the model one more chance.
func (r *run) injectPivotHint(ctx context.Context, actionType string, runLength int) {
	state := r.state
	state.AppendHistory(act.NewSystemAdvisory(pivotHintText))
	state.PivotHintInjected = true
	state.ResetRepetitionCounter()

	observability.RecordAdvisoryInjected("pivot_hint")
	r.logger.Info("pivot_hint_injected",
		"action_type", actionType,
		"consecutive_count", runLength,
	)
	r.emit(ctx, telemetry.EventPivotHintInjected, map[string]any{
		"loop_id":           state.LoopID,
		"action_type":       actionType,
		"consecutive_count": runLength,
	})
}

// maybeInjectBudgetWarning appends the one-per-run budget advisory once
// history is action-heavy and the predicted utilization crosses the
// threshold.
func (r *run) maybeInjectBudgetWarning(ctx context.Context, actions []act.ActionSpec) {
	state := r.state
	if state.BudgetWarningInjected {
		return
	}
	if act.CountToolActions(state.ActHistory) < budgetWarningMinActions {
		return
	}
	predicted := r.gov.PredictedUtilization(actions, state.IterationNumber)
	if predicted < budgetWarningUtilization {
		return
	}

	state.AppendHistory(act.NewSystemAdvisory(fmt.Sprintf(budgetWarningTextFmt, predicted*100)))
	state.BudgetWarningInjected = true

	observability.RecordAdvisoryInjected("budget_warning")
	r.logger.Info("budget_warning_injected", "predicted_utilization", predicted)
	r.emit(ctx, telemetry.EventBudgetWarningInjected, map[string]any{
		"loop_id":               state.LoopID,
		"predicted_utilization": predicted,
	})
}

// =============================================================================
// BOOKKEEPING
// =============================================================================

// recordCriticReport folds one Verify pass into the run totals and emits the
// associated telemetry.
func (r *run) recordCriticReport(ctx context.Context, report critic.Report) {
	state := r.state
	r.criticTotals.Evaluations += report.Evaluations
	r.criticTotals.Corrections += report.Corrections
	r.criticTotals.Oscillations += report.Oscillations
	r.criticTotals.FatigueCharged += report.FatigueCharged

	escalations := 0
	if report.EscalationRaised {
		escalations = 1
		r.criticTotals.Escalations++
		state.EscalationHintInjected = true
		r.logger.Warn("critic_escalation_raised",
			"action_type", report.EscalatedAction,
			"issue", report.EscalatedIssue,
		)
		r.emit(ctx, telemetry.EventCriticEscalation, map[string]any{
			"loop_id":     state.LoopID,
			"action_type": report.EscalatedAction,
			"issue":       report.EscalatedIssue,
		})
	}
	for _, actionType := range report.OscillatedTypes {
		r.emit(ctx, telemetry.EventCriticOscillation, map[string]any{
			"loop_id":     state.LoopID,
			"action_type": actionType,
			"attempts":    r.o.Config.MaxCriticRetries,
		})
	}

	observability.RecordCriticActivity(report.Evaluations, report.Corrections, escalations, report.Oscillations)
}

// logSkippedIteration records a pass the governor refused before execution.
// Skipped passes do not advance the iteration number and are not reported to
// the callback.
func (r *run) logSkippedIteration(iterStart time.Time, actions []act.ActionSpec, reason act.TerminationReason) {
	state := r.state
	state.Fatigue = r.gov.Fatigue()
	durationMS := time.Since(iterStart).Milliseconds()

	state.IterationLogs = append(state.IterationLogs, act.IterationLog{
		Iteration:         state.IterationNumber,
		StartedAt:         iterStart,
		DurationMS:        durationMS,
		PlannedActions:    len(actions),
		ActionTypes:       planActionTypes(actions),
		FatigueAfter:      state.Fatigue,
		Skipped:           true,
		TerminationReason: reason,
	})

	observability.RecordIteration("skipped", int(durationMS))
	r.logger.Info("act_iteration_skipped",
		"iteration", state.IterationNumber,
		"termination_reason", string(reason),
	)
}

// invokeCallback polls the caller once per iteration. Errors and panics are
// logged and ignored; a returned reason is honored only when no reason was
// decided internally.
func (r *run) invokeCallback(iterStart time.Time, executed []act.ActionResult, reason act.TerminationReason) act.TerminationReason {
	cb := r.params.OnIterationComplete
	if cb == nil {
		return reason
	}

	cbReason, err := safeCall(r.logger, "on_iteration_complete", func() (act.TerminationReason, error) {
		return cb(r.state, iterStart, executed, reason)
	})
	if err != nil {
		r.logger.Warn("iteration_callback_discarded", "error", err.Error())
		return reason
	}
	if !cbReason.IsSet() {
		return reason
	}
	if reason.IsSet() {
		r.logger.Debug("callback_reason_ignored",
			"callback_reason", string(cbReason),
			"termination_reason", string(reason),
		)
		return reason
	}

	r.logger.Info("callback_terminated_run", "reason", string(cbReason))
	return cbReason
}

// emit sends one best-effort telemetry event through the recorder.
func (r *run) emit(ctx context.Context, eventType string, payload map[string]any) {
	if r.o.Recorder == nil {
		return
	}
	r.o.Recorder.EmitEvent(ctx, eventType, payload, r.params.Topic)
}

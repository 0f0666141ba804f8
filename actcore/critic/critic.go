// Package critic provides result verification for executed actions: an
// injected judge decides whether each result is trusted as-is, corrected and
// retried, or escalated to the user, under a hard retry ceiling. The
// sub-loop is strictly bounded, so it can never make the outer loop run
// unboundedly.
package critic

import (
	"context"

	"github.com/jeeves-cluster-organization/actengine/actcore/act"
)

// Logger interface for the verifier.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Verdict is one evaluation outcome from the judge.
type Verdict struct {
	Verified   bool   `json:"verified"`
	Correction string `json:"correction,omitempty"`
	Issue      string `json:"issue,omitempty"`
}

// Judge is the external critic contract.
type Judge interface {
	// ShouldSkip exempts a result from review entirely.
	ShouldSkip(actionType string, result act.ActionResult) bool

	// Evaluate judges the current result of one action.
	Evaluate(ctx context.Context, originalRequest, actionType, actionIntent string, result act.ActionResult) (Verdict, error)

	// IsSafeAction reports whether an action type is reversible/low-risk
	// and therefore eligible for automatic retry.
	IsSafeAction(actionType string) bool

	// EvaluationCost is the fixed fatigue charge per Evaluate call.
	EvaluationCost() float64
}

// Redispatcher re-executes a single corrected action. Failures here are
// dispatcher failures and propagate out of Verify.
type Redispatcher interface {
	DispatchAction(ctx context.Context, topic string, action act.ActionSpec) (act.ActionResult, error)
}

// FatigueCharger is the single sanctioned mutation the verifier performs on
// the run's budget ledger.
type FatigueCharger interface {
	ChargeCriticFatigue(cost float64) float64
}

// EscalationChannel delivers the one-shot user-facing pause message for
// consequential actions the judge rejected without a usable correction.
type EscalationChannel interface {
	NotifyUser(ctx context.Context, topic, text string, metadata map[string]any) error
}

// Report summarizes one Verify pass for telemetry.
type Report struct {
	Evaluations      int      `json:"evaluations"`
	Corrections      int      `json:"corrections"`
	EscalationRaised bool     `json:"escalation_raised"`
	EscalatedAction  string   `json:"escalated_action,omitempty"`
	EscalatedIssue   string   `json:"escalated_issue,omitempty"`
	Oscillations     int      `json:"oscillations"`
	OscillatedTypes  []string `json:"oscillated_types,omitempty"`
	FatigueCharged   float64  `json:"fatigue_charged"`
}

// =============================================================================
// VERIFIER
// =============================================================================

// Verifier runs the critic protocol over one iteration's executed results.
type Verifier struct {
	judge        Judge
	redispatcher Redispatcher
	charger      FatigueCharger
	escalation   EscalationChannel
	maxRetries   int
	logger       Logger
}

// NewVerifier creates a verifier. The escalation channel and logger may be
// nil; maxRetries bounds Evaluate calls per action.
func NewVerifier(judge Judge, redispatcher Redispatcher, charger FatigueCharger, escalation EscalationChannel, maxRetries int, logger Logger) *Verifier {
	return &Verifier{
		judge:        judge,
		redispatcher: redispatcher,
		charger:      charger,
		escalation:   escalation,
		maxRetries:   maxRetries,
		logger:       logger,
	}
}

// Verify reviews each executed result against its action spec, substituting
// corrected results in place and appending audit entries at the end. Input
// order is preserved; no original entry is dropped.
//
// escalationAllowed is the run-level one-shot allowance: once a Verify pass
// reports EscalationRaised, the loop withdraws the allowance for the rest of
// the run. Judge failures are best-effort (the current result is kept);
// re-dispatch failures propagate.
func (v *Verifier) Verify(ctx context.Context, topic, originalRequest string, actions []act.ActionSpec, results []act.ActionResult, escalationAllowed bool) ([]act.ActionResult, Report, error) {
	report := Report{}
	out := act.CloneResults(results)
	var audits []act.ActionResult

	for i := range out {
		// Injected advisories and audit entries are never reviewed.
		if out[i].IsAdvisory() || out[i].Status == act.ActionStatusCriticCorrection {
			continue
		}
		if i >= len(actions) {
			break
		}

		final, err := v.verifyAction(ctx, topic, originalRequest, actions[i], out[i], escalationAllowed, &report, &audits)
		if err != nil {
			return nil, report, err
		}
		out[i] = final
	}

	return append(out, audits...), report, nil
}

// verifyAction runs the bounded retry sub-loop for one action.
func (v *Verifier) verifyAction(ctx context.Context, topic, originalRequest string, spec act.ActionSpec, result act.ActionResult, escalationAllowed bool, report *Report, audits *[]act.ActionResult) (act.ActionResult, error) {
	if v.judge.ShouldSkip(spec.Type, result) {
		return result, nil
	}

	current := result
	currentSpec := spec
	settled := false

	for attempt := 0; attempt < v.maxRetries; attempt++ {
		verdict, err := v.judge.Evaluate(ctx, originalRequest, spec.Type, spec.Intent(), current)
		report.Evaluations++
		report.FatigueCharged += v.charge()

		if err != nil {
			if v.logger != nil {
				v.logger.Warn("critic_evaluate_failed", "action_type", spec.Type, "attempt", attempt, "error", err.Error())
			}
			settled = true
			break
		}

		if verdict.Verified {
			settled = true
			break
		}

		safe := v.judge.IsSafeAction(spec.Type)

		if verdict.Correction == "" {
			// Nothing concrete to retry with.
			if !safe && escalationAllowed && !report.EscalationRaised {
				v.escalate(ctx, topic, spec, verdict)
				report.EscalationRaised = true
				report.EscalatedAction = spec.Type
				report.EscalatedIssue = verdict.Issue
			}
			settled = true
			break
		}

		*audits = append(*audits, act.NewCorrectionAudit(spec.Type, verdict.Correction))
		report.Corrections++

		if !safe {
			// Audit only; consequential actions are never auto-retried.
			if v.logger != nil {
				v.logger.Info("critic_correction_audited", "action_type", spec.Type, "correction", verdict.Correction)
			}
			settled = true
			break
		}

		currentSpec = currentSpec.WithCorrection(verdict.Correction)
		redispatched, err := v.redispatcher.DispatchAction(ctx, topic, currentSpec)
		if err != nil {
			return act.ActionResult{}, err
		}
		current = redispatched
	}

	if !settled {
		report.Oscillations++
		report.OscillatedTypes = append(report.OscillatedTypes, spec.Type)
		if v.logger != nil {
			v.logger.Warn("critic_oscillation", "action_type", spec.Type, "retries", v.maxRetries)
		}
	}

	return current, nil
}

// charge applies the judge's fixed evaluation cost to the run ledger.
func (v *Verifier) charge() float64 {
	cost := v.judge.EvaluationCost()
	if v.charger != nil {
		v.charger.ChargeCriticFatigue(cost)
	}
	return cost
}

// escalate sends the one-shot user-facing pause message. Delivery failures
// are logged and ignored; the escalation still counts as raised so the run
// cannot spam the channel.
func (v *Verifier) escalate(ctx context.Context, topic string, spec act.ActionSpec, verdict Verdict) {
	if v.escalation == nil {
		return
	}
	text := "I paused the action '" + spec.Type + "' before trusting its outcome"
	if verdict.Issue != "" {
		text += ": " + verdict.Issue
	}
	err := v.escalation.NotifyUser(ctx, topic, text, map[string]any{
		"action_type": spec.Type,
		"intent":      spec.Intent(),
		"issue":       verdict.Issue,
	})
	if err != nil && v.logger != nil {
		v.logger.Warn("critic_escalation_failed", "action_type", spec.Type, "error", err.Error())
	}
}

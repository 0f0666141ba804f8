// Package act defines the data model for the action loop: action specs and
// results, the loop's run state, termination reasons, and the immutable
// result snapshot returned to callers. All mutation of LoopState happens
// inside the orchestrator; every other component receives copies.
package act

import (
	"fmt"
	"strings"
)

// =============================================================================
// ENUMS
// =============================================================================

// ActionStatus represents the outcome status of one executed action.
type ActionStatus string

const (
	// ActionStatusSuccess indicates the action executed and produced a usable result.
	ActionStatusSuccess ActionStatus = "success"
	// ActionStatusError indicates the action failed.
	ActionStatusError ActionStatus = "error"
	// ActionStatusInfo indicates an informational entry (including injected advisories).
	ActionStatusInfo ActionStatus = "info"
	// ActionStatusCriticCorrection indicates a critic audit entry carrying a correction.
	ActionStatusCriticCorrection ActionStatus = "critic_correction"
)

// ActionStatusFromString parses a status string.
func ActionStatusFromString(value string) (ActionStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "success":
		return ActionStatusSuccess, nil
	case "error":
		return ActionStatusError, nil
	case "info":
		return ActionStatusInfo, nil
	case "critic_correction":
		return ActionStatusCriticCorrection, nil
	default:
		return "", fmt.Errorf("invalid action status '%s'. Must be one of: success, error, info, critic_correction", value)
	}
}

// Well-known action types.
const (
	// SystemActionType marks advisories injected by the orchestrator itself
	// (pivot hints, budget warnings). They are visible to the model but are
	// never dispatched.
	SystemActionType = "system"

	// PersistentTaskActionType marks a hand-off to the background task path.
	// A successful result of this type ends the current run.
	PersistentTaskActionType = "persistent_task"
)

// =============================================================================
// ACTION SPEC
// =============================================================================

// ActionSpec is one requested action from a generated plan. Specs are
// immutable once produced by an iteration; corrections are applied to copies.
type ActionSpec struct {
	Type        string `json:"type"`
	Query       string `json:"query,omitempty"`
	Description string `json:"description,omitempty"`
	Text        string `json:"text,omitempty"`

	// Correction carries critic feedback merged into a re-dispatched copy.
	Correction string `json:"correction,omitempty"`

	// Extra holds schema-less parameters the dispatcher may understand.
	Extra map[string]any `json:"extra,omitempty"`
}

// Intent returns the human-readable intent of the action: the first
// non-empty of query, description, text.
func (a ActionSpec) Intent() string {
	if a.Query != "" {
		return a.Query
	}
	if a.Description != "" {
		return a.Description
	}
	return a.Text
}

// Validate checks structural requirements.
func (a ActionSpec) Validate() error {
	if strings.TrimSpace(a.Type) == "" {
		return fmt.Errorf("action spec requires a type")
	}
	return nil
}

// Clone returns a deep copy of the spec.
func (a ActionSpec) Clone() ActionSpec {
	c := a
	if a.Extra != nil {
		c.Extra = make(map[string]any, len(a.Extra))
		for k, v := range a.Extra {
			c.Extra[k] = v
		}
	}
	return c
}

// WithCorrection returns a copy of the spec carrying critic feedback for
// re-dispatch. The original spec is not modified.
func (a ActionSpec) WithCorrection(correction string) ActionSpec {
	c := a.Clone()
	c.Correction = correction
	return c
}

// =============================================================================
// ACTION RESULT
// =============================================================================

// ActionResult is the outcome of one executed (or injected) action. Results
// are appended to the loop's visible history and never mutated afterwards.
type ActionResult struct {
	ActionType    string       `json:"action_type"`
	Status        ActionStatus `json:"status"`
	Result        string       `json:"result"`
	ExecutionTime float64      `json:"execution_time"`
	Confidence    *float64     `json:"confidence,omitempty"`
	Notes         string       `json:"notes,omitempty"`
}

// IsAdvisory reports whether the result is an orchestrator-injected advisory
// rather than a dispatched action.
func (r ActionResult) IsAdvisory() bool {
	return r.ActionType == SystemActionType
}

// Validate checks structural requirements.
func (r ActionResult) Validate() error {
	if strings.TrimSpace(r.ActionType) == "" {
		return fmt.Errorf("action result requires an action_type")
	}
	if _, err := ActionStatusFromString(string(r.Status)); err != nil {
		return err
	}
	return nil
}

// NewSystemAdvisory builds an injected advisory entry carried in the visible
// history with zero execution time.
func NewSystemAdvisory(text string) ActionResult {
	return ActionResult{
		ActionType: SystemActionType,
		Status:     ActionStatusInfo,
		Result:     text,
	}
}

// NewCorrectionAudit builds a critic audit entry recording a correction that
// was issued for the given action type.
func NewCorrectionAudit(actionType, correction string) ActionResult {
	return ActionResult{
		ActionType: actionType,
		Status:     ActionStatusCriticCorrection,
		Result:     correction,
	}
}

// CountToolActions counts dispatched tool actions in a result sequence,
// excluding injected advisories and critic audit entries.
func CountToolActions(results []ActionResult) int {
	count := 0
	for _, r := range results {
		if r.IsAdvisory() || r.Status == ActionStatusCriticCorrection {
			continue
		}
		count++
	}
	return count
}

// CloneResults returns a deep copy of a result sequence.
func CloneResults(results []ActionResult) []ActionResult {
	if results == nil {
		return nil
	}
	out := make([]ActionResult, len(results))
	for i, r := range results {
		c := r
		if r.Confidence != nil {
			v := *r.Confidence
			c.Confidence = &v
		}
		out[i] = c
	}
	return out
}

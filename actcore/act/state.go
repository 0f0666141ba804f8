package act

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jeeves-cluster-organization/actengine/actcore/typeutil"
)

// repetitionWindowCap bounds the smart-repetition window: the current entry
// plus the three prior entries the detector may look back at.
const repetitionWindowCap = 4

// =============================================================================
// WINDOW ENTRY
// =============================================================================

// WindowEntry is one remembered plan signature in the smart-repetition window.
type WindowEntry struct {
	Fingerprint string          `json:"fingerprint"`
	Types       map[string]bool `json:"types"`
}

// Clone returns a deep copy of the entry.
func (w WindowEntry) Clone() WindowEntry {
	c := WindowEntry{Fingerprint: w.Fingerprint}
	if w.Types != nil {
		c.Types = make(map[string]bool, len(w.Types))
		for k, v := range w.Types {
			c.Types[k] = v
		}
	}
	return c
}

// =============================================================================
// ITERATION LOG
// =============================================================================

// IterationLog is the audit record of one loop pass. Skipped passes (the
// governor refused before execution) carry Skipped=true and zero actions.
type IterationLog struct {
	Iteration         int               `json:"iteration"`
	StartedAt         time.Time         `json:"started_at"`
	DurationMS        int64             `json:"duration_ms"`
	PlannedActions    int               `json:"planned_actions"`
	ActionTypes       []string          `json:"action_types"`
	ExecutedCount     int               `json:"executed_count"`
	Confidence        float64           `json:"confidence"`
	FingerprintDigest uint64            `json:"fingerprint_digest,omitempty"`
	FatigueAfter      float64           `json:"fatigue_after"`
	NetValue          float64           `json:"net_value"`
	Skipped           bool              `json:"skipped,omitempty"`
	TerminationReason TerminationReason `json:"termination_reason,omitempty"`
}

// Clone returns a deep copy of the log record.
func (l IterationLog) Clone() IterationLog {
	c := l
	c.ActionTypes = copyStringSlice(l.ActionTypes)
	return c
}

// =============================================================================
// LOOP STATE
// =============================================================================

// LoopState is the mutable state of one run. It is created when a run
// starts, owned exclusively by the orchestrator for the lifetime of that
// run, and discarded once the result snapshot is extracted. It is never
// shared across concurrent runs.
type LoopState struct {
	LoopID    string    `json:"loop_id"`
	Topic     string    `json:"topic"`
	SessionID string    `json:"session_id"`
	StartedAt time.Time `json:"started_at"`

	IterationNumber int            `json:"iteration_number"`
	Fatigue         float64        `json:"fatigue"`
	ActHistory      []ActionResult `json:"act_history"`
	IterationLogs   []IterationLog `json:"iteration_logs"`

	// Type-repetition tracking.
	ConsecutiveSameAction int           `json:"consecutive_same_action"`
	LastActionType        string        `json:"last_action_type"`
	PivotHintInjected     bool          `json:"pivot_hint_injected"`
	Window                []WindowEntry `json:"repetition_window"`

	// One-shot injection flags.
	EscalationHintInjected bool `json:"escalation_hint_injected"`
	BudgetWarningInjected  bool `json:"budget_warning_injected"`
}

// NewLoopState creates the state for a fresh run.
func NewLoopState(topic, sessionID string) *LoopState {
	return &LoopState{
		LoopID:    uuid.New().String(),
		Topic:     topic,
		SessionID: sessionID,
		StartedAt: time.Now().UTC(),
	}
}

// AppendHistory appends results to the visible history. History is
// append-only; earlier entries are never reordered or rewritten.
func (s *LoopState) AppendHistory(results ...ActionResult) {
	s.ActHistory = append(s.ActHistory, results...)
}

// PushWindowEntry appends a plan signature to the smart-repetition window,
// evicting the oldest entry once the window is full.
func (s *LoopState) PushWindowEntry(entry WindowEntry) {
	s.Window = append(s.Window, entry)
	if len(s.Window) > repetitionWindowCap {
		s.Window = s.Window[len(s.Window)-repetitionWindowCap:]
	}
}

// ObservePlanShape updates the consecutive same-type counter for a new plan:
// a single action matching the previous sole action type increments the run,
// any other single action restarts it at 1, and multi-action or empty plans
// reset it to 0.
func (s *LoopState) ObservePlanShape(actions []ActionSpec) int {
	if len(actions) != 1 {
		s.ConsecutiveSameAction = 0
		s.LastActionType = ""
		return 0
	}
	actionType := actions[0].Type
	if actionType == s.LastActionType && s.ConsecutiveSameAction > 0 {
		s.ConsecutiveSameAction++
	} else {
		s.ConsecutiveSameAction = 1
	}
	s.LastActionType = actionType
	return s.ConsecutiveSameAction
}

// ResetRepetitionCounter clears the consecutive same-type run, keeping the
// last action type for future comparisons.
func (s *LoopState) ResetRepetitionCounter() {
	s.ConsecutiveSameAction = 0
}

// Clone returns a deep copy of the state.
func (s *LoopState) Clone() *LoopState {
	if s == nil {
		return nil
	}
	c := *s
	c.ActHistory = CloneResults(s.ActHistory)
	if s.IterationLogs != nil {
		c.IterationLogs = make([]IterationLog, len(s.IterationLogs))
		for i, l := range s.IterationLogs {
			c.IterationLogs[i] = l.Clone()
		}
	}
	if s.Window != nil {
		c.Window = make([]WindowEntry, len(s.Window))
		for i, w := range s.Window {
			c.Window[i] = w.Clone()
		}
	}
	return &c
}

// =============================================================================
// STATE DICT CONVERSION
// =============================================================================
//
// State dicts are the JSON-friendly map form used for subprocess interop and
// structured logging. Numeric fields tolerate both int and float64 on the
// way in, matching JSON unmarshaling behavior.

// ToStateDict converts the state to a plain map.
func (s *LoopState) ToStateDict() map[string]any {
	history := make([]map[string]any, len(s.ActHistory))
	for i, r := range s.ActHistory {
		history[i] = actionResultToDict(r)
	}
	logs := make([]map[string]any, len(s.IterationLogs))
	for i, l := range s.IterationLogs {
		logs[i] = iterationLogToDict(l)
	}
	window := make([]map[string]any, len(s.Window))
	for i, w := range s.Window {
		window[i] = map[string]any{
			"fingerprint": w.Fingerprint,
			"types":       typeSetToSlice(w.Types),
		}
	}

	return map[string]any{
		"loop_id":                  s.LoopID,
		"topic":                    s.Topic,
		"session_id":               s.SessionID,
		"started_at":               s.StartedAt.Format(time.RFC3339Nano),
		"iteration_number":         s.IterationNumber,
		"fatigue":                  s.Fatigue,
		"act_history":              history,
		"iteration_logs":           logs,
		"consecutive_same_action":  s.ConsecutiveSameAction,
		"last_action_type":         s.LastActionType,
		"pivot_hint_injected":      s.PivotHintInjected,
		"repetition_window":        window,
		"escalation_hint_injected": s.EscalationHintInjected,
		"budget_warning_injected":  s.BudgetWarningInjected,
	}
}

// FromStateDict reconstructs a LoopState from a plain map. Missing fields
// keep zero values; a missing loop_id gets a fresh one.
func FromStateDict(state map[string]any) *LoopState {
	s := &LoopState{
		LoopID:    typeutil.SafeStringDefault(state["loop_id"], uuid.New().String()),
		Topic:     typeutil.SafeStringDefault(state["topic"], ""),
		SessionID: typeutil.SafeStringDefault(state["session_id"], ""),
		StartedAt: time.Now().UTC(),
	}

	if v, ok := typeutil.SafeString(state["started_at"]); ok {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			s.StartedAt = t
		}
	}

	s.IterationNumber = typeutil.SafeIntDefault(state["iteration_number"], 0)
	s.Fatigue = typeutil.SafeFloat64Default(state["fatigue"], 0)
	s.ConsecutiveSameAction = typeutil.SafeIntDefault(state["consecutive_same_action"], 0)
	s.LastActionType = typeutil.SafeStringDefault(state["last_action_type"], "")
	s.PivotHintInjected = typeutil.SafeBoolDefault(state["pivot_hint_injected"], false)
	s.EscalationHintInjected = typeutil.SafeBoolDefault(state["escalation_hint_injected"], false)
	s.BudgetWarningInjected = typeutil.SafeBoolDefault(state["budget_warning_injected"], false)

	if items, ok := typeutil.SafeSlice(state["act_history"]); ok {
		s.ActHistory = make([]ActionResult, 0, len(items))
		for _, item := range items {
			if m, ok := typeutil.SafeMapStringAny(item); ok {
				s.ActHistory = append(s.ActHistory, ActionResultFromDict(m))
			}
		}
	}

	if items, ok := typeutil.SafeSlice(state["iteration_logs"]); ok {
		s.IterationLogs = make([]IterationLog, 0, len(items))
		for _, item := range items {
			if m, ok := typeutil.SafeMapStringAny(item); ok {
				s.IterationLogs = append(s.IterationLogs, iterationLogFromDict(m))
			}
		}
	}

	if items, ok := typeutil.SafeSlice(state["repetition_window"]); ok {
		s.Window = make([]WindowEntry, 0, len(items))
		for _, item := range items {
			if m, ok := typeutil.SafeMapStringAny(item); ok {
				entry := WindowEntry{
					Fingerprint: typeutil.SafeStringDefault(m["fingerprint"], ""),
					Types:       make(map[string]bool),
				}
				if types, ok := typeutil.SafeStringSlice(m["types"]); ok {
					for _, t := range types {
						entry.Types[t] = true
					}
				}
				s.Window = append(s.Window, entry)
			}
		}
	}

	return s
}

// ActionResultFromDict reconstructs an ActionResult from a plain map.
func ActionResultFromDict(m map[string]any) ActionResult {
	r := ActionResult{
		ActionType:    typeutil.SafeStringDefault(m["action_type"], ""),
		Status:        ActionStatus(typeutil.SafeStringDefault(m["status"], string(ActionStatusInfo))),
		Result:        typeutil.SafeStringDefault(m["result"], ""),
		ExecutionTime: typeutil.SafeFloat64Default(m["execution_time"], 0),
		Notes:         typeutil.SafeStringDefault(m["notes"], ""),
	}
	if v, ok := typeutil.SafeFloat64(m["confidence"]); ok {
		r.Confidence = &v
	}
	return r
}

func actionResultToDict(r ActionResult) map[string]any {
	m := map[string]any{
		"action_type":    r.ActionType,
		"status":         string(r.Status),
		"result":         r.Result,
		"execution_time": r.ExecutionTime,
	}
	if r.Confidence != nil {
		m["confidence"] = *r.Confidence
	}
	if r.Notes != "" {
		m["notes"] = r.Notes
	}
	return m
}

func iterationLogToDict(l IterationLog) map[string]any {
	m := map[string]any{
		"iteration":       l.Iteration,
		"started_at":      l.StartedAt.Format(time.RFC3339Nano),
		"duration_ms":     l.DurationMS,
		"planned_actions": l.PlannedActions,
		"action_types":    copyStringSlice(l.ActionTypes),
		"executed_count":  l.ExecutedCount,
		"confidence":      l.Confidence,
		"fatigue_after":   l.FatigueAfter,
		"net_value":       l.NetValue,
	}
	if l.FingerprintDigest != 0 {
		m["fingerprint_digest"] = l.FingerprintDigest
	}
	if l.Skipped {
		m["skipped"] = true
	}
	if l.TerminationReason.IsSet() {
		m["termination_reason"] = string(l.TerminationReason)
	}
	return m
}

func iterationLogFromDict(m map[string]any) IterationLog {
	l := IterationLog{
		Iteration:         typeutil.SafeIntDefault(m["iteration"], 0),
		DurationMS:        int64(typeutil.SafeIntDefault(m["duration_ms"], 0)),
		PlannedActions:    typeutil.SafeIntDefault(m["planned_actions"], 0),
		ExecutedCount:     typeutil.SafeIntDefault(m["executed_count"], 0),
		Confidence:        typeutil.SafeFloat64Default(m["confidence"], 0),
		FatigueAfter:      typeutil.SafeFloat64Default(m["fatigue_after"], 0),
		NetValue:          typeutil.SafeFloat64Default(m["net_value"], 0),
		Skipped:           typeutil.SafeBoolDefault(m["skipped"], false),
		TerminationReason: TerminationReason(typeutil.SafeStringDefault(m["termination_reason"], "")),
	}
	if v, ok := typeutil.SafeString(m["started_at"]); ok {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			l.StartedAt = t
		}
	}
	if v, ok := typeutil.SafeFloat64(m["fingerprint_digest"]); ok {
		l.FingerprintDigest = uint64(v)
	}
	if types, ok := typeutil.SafeStringSlice(m["action_types"]); ok {
		l.ActionTypes = types
	}
	return l
}

// =============================================================================
// COPY HELPERS
// =============================================================================

func copyStringSlice(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func typeSetToSlice(types map[string]bool) []string {
	out := make([]string, 0, len(types))
	for t := range types {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

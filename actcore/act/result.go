package act

// =============================================================================
// RUN RESULT
// =============================================================================

// CriticTelemetry summarizes critic activity over one run.
type CriticTelemetry struct {
	Evaluations    int     `json:"evaluations"`
	Corrections    int     `json:"corrections"`
	Escalations    int     `json:"escalations"`
	Oscillations   int     `json:"oscillations"`
	FatigueCharged float64 `json:"fatigue_charged"`
}

// FatigueTelemetry summarizes budget consumption over one run.
type FatigueTelemetry struct {
	Final           float64 `json:"final"`
	Budget          float64 `json:"budget"`
	Utilization     float64 `json:"utilization"`
	GrowthRate      float64 `json:"growth_rate"`
	NetValue        float64 `json:"net_value"`
	WarningInjected bool    `json:"warning_injected"`
}

// Result is the immutable outcome of one run. It is a snapshot: mutating
// the loop state after extraction does not affect a previously built Result.
type Result struct {
	LoopID            string            `json:"loop_id"`
	ActHistory        []ActionResult    `json:"act_history"`
	IterationLogs     []IterationLog    `json:"iteration_logs"`
	TerminationReason TerminationReason `json:"termination_reason"`
	Fatigue           float64           `json:"fatigue"`
	IterationsUsed    int               `json:"iterations_used"`
	Critic            CriticTelemetry   `json:"critic_telemetry"`
	FatigueReport     FatigueTelemetry  `json:"fatigue_telemetry"`
}

// BuildResult snapshots the loop state into an immutable Result.
func BuildResult(state *LoopState, reason TerminationReason, critic CriticTelemetry, fatigue FatigueTelemetry) *Result {
	r := &Result{
		LoopID:            state.LoopID,
		ActHistory:        CloneResults(state.ActHistory),
		TerminationReason: reason,
		Fatigue:           state.Fatigue,
		IterationsUsed:    state.IterationNumber,
		Critic:            critic,
		FatigueReport:     fatigue,
	}
	if state.IterationLogs != nil {
		r.IterationLogs = make([]IterationLog, len(state.IterationLogs))
		for i, l := range state.IterationLogs {
			r.IterationLogs[i] = l.Clone()
		}
	}
	return r
}

// ToResultDict converts the result to a plain map for interop and logging.
func (r *Result) ToResultDict() map[string]any {
	history := make([]map[string]any, len(r.ActHistory))
	for i, res := range r.ActHistory {
		history[i] = actionResultToDict(res)
	}
	logs := make([]map[string]any, len(r.IterationLogs))
	for i, l := range r.IterationLogs {
		logs[i] = iterationLogToDict(l)
	}
	return map[string]any{
		"loop_id":            r.LoopID,
		"act_history":        history,
		"iteration_logs":     logs,
		"termination_reason": string(r.TerminationReason),
		"fatigue":            r.Fatigue,
		"iterations_used":    r.IterationsUsed,
		"critic_telemetry": map[string]any{
			"evaluations":     r.Critic.Evaluations,
			"corrections":     r.Critic.Corrections,
			"escalations":     r.Critic.Escalations,
			"oscillations":    r.Critic.Oscillations,
			"fatigue_charged": r.Critic.FatigueCharged,
		},
		"fatigue_telemetry": map[string]any{
			"final":            r.FatigueReport.Final,
			"budget":           r.FatigueReport.Budget,
			"utilization":      r.FatigueReport.Utilization,
			"growth_rate":      r.FatigueReport.GrowthRate,
			"net_value":        r.FatigueReport.NetValue,
			"warning_injected": r.FatigueReport.WarningInjected,
		},
	}
}

package act

// TerminationReason explains why a run ended. The constants below form the
// closed set decided inside the loop; callers may additionally supply their
// own reason string through the iteration callback (cancellation,
// heartbeat loss). An empty reason means the run exhausted its iteration
// budget without any single condition claiming the exit.
type TerminationReason string

const (
	// TerminationReasonNone marks a run that has not (yet) decided to stop.
	TerminationReasonNone TerminationReason = ""
	// TerminationReasonNoActions indicates the model returned an empty plan.
	TerminationReasonNoActions TerminationReason = "no_actions"
	// TerminationReasonRepetitionDetected indicates consecutive same-type planning.
	TerminationReasonRepetitionDetected TerminationReason = "repetition_detected"
	// TerminationReasonSmartRepetition indicates semantically repeated same-type plans.
	TerminationReasonSmartRepetition TerminationReason = "smart_repetition"
	// TerminationReasonPersistentTaskDispatched indicates a successful hand-off
	// to the background task path.
	TerminationReasonPersistentTaskDispatched TerminationReason = "persistent_task_dispatched"
	// TerminationReasonFatigueExhausted indicates the fatigue budget is spent.
	TerminationReasonFatigueExhausted TerminationReason = "fatigue_exhausted"
	// TerminationReasonCumulativeTimeout indicates the wall-clock ceiling was hit.
	TerminationReasonCumulativeTimeout TerminationReason = "cumulative_timeout"
	// TerminationReasonMaxIterations indicates the iteration cap was hit.
	TerminationReasonMaxIterations TerminationReason = "max_iterations"
)

// IsSet reports whether a reason has been decided.
func (r TerminationReason) IsSet() bool {
	return r != TerminationReasonNone
}

// IsBudgetReason reports whether the reason was decided by the continuation
// governor rather than by plan inspection.
func (r TerminationReason) IsBudgetReason() bool {
	switch r {
	case TerminationReasonFatigueExhausted,
		TerminationReasonCumulativeTimeout,
		TerminationReasonMaxIterations:
		return true
	default:
		return false
	}
}

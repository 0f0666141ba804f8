// Package commbus provides CommBus Message Definitions.
//
// This module defines all message types published or handled inside an
// act-engine process. Messages are organized by domain.
//
// Categories:
//   - EVENT: Fire-and-forget, fan-out to subscribers
//   - QUERY: Request-response, single handler
//   - COMMAND: Fire-and-forget, single handler
package commbus

// =============================================================================
// MESSAGE CATEGORIES
// =============================================================================

// MessageCategory represents message routing categories.
type MessageCategory string

const (
	// MessageCategoryEvent represents fire-and-forget, fan-out to all subscribers.
	MessageCategoryEvent MessageCategory = "event"
	// MessageCategoryQuery represents request-response, single handler.
	MessageCategoryQuery MessageCategory = "query"
	// MessageCategoryCommand represents fire-and-forget, single handler.
	MessageCategoryCommand MessageCategory = "command"
)

// =============================================================================
// RUN LIFECYCLE EVENTS
// =============================================================================

// ActRunStarted is emitted when an act run begins.
// Subscribers: telemetry, metrics, trace logging.
type ActRunStarted struct {
	LoopID    string         `json:"loop_id"`
	Topic     string         `json:"topic"`
	SessionID string         `json:"session_id"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Category implements the Message interface.
func (m *ActRunStarted) Category() string { return string(MessageCategoryEvent) }

// ActIterationCompleted is emitted after each loop iteration.
// Subscribers: telemetry, metrics, progress broadcast.
type ActIterationCompleted struct {
	LoopID            string  `json:"loop_id"`
	Topic             string  `json:"topic"`
	SessionID         string  `json:"session_id"`
	Iteration         int     `json:"iteration"`
	DurationMS        int     `json:"duration_ms"`
	ExecutedCount     int     `json:"executed_count"`
	FatigueAfter      float64 `json:"fatigue_after"`
	TerminationReason string  `json:"termination_reason,omitempty"`
}

// Category implements the Message interface.
func (m *ActIterationCompleted) Category() string { return string(MessageCategoryEvent) }

// ActRunCompleted is emitted once per run, after the loop has settled on a
// termination reason. Carries the final fatigue and critic telemetry.
type ActRunCompleted struct {
	LoopID            string  `json:"loop_id"`
	Topic             string  `json:"topic"`
	SessionID         string  `json:"session_id"`
	TerminationReason string  `json:"termination_reason"`
	IterationsUsed    int     `json:"iterations_used"`
	FinalFatigue      float64 `json:"final_fatigue"`
	BudgetUtilization float64 `json:"budget_utilization"`
	NetValue          float64 `json:"net_value"`
	CriticEvaluations int     `json:"critic_evaluations"`
	CriticCorrections int     `json:"critic_corrections"`
}

// Category implements the Message interface.
func (m *ActRunCompleted) Category() string { return string(MessageCategoryEvent) }

// =============================================================================
// GUARD AND GOVERNOR EVENTS
// =============================================================================

// PivotHintInjected is emitted when the repetition guard injects a pivot
// advisory instead of terminating the run.
type PivotHintInjected struct {
	LoopID           string `json:"loop_id"`
	Topic            string `json:"topic"`
	ActionType       string `json:"action_type"`
	ConsecutiveCount int    `json:"consecutive_count"`
}

// Category implements the Message interface.
func (m *PivotHintInjected) Category() string { return string(MessageCategoryEvent) }

// BudgetWarningInjected is emitted when the loop warns the planner that the
// pending plan is predicted to exhaust the fatigue budget.
type BudgetWarningInjected struct {
	LoopID               string  `json:"loop_id"`
	Topic                string  `json:"topic"`
	PredictedUtilization float64 `json:"predicted_utilization"`
}

// Category implements the Message interface.
func (m *BudgetWarningInjected) Category() string { return string(MessageCategoryEvent) }

// =============================================================================
// CRITIC EVENTS
// =============================================================================

// CriticEscalationRaised is emitted when the critic pauses an unverified
// consequential action and notifies the user.
type CriticEscalationRaised struct {
	LoopID     string `json:"loop_id"`
	Topic      string `json:"topic"`
	ActionType string `json:"action_type"`
	Issue      string `json:"issue"`
}

// Category implements the Message interface.
func (m *CriticEscalationRaised) Category() string { return string(MessageCategoryEvent) }

// CriticOscillation is emitted when the critic retry ceiling is exhausted
// without a settled verdict for an action.
type CriticOscillation struct {
	LoopID     string `json:"loop_id"`
	Topic      string `json:"topic"`
	ActionType string `json:"action_type"`
	Attempts   int    `json:"attempts"`
}

// Category implements the Message interface.
func (m *CriticOscillation) Category() string { return string(MessageCategoryEvent) }

// =============================================================================
// HANDOFF EVENTS
// =============================================================================

// PersistentTaskHandedOff is emitted when a run terminates because a
// persistent task was dispatched to a long-running worker.
type PersistentTaskHandedOff struct {
	LoopID    string `json:"loop_id"`
	Topic     string `json:"topic"`
	Iteration int    `json:"iteration"`
}

// Category implements the Message interface.
func (m *PersistentTaskHandedOff) Category() string { return string(MessageCategoryEvent) }

// =============================================================================
// GENERIC TELEMETRY ENVELOPE
// =============================================================================

// LoopTelemetry is a generic envelope for telemetry events that have no
// dedicated message type. It routes under its own event type string.
type LoopTelemetry struct {
	EventType string         `json:"event_type"`
	Topic     string         `json:"topic"`
	Source    string         `json:"source"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Category implements the Message interface.
func (m *LoopTelemetry) Category() string { return string(MessageCategoryEvent) }

// MessageType implements the TypedMessage interface.
func (m *LoopTelemetry) MessageType() string { return m.EventType }

// =============================================================================
// CONFIGURATION QUERIES AND COMMANDS
// =============================================================================

// GetLoopConfig queries the effective loop and governor configuration.
type GetLoopConfig struct{}

// Category implements the Message interface.
func (m *GetLoopConfig) Category() string { return string(MessageCategoryQuery) }

// IsQuery implements the Query interface.
func (m *GetLoopConfig) IsQuery() {}

// LoopConfigResponse is the response for GetLoopConfig query.
type LoopConfigResponse struct {
	Loop     map[string]any `json:"loop"`
	Governor map[string]any `json:"governor"`
}

// UpdateLoopConfig applies overrides to the process-wide loop configuration.
// Fire-and-forget; invalid overrides are rejected by the handler.
type UpdateLoopConfig struct {
	Overrides map[string]any `json:"overrides"`
}

// Category implements the Message interface.
func (m *UpdateLoopConfig) Category() string { return string(MessageCategoryCommand) }

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// TypedMessage is an optional interface for messages that provide their own
// type name. Used by dynamically-typed messages like LoopTelemetry.
type TypedMessage interface {
	Message
	MessageType() string
}

// GetMessageType returns the type name of a message for routing.
func GetMessageType(msg Message) string {
	// First check if the message can provide its own type
	if typed, ok := msg.(TypedMessage); ok {
		return typed.MessageType()
	}

	// Otherwise use the static type switch
	switch msg.(type) {
	case *ActRunStarted:
		return "ActRunStarted"
	case *ActIterationCompleted:
		return "ActIterationCompleted"
	case *ActRunCompleted:
		return "ActRunCompleted"
	case *PivotHintInjected:
		return "PivotHintInjected"
	case *BudgetWarningInjected:
		return "BudgetWarningInjected"
	case *CriticEscalationRaised:
		return "CriticEscalationRaised"
	case *CriticOscillation:
		return "CriticOscillation"
	case *PersistentTaskHandedOff:
		return "PersistentTaskHandedOff"
	case *GetLoopConfig:
		return "GetLoopConfig"
	case *UpdateLoopConfig:
		return "UpdateLoopConfig"
	default:
		return "Unknown"
	}
}

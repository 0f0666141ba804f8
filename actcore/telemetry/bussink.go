package telemetry

import (
	"context"
	"errors"

	"github.com/jeeves-cluster-organization/actengine/actcore/typeutil"
	"github.com/jeeves-cluster-organization/actengine/commbus"
)

// BusSink publishes loop telemetry events onto the in-process commbus so
// fleet-side subscribers (metrics, supervisors) can observe runs without a
// storage dependency. Known event types map to their dedicated message
// structs; everything else travels in a LoopTelemetry envelope.
type BusSink struct {
	bus commbus.CommBus
}

// NewBusSink creates a BusSink publishing to the given bus.
func NewBusSink(bus commbus.CommBus) *BusSink {
	return &BusSink{bus: bus}
}

// LogEvent implements EventSink.
func (s *BusSink) LogEvent(ctx context.Context, eventType string, payload map[string]any, topic, source string) error {
	if s == nil || s.bus == nil {
		return errors.New("bus sink has no bus")
	}
	return s.bus.Publish(ctx, messageForEvent(eventType, payload, topic, source))
}

// messageForEvent maps a telemetry event to its commbus message.
func messageForEvent(eventType string, payload map[string]any, topic, source string) commbus.Message {
	str := func(key string) string { return typeutil.SafeStringDefault(payload[key], "") }
	num := func(key string) int { return typeutil.SafeIntDefault(payload[key], 0) }
	flt := func(key string) float64 { return typeutil.SafeFloat64Default(payload[key], 0) }

	switch eventType {
	case EventRunStarted:
		return &commbus.ActRunStarted{
			LoopID:    str("loop_id"),
			Topic:     topic,
			SessionID: str("session_id"),
		}
	case EventIterationCompleted:
		return &commbus.ActIterationCompleted{
			LoopID:            str("loop_id"),
			Topic:             topic,
			SessionID:         str("session_id"),
			Iteration:         num("iteration"),
			DurationMS:        num("duration_ms"),
			ExecutedCount:     num("executed_count"),
			FatigueAfter:      flt("fatigue_after"),
			TerminationReason: str("termination_reason"),
		}
	case EventRunCompleted:
		return &commbus.ActRunCompleted{
			LoopID:            str("loop_id"),
			Topic:             topic,
			SessionID:         str("session_id"),
			TerminationReason: str("termination_reason"),
			IterationsUsed:    num("iterations_used"),
			FinalFatigue:      flt("final_fatigue"),
			BudgetUtilization: flt("budget_utilization"),
			NetValue:          flt("net_value"),
			CriticEvaluations: num("critic_evaluations"),
			CriticCorrections: num("critic_corrections"),
		}
	case EventPivotHintInjected:
		return &commbus.PivotHintInjected{
			LoopID:           str("loop_id"),
			Topic:            topic,
			ActionType:       str("action_type"),
			ConsecutiveCount: num("consecutive_count"),
		}
	case EventBudgetWarningInjected:
		return &commbus.BudgetWarningInjected{
			LoopID:               str("loop_id"),
			Topic:                topic,
			PredictedUtilization: flt("predicted_utilization"),
		}
	case EventCriticEscalation:
		return &commbus.CriticEscalationRaised{
			LoopID:     str("loop_id"),
			Topic:      topic,
			ActionType: str("action_type"),
			Issue:      str("issue"),
		}
	case EventCriticOscillation:
		return &commbus.CriticOscillation{
			LoopID:     str("loop_id"),
			Topic:      topic,
			ActionType: str("action_type"),
			Attempts:   num("attempts"),
		}
	case EventPersistentTaskHandoff:
		return &commbus.PersistentTaskHandedOff{
			LoopID:    str("loop_id"),
			Topic:     topic,
			Iteration: num("iteration"),
		}
	default:
		return &commbus.LoopTelemetry{
			EventType: eventType,
			Topic:     topic,
			Source:    source,
			Payload:   payload,
		}
	}
}

var _ EventSink = (*BusSink)(nil)

// Package telemetry provides the sink contracts and best-effort recorder for
// act runs.
//
// The loop never talks to a sink directly: every batch flush and event
// emission goes through the Recorder, which catches sink errors and panics,
// logs them at warning level, and discards them. Sink failures must never
// change a run's outcome.
package telemetry

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/jeeves-cluster-organization/actengine/actcore/act"
)

// =============================================================================
// EVENT TYPES
// =============================================================================

// Event types emitted over the telemetry sink.
const (
	EventRunStarted            = "act_run_started"
	EventIterationCompleted    = "act_iteration_completed"
	EventRunCompleted          = "act_run_completed"
	EventPivotHintInjected     = "pivot_hint_injected"
	EventBudgetWarningInjected = "budget_warning_injected"
	EventCriticEscalation      = "critic_escalation_raised"
	EventCriticOscillation     = "critic_oscillation"
	EventPersistentTaskHandoff = "persistent_task_handed_off"
)

// SourceLoop is the source tag stamped on every event the loop emits.
const SourceLoop = "actengine.loop"

// =============================================================================
// SINK CONTRACTS
// =============================================================================

// LogSink persists per-iteration audit records. Implementations live outside
// this module (a database writer, a journald shipper); runs are grouped under
// a sink-issued run ID.
type LogSink interface {
	// CreateRunID allocates a new run identifier for a batch of iterations.
	CreateRunID(ctx context.Context) (string, error)

	// LogIterationsBatch persists all iteration records of a run in one call.
	LogIterationsBatch(ctx context.Context, runID, topic, sessionID string, iterations []act.IterationLog) error
}

// EventSink receives loop telemetry events.
type EventSink interface {
	// LogEvent records a single telemetry event.
	LogEvent(ctx context.Context, eventType string, payload map[string]any, topic, source string) error
}

// Logger is the logging interface used by the recorder.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// =============================================================================
// RECORDER
// =============================================================================

// Recorder is the single discard point for sink failures. All methods are
// best-effort: they never return errors and never panic.
type Recorder struct {
	logSink   LogSink
	eventSink EventSink
	logger    Logger
}

// NewRecorder creates a Recorder. Nil sinks disable the corresponding
// recording path; a nil logger silences failure reporting.
func NewRecorder(logSink LogSink, eventSink EventSink, logger Logger) *Recorder {
	return &Recorder{
		logSink:   logSink,
		eventSink: eventSink,
		logger:    logger,
	}
}

// FlushIterations persists the run's iteration records through the log sink.
// A failed run-ID allocation skips the batch entirely.
func (r *Recorder) FlushIterations(ctx context.Context, topic, sessionID string, iterations []act.IterationLog) {
	if r == nil || r.logSink == nil || len(iterations) == 0 {
		return
	}

	r.guard("flush_iterations", func() error {
		runID, err := r.logSink.CreateRunID(ctx)
		if err != nil {
			return fmt.Errorf("create run id: %w", err)
		}
		if err := r.logSink.LogIterationsBatch(ctx, runID, topic, sessionID, iterations); err != nil {
			return fmt.Errorf("log iterations batch: %w", err)
		}
		return nil
	})
}

// EmitEvent records a single telemetry event through the event sink.
func (r *Recorder) EmitEvent(ctx context.Context, eventType string, payload map[string]any, topic string) {
	if r == nil || r.eventSink == nil {
		return
	}

	r.guard("emit_event", func() error {
		return r.eventSink.LogEvent(ctx, eventType, payload, topic, SourceLoop)
	})
}

// guard runs a sink operation with panic recovery, logging any failure at
// warning level and swallowing it.
func (r *Recorder) guard(operation string, fn func() error) {
	var err error

	func() {
		defer func() {
			if rec := recover(); rec != nil {
				stack := string(debug.Stack())
				if r.logger != nil {
					r.logger.Warn("telemetry_panic_recovered",
						"operation", operation,
						"panic", rec,
						"stack", stack,
					)
				}
			}
		}()
		err = fn()
	}()

	if err != nil && r.logger != nil {
		r.logger.Warn("telemetry_discarded",
			"operation", operation,
			"error", err.Error(),
		)
	}
}

// =============================================================================
// NOP SINKS
// =============================================================================

// NopLogSink discards all iteration batches.
type NopLogSink struct{}

// CreateRunID implements LogSink.
func (NopLogSink) CreateRunID(ctx context.Context) (string, error) { return "", nil }

// LogIterationsBatch implements LogSink.
func (NopLogSink) LogIterationsBatch(ctx context.Context, runID, topic, sessionID string, iterations []act.IterationLog) error {
	return nil
}

// NopEventSink discards all events.
type NopEventSink struct{}

// LogEvent implements EventSink.
func (NopEventSink) LogEvent(ctx context.Context, eventType string, payload map[string]any, topic, source string) error {
	return nil
}

// =============================================================================
// MULTI SINK
// =============================================================================

// MultiEventSink fans an event out to several sinks. Every sink is attempted;
// errors are joined.
type MultiEventSink []EventSink

// LogEvent implements EventSink.
func (m MultiEventSink) LogEvent(ctx context.Context, eventType string, payload map[string]any, topic, source string) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.LogEvent(ctx, eventType, payload, topic, source); err != nil {
			errs = append(errs, err)
		}
	}
	return joinErrors(errs)
}

func joinErrors(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return fmt.Errorf("%d sinks failed, first: %w", len(errs), errs[0])
	}
}

// Interface assertions.
var (
	_ LogSink   = NopLogSink{}
	_ EventSink = NopEventSink{}
	_ EventSink = MultiEventSink(nil)
)

package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeeves-cluster-organization/actengine/actcore/act"
)

// =============================================================================
// TEST FAKES
// =============================================================================

type fakeLogSink struct {
	mu          sync.Mutex
	runID       string
	runIDErr    error
	batchErr    error
	panicOnCall bool

	createCalls int
	batches     []batchCall
}

type batchCall struct {
	runID      string
	topic      string
	sessionID  string
	iterations []act.IterationLog
}

func (f *fakeLogSink) CreateRunID(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOnCall {
		panic("log sink exploded")
	}
	f.createCalls++
	if f.runIDErr != nil {
		return "", f.runIDErr
	}
	return f.runID, nil
}

func (f *fakeLogSink) LogIterationsBatch(ctx context.Context, runID, topic, sessionID string, iterations []act.IterationLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, batchCall{
		runID:      runID,
		topic:      topic,
		sessionID:  sessionID,
		iterations: iterations,
	})
	return f.batchErr
}

type fakeEventSink struct {
	mu          sync.Mutex
	err         error
	panicOnCall bool

	events []eventCall
}

type eventCall struct {
	eventType string
	payload   map[string]any
	topic     string
	source    string
}

func (f *fakeEventSink) LogEvent(ctx context.Context, eventType string, payload map[string]any, topic, source string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOnCall {
		panic("event sink exploded")
	}
	f.events = append(f.events, eventCall{
		eventType: eventType,
		payload:   payload,
		topic:     topic,
		source:    source,
	})
	return f.err
}

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Debug(msg string, args ...any) {}
func (l *recordingLogger) Info(msg string, args ...any)  {}
func (l *recordingLogger) Warn(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}
func (l *recordingLogger) Error(msg string, args ...any) {}

func (l *recordingLogger) warnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warns)
}

func sampleIterations() []act.IterationLog {
	return []act.IterationLog{
		{Iteration: 0, PlannedActions: 2, ExecutedCount: 2, FatigueAfter: 2.0},
		{Iteration: 1, PlannedActions: 1, ExecutedCount: 1, FatigueAfter: 3.0, TerminationReason: "max_iterations"},
	}
}

// =============================================================================
// RECORDER FLUSH TESTS
// =============================================================================

func TestFlushIterationsPersistsBatch(t *testing.T) {
	sink := &fakeLogSink{runID: "run-42"}
	rec := NewRecorder(sink, nil, nil)

	rec.FlushIterations(context.Background(), "topic-1", "sess-1", sampleIterations())

	require.Len(t, sink.batches, 1)
	batch := sink.batches[0]
	assert.Equal(t, "run-42", batch.runID)
	assert.Equal(t, "topic-1", batch.topic)
	assert.Equal(t, "sess-1", batch.sessionID)
	assert.Len(t, batch.iterations, 2)
}

func TestFlushIterationsSkipsBatchWhenRunIDFails(t *testing.T) {
	// A failed run-ID allocation must skip the batch, not send it unkeyed.
	logger := &recordingLogger{}
	sink := &fakeLogSink{runIDErr: errors.New("sequence down")}
	rec := NewRecorder(sink, nil, logger)

	rec.FlushIterations(context.Background(), "topic-1", "sess-1", sampleIterations())

	assert.Empty(t, sink.batches)
	assert.Equal(t, 1, logger.warnCount())
}

func TestFlushIterationsSwallowsBatchError(t *testing.T) {
	logger := &recordingLogger{}
	sink := &fakeLogSink{runID: "run-42", batchErr: errors.New("disk full")}
	rec := NewRecorder(sink, nil, logger)

	rec.FlushIterations(context.Background(), "topic-1", "sess-1", sampleIterations())

	assert.Len(t, sink.batches, 1)
	assert.Equal(t, 1, logger.warnCount())
}

func TestFlushIterationsRecoversSinkPanic(t *testing.T) {
	logger := &recordingLogger{}
	sink := &fakeLogSink{panicOnCall: true}
	rec := NewRecorder(sink, nil, logger)

	assert.NotPanics(t, func() {
		rec.FlushIterations(context.Background(), "topic-1", "sess-1", sampleIterations())
	})
	assert.Equal(t, 1, logger.warnCount())
}

func TestFlushIterationsNoSinkNoIterations(t *testing.T) {
	// Nil sink and empty batches are both silent no-ops.
	sink := &fakeLogSink{runID: "run-42"}

	NewRecorder(nil, nil, nil).FlushIterations(context.Background(), "t", "s", sampleIterations())

	rec := NewRecorder(sink, nil, nil)
	rec.FlushIterations(context.Background(), "t", "s", nil)

	assert.Zero(t, sink.createCalls)
	assert.Empty(t, sink.batches)
}

// =============================================================================
// RECORDER EVENT TESTS
// =============================================================================

func TestEmitEventStampsLoopSource(t *testing.T) {
	sink := &fakeEventSink{}
	rec := NewRecorder(nil, sink, nil)

	rec.EmitEvent(context.Background(), EventRunCompleted, map[string]any{"loop_id": "l1"}, "topic-1")

	require.Len(t, sink.events, 1)
	ev := sink.events[0]
	assert.Equal(t, EventRunCompleted, ev.eventType)
	assert.Equal(t, "topic-1", ev.topic)
	assert.Equal(t, SourceLoop, ev.source)
	assert.Equal(t, "l1", ev.payload["loop_id"])
}

func TestEmitEventSwallowsSinkError(t *testing.T) {
	logger := &recordingLogger{}
	sink := &fakeEventSink{err: errors.New("collector offline")}
	rec := NewRecorder(nil, sink, logger)

	rec.EmitEvent(context.Background(), EventRunStarted, nil, "topic-1")

	assert.Equal(t, 1, logger.warnCount())
}

func TestEmitEventRecoversSinkPanic(t *testing.T) {
	logger := &recordingLogger{}
	sink := &fakeEventSink{panicOnCall: true}
	rec := NewRecorder(nil, sink, logger)

	assert.NotPanics(t, func() {
		rec.EmitEvent(context.Background(), EventRunStarted, nil, "topic-1")
	})
	assert.Equal(t, 1, logger.warnCount())
}

func TestRecorderNilReceiverSafe(t *testing.T) {
	var rec *Recorder

	assert.NotPanics(t, func() {
		rec.FlushIterations(context.Background(), "t", "s", sampleIterations())
		rec.EmitEvent(context.Background(), EventRunStarted, nil, "t")
	})
}

// =============================================================================
// SINK HELPER TESTS
// =============================================================================

func TestNopSinks(t *testing.T) {
	runID, err := NopLogSink{}.CreateRunID(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, runID)

	assert.NoError(t, NopLogSink{}.LogIterationsBatch(context.Background(), "r", "t", "s", sampleIterations()))
	assert.NoError(t, NopEventSink{}.LogEvent(context.Background(), EventRunStarted, nil, "t", SourceLoop))
}

func TestMultiEventSinkDeliversToAll(t *testing.T) {
	first := &fakeEventSink{}
	second := &fakeEventSink{}
	multi := MultiEventSink{first, nil, second}

	err := multi.LogEvent(context.Background(), EventRunCompleted, nil, "t", SourceLoop)

	assert.NoError(t, err)
	assert.Len(t, first.events, 1)
	assert.Len(t, second.events, 1)
}

func TestMultiEventSinkContinuesPastFailure(t *testing.T) {
	first := &fakeEventSink{err: errors.New("first down")}
	second := &fakeEventSink{}
	multi := MultiEventSink{first, second}

	err := multi.LogEvent(context.Background(), EventRunCompleted, nil, "t", SourceLoop)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "first down")
	assert.Len(t, second.events, 1)
}

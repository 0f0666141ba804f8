// Package testutil provides shared test utilities and mocks for integration tests.
//
// All mocks in this package are designed for testing the act engine components
// in isolation without requiring external dependencies.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jeeves-cluster-organization/actengine/actcore/act"
	"github.com/jeeves-cluster-organization/actengine/actcore/config"
	"github.com/jeeves-cluster-organization/actengine/actcore/critic"
	"github.com/jeeves-cluster-organization/actengine/actcore/loop"
	"github.com/jeeves-cluster-organization/actengine/actcore/repetition"
	"github.com/jeeves-cluster-organization/actengine/actcore/telemetry"
)

// =============================================================================
// MOCK PLAN PROVIDER
// =============================================================================

// MockPlanProvider implements loop.PlanProvider for testing.
// Configure a plan script, or set PlanFunc for custom logic.
type MockPlanProvider struct {
	// Plans is a script returned in call order; the last plan repeats once
	// the script is exhausted. An empty script yields empty plans.
	Plans []*act.Plan

	// PlanFunc allows custom generation logic.
	// If set, this is called instead of using Plans.
	PlanFunc func(context.Context, loop.PlanRequest) (*act.Plan, error)

	// Delay simulates model latency.
	Delay time.Duration

	// Error causes GeneratePlan to return this error.
	Error error

	// CallCount tracks the number of GeneratePlan calls.
	CallCount int

	// Requests records all calls for assertion.
	Requests []loop.PlanRequest

	mu sync.Mutex
}

// NewMockPlanProvider creates a MockPlanProvider with the given plan script.
func NewMockPlanProvider(plans ...*act.Plan) *MockPlanProvider {
	return &MockPlanProvider{Plans: plans}
}

// GeneratePlan implements loop.PlanProvider.
func (m *MockPlanProvider) GeneratePlan(ctx context.Context, req loop.PlanRequest) (*act.Plan, error) {
	m.mu.Lock()
	idx := m.CallCount
	m.CallCount++
	m.Requests = append(m.Requests, req)
	customFunc := m.PlanFunc
	m.mu.Unlock()

	if customFunc != nil {
		return customFunc(ctx, req)
	}

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.Error != nil {
		return nil, m.Error
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.Plans) == 0 {
		return &act.Plan{}, nil
	}
	if idx >= len(m.Plans) {
		idx = len(m.Plans) - 1
	}
	return m.Plans[idx].Clone(), nil
}

// WithError configures the mock to return an error.
func (m *MockPlanProvider) WithError(err error) *MockPlanProvider {
	m.Error = err
	return m
}

// WithDelay adds latency simulation.
func (m *MockPlanProvider) WithDelay(d time.Duration) *MockPlanProvider {
	m.Delay = d
	return m
}

// GetCallCount returns the number of calls (thread-safe).
func (m *MockPlanProvider) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// GetRequests returns recorded requests (thread-safe).
func (m *MockPlanProvider) GetRequests() []loop.PlanRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]loop.PlanRequest, len(m.Requests))
	copy(copied, m.Requests)
	return copied
}

// Reset clears call history.
func (m *MockPlanProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallCount = 0
	m.Requests = nil
}

// =============================================================================
// MOCK DISPATCHER
// =============================================================================

// MockDispatcher implements loop.Dispatcher for testing.
type MockDispatcher struct {
	// Statuses maps action types to the status their results report.
	// Types missing from the map succeed.
	Statuses map[string]act.ActionStatus

	// Payloads maps action types to a fixed result payload.
	Payloads map[string]string

	// ExecuteError causes ExecuteActions to return this error.
	ExecuteError error

	// DispatchError causes DispatchAction to return this error.
	DispatchError error

	// Delay simulates execution latency.
	Delay time.Duration

	// CallCount tracks executed actions across all batches.
	CallCount int

	// ExecuteCalls records each batch passed to ExecuteActions.
	ExecuteCalls [][]act.ActionSpec

	// DispatchCalls records every single-action re-dispatch.
	DispatchCalls []act.ActionSpec

	mu sync.Mutex
}

// NewMockDispatcher creates a MockDispatcher where every action succeeds.
func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{
		Statuses: make(map[string]act.ActionStatus),
		Payloads: make(map[string]string),
	}
}

// ExecuteActions implements loop.Dispatcher.
func (m *MockDispatcher) ExecuteActions(ctx context.Context, topic string, actions []act.ActionSpec) ([]act.ActionResult, error) {
	m.mu.Lock()
	m.ExecuteCalls = append(m.ExecuteCalls, actions)
	m.CallCount += len(actions)
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.ExecuteError != nil {
		return nil, m.ExecuteError
	}

	results := make([]act.ActionResult, len(actions))
	for i, a := range actions {
		results[i] = m.resultFor(a)
	}
	return results, nil
}

// DispatchAction implements loop.Dispatcher (and critic.Redispatcher).
func (m *MockDispatcher) DispatchAction(ctx context.Context, topic string, action act.ActionSpec) (act.ActionResult, error) {
	m.mu.Lock()
	m.DispatchCalls = append(m.DispatchCalls, action)
	m.mu.Unlock()

	if m.DispatchError != nil {
		return act.ActionResult{}, m.DispatchError
	}

	return m.resultFor(action), nil
}

func (m *MockDispatcher) resultFor(action act.ActionSpec) act.ActionResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	status, ok := m.Statuses[action.Type]
	if !ok {
		status = act.ActionStatusSuccess
	}
	payload, ok := m.Payloads[action.Type]
	if !ok {
		payload = fmt.Sprintf("mock result for %s", action.Type)
	}

	return act.ActionResult{
		ActionType:    action.Type,
		Status:        status,
		Result:        payload,
		ExecutionTime: 0.01,
	}
}

// WithStatus configures the status reported for an action type.
func (m *MockDispatcher) WithStatus(actionType string, status act.ActionStatus) *MockDispatcher {
	m.Statuses[actionType] = status
	return m
}

// WithPayload configures the result payload for an action type.
func (m *MockDispatcher) WithPayload(actionType, payload string) *MockDispatcher {
	m.Payloads[actionType] = payload
	return m
}

// WithExecuteError configures batch execution to fail.
func (m *MockDispatcher) WithExecuteError(err error) *MockDispatcher {
	m.ExecuteError = err
	return m
}

// WithDispatchError configures single re-dispatch to fail.
func (m *MockDispatcher) WithDispatchError(err error) *MockDispatcher {
	m.DispatchError = err
	return m
}

// GetCallCount returns the number of executed actions (thread-safe).
func (m *MockDispatcher) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// GetExecuteCalls returns recorded batches (thread-safe).
func (m *MockDispatcher) GetExecuteCalls() [][]act.ActionSpec {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([][]act.ActionSpec, len(m.ExecuteCalls))
	copy(copied, m.ExecuteCalls)
	return copied
}

// GetDispatchCalls returns recorded re-dispatches (thread-safe).
func (m *MockDispatcher) GetDispatchCalls() []act.ActionSpec {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]act.ActionSpec, len(m.DispatchCalls))
	copy(copied, m.DispatchCalls)
	return copied
}

// Reset clears call history.
func (m *MockDispatcher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallCount = 0
	m.ExecuteCalls = nil
	m.DispatchCalls = nil
}

// =============================================================================
// MOCK JUDGE
// =============================================================================

// MockJudge implements critic.Judge for testing.
type MockJudge struct {
	// Verdicts is a script consumed per Evaluate call; once exhausted, the
	// judge verifies everything.
	Verdicts []critic.Verdict

	// SkipTypes are exempted from review entirely.
	SkipTypes map[string]bool

	// UnsafeTypes are treated as consequential and never auto-retried.
	UnsafeTypes map[string]bool

	// Cost is the fatigue charge per evaluation.
	Cost float64

	// Error causes Evaluate to return this error.
	Error error

	// CallCount tracks Evaluate calls.
	CallCount int

	// Evaluated records evaluated action types in order.
	Evaluated []string

	mu sync.Mutex
}

// NewMockJudge creates a MockJudge that verifies everything at 0.1 cost.
func NewMockJudge() *MockJudge {
	return &MockJudge{
		SkipTypes:   make(map[string]bool),
		UnsafeTypes: make(map[string]bool),
		Cost:        0.1,
	}
}

// ShouldSkip implements critic.Judge.
func (m *MockJudge) ShouldSkip(actionType string, result act.ActionResult) bool {
	return m.SkipTypes[actionType]
}

// Evaluate implements critic.Judge.
func (m *MockJudge) Evaluate(ctx context.Context, originalRequest, actionType, actionIntent string, result act.ActionResult) (critic.Verdict, error) {
	m.mu.Lock()
	idx := m.CallCount
	m.CallCount++
	m.Evaluated = append(m.Evaluated, actionType)
	m.mu.Unlock()

	if m.Error != nil {
		return critic.Verdict{}, m.Error
	}

	if idx < len(m.Verdicts) {
		return m.Verdicts[idx], nil
	}
	return critic.Verdict{Verified: true}, nil
}

// IsSafeAction implements critic.Judge.
func (m *MockJudge) IsSafeAction(actionType string) bool {
	return !m.UnsafeTypes[actionType]
}

// EvaluationCost implements critic.Judge.
func (m *MockJudge) EvaluationCost() float64 {
	return m.Cost
}

// WithVerdicts sets the verdict script.
func (m *MockJudge) WithVerdicts(verdicts ...critic.Verdict) *MockJudge {
	m.Verdicts = verdicts
	return m
}

// WithUnsafe marks action types as consequential.
func (m *MockJudge) WithUnsafe(actionTypes ...string) *MockJudge {
	for _, t := range actionTypes {
		m.UnsafeTypes[t] = true
	}
	return m
}

// WithSkip exempts action types from review.
func (m *MockJudge) WithSkip(actionTypes ...string) *MockJudge {
	for _, t := range actionTypes {
		m.SkipTypes[t] = true
	}
	return m
}

// WithError configures Evaluate to fail.
func (m *MockJudge) WithError(err error) *MockJudge {
	m.Error = err
	return m
}

// GetCallCount returns the number of evaluations (thread-safe).
func (m *MockJudge) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// Reset clears call history.
func (m *MockJudge) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallCount = 0
	m.Evaluated = nil
}

// =============================================================================
// MOCK ESCALATION CHANNEL
// =============================================================================

// EscalationMessage records a single user notification.
type EscalationMessage struct {
	Topic    string
	Text     string
	Metadata map[string]any
}

// MockEscalation implements critic.EscalationChannel for testing.
type MockEscalation struct {
	// Error causes NotifyUser to return this error.
	Error error

	// Messages records all notifications.
	Messages []EscalationMessage

	mu sync.Mutex
}

// NewMockEscalation creates a MockEscalation.
func NewMockEscalation() *MockEscalation {
	return &MockEscalation{}
}

// NotifyUser implements critic.EscalationChannel.
func (m *MockEscalation) NotifyUser(ctx context.Context, topic, text string, metadata map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Error != nil {
		return m.Error
	}

	m.Messages = append(m.Messages, EscalationMessage{Topic: topic, Text: text, Metadata: metadata})
	return nil
}

// GetMessages returns recorded notifications (thread-safe).
func (m *MockEscalation) GetMessages() []EscalationMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]EscalationMessage, len(m.Messages))
	copy(copied, m.Messages)
	return copied
}

// =============================================================================
// MOCK EMBEDDER
// =============================================================================

// MockEmbedder implements repetition.Embedder for testing.
type MockEmbedder struct {
	// Vectors maps exact text to its embedding.
	Vectors map[string][]float64

	// DefaultVector is returned for texts missing from Vectors.
	DefaultVector []float64

	// Error causes Embed to return this error.
	Error error

	// CallCount tracks Embed calls.
	CallCount int

	mu sync.Mutex
}

// NewMockEmbedder creates a MockEmbedder with a fixed default vector.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Vectors:       make(map[string][]float64),
		DefaultVector: []float64{1, 0, 0},
	}
}

// Embed implements repetition.Embedder.
func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	m.mu.Lock()
	m.CallCount++
	m.mu.Unlock()

	if m.Error != nil {
		return nil, m.Error
	}

	if vec, ok := m.Vectors[text]; ok {
		return vec, nil
	}
	return m.DefaultVector, nil
}

// WithVector maps a text to an embedding.
func (m *MockEmbedder) WithVector(text string, vec []float64) *MockEmbedder {
	m.Vectors[text] = vec
	return m
}

// WithError configures Embed to fail.
func (m *MockEmbedder) WithError(err error) *MockEmbedder {
	m.Error = err
	return m
}

// GetCallCount returns the number of Embed calls (thread-safe).
func (m *MockEmbedder) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// =============================================================================
// MOCK TELEMETRY SINKS
// =============================================================================

// IterationBatch records one persisted batch of iteration logs.
type IterationBatch struct {
	RunID      string
	Topic      string
	SessionID  string
	Iterations []act.IterationLog
}

// MockLogSink implements telemetry.LogSink for testing.
type MockLogSink struct {
	// RunID is returned by CreateRunID.
	RunID string

	// CreateError causes CreateRunID to fail.
	CreateError error

	// WriteError causes LogIterationsBatch to fail.
	WriteError error

	// Batches records every persisted batch.
	Batches []IterationBatch

	mu sync.Mutex
}

// NewMockLogSink creates a MockLogSink issuing a fixed run ID.
func NewMockLogSink() *MockLogSink {
	return &MockLogSink{RunID: "run-test"}
}

// CreateRunID implements telemetry.LogSink.
func (m *MockLogSink) CreateRunID(ctx context.Context) (string, error) {
	if m.CreateError != nil {
		return "", m.CreateError
	}
	return m.RunID, nil
}

// LogIterationsBatch implements telemetry.LogSink.
func (m *MockLogSink) LogIterationsBatch(ctx context.Context, runID, topic, sessionID string, iterations []act.IterationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.WriteError != nil {
		return m.WriteError
	}

	m.Batches = append(m.Batches, IterationBatch{
		RunID:      runID,
		Topic:      topic,
		SessionID:  sessionID,
		Iterations: iterations,
	})
	return nil
}

// GetBatches returns persisted batches (thread-safe).
func (m *MockLogSink) GetBatches() []IterationBatch {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]IterationBatch, len(m.Batches))
	copy(copied, m.Batches)
	return copied
}

// RecordedEvent is a single captured telemetry event.
type RecordedEvent struct {
	Type    string
	Payload map[string]any
	Topic   string
	Source  string
}

// MockEventSink implements telemetry.EventSink for testing.
type MockEventSink struct {
	// Error causes LogEvent to return this error.
	Error error

	// Events records all emitted events in order.
	Events []RecordedEvent

	mu sync.Mutex
}

// NewMockEventSink creates a MockEventSink.
func NewMockEventSink() *MockEventSink {
	return &MockEventSink{}
}

// LogEvent implements telemetry.EventSink.
func (m *MockEventSink) LogEvent(ctx context.Context, eventType string, payload map[string]any, topic, source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Error != nil {
		return m.Error
	}

	m.Events = append(m.Events, RecordedEvent{
		Type:    eventType,
		Payload: payload,
		Topic:   topic,
		Source:  source,
	})
	return nil
}

// EventTypes returns the emitted event types in order (thread-safe).
func (m *MockEventSink) EventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	types := make([]string, len(m.Events))
	for i, e := range m.Events {
		types[i] = e.Type
	}
	return types
}

// FindEvent returns the first event with the given type.
func (m *MockEventSink) FindEvent(eventType string) (RecordedEvent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.Events {
		if e.Type == eventType {
			return e, true
		}
	}
	return RecordedEvent{}, false
}

// Clear removes all captured events.
func (m *MockEventSink) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = nil
}

// =============================================================================
// MOCK OFFER STORE
// =============================================================================

// MockOfferStore implements loop.OfferStore for testing.
type MockOfferStore struct {
	// Offers are returned for every topic.
	Offers []loop.OfferCard

	// Error causes ListOffers to return this error.
	Error error

	// CallCount tracks ListOffers calls.
	CallCount int

	mu sync.Mutex
}

// NewMockOfferStore creates a MockOfferStore with the given pending offers.
func NewMockOfferStore(offers ...loop.OfferCard) *MockOfferStore {
	return &MockOfferStore{Offers: offers}
}

// ListOffers implements loop.OfferStore.
func (m *MockOfferStore) ListOffers(ctx context.Context, topic string) ([]loop.OfferCard, error) {
	m.mu.Lock()
	m.CallCount++
	m.mu.Unlock()

	if m.Error != nil {
		return nil, m.Error
	}

	copied := make([]loop.OfferCard, len(m.Offers))
	copy(copied, m.Offers)
	return copied, nil
}

// =============================================================================
// MOCK SKILL RECORDER
// =============================================================================

// MockSkillRecorder implements loop.SkillRecorder for testing.
type MockSkillRecorder struct {
	// Error causes RecordOutcome to return this error.
	Error error

	// Outcomes records every received result.
	Outcomes []act.ActionResult

	mu sync.Mutex
}

// NewMockSkillRecorder creates a MockSkillRecorder.
func NewMockSkillRecorder() *MockSkillRecorder {
	return &MockSkillRecorder{}
}

// RecordOutcome implements loop.SkillRecorder.
func (m *MockSkillRecorder) RecordOutcome(ctx context.Context, topic string, result act.ActionResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Error != nil {
		return m.Error
	}

	m.Outcomes = append(m.Outcomes, result)
	return nil
}

// GetOutcomes returns recorded outcomes (thread-safe).
func (m *MockSkillRecorder) GetOutcomes() []act.ActionResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]act.ActionResult, len(m.Outcomes))
	copy(copied, m.Outcomes)
	return copied
}

// =============================================================================
// MOCK LOGGER
// =============================================================================

// MockLogger implements loop.Logger for testing.
type MockLogger struct {
	// Logs captures all log entries.
	Logs []LogEntry

	mu sync.Mutex
}

// LogEntry represents a captured log entry.
type LogEntry struct {
	Level   string
	Message string
	Fields  map[string]any
}

// NewMockLogger creates a MockLogger.
func NewMockLogger() *MockLogger {
	return &MockLogger{
		Logs: make([]LogEntry, 0),
	}
}

func (m *MockLogger) Debug(msg string, fields ...any) {
	m.log("debug", msg, fields...)
}

func (m *MockLogger) Info(msg string, fields ...any) {
	m.log("info", msg, fields...)
}

func (m *MockLogger) Warn(msg string, fields ...any) {
	m.log("warn", msg, fields...)
}

func (m *MockLogger) Error(msg string, fields ...any) {
	m.log("error", msg, fields...)
}

func (m *MockLogger) Bind(fields ...any) loop.Logger {
	return m
}

func (m *MockLogger) log(level, msg string, keysAndValues ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fields := make(map[string]any)
	for i := 0; i < len(keysAndValues)-1; i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}

	m.Logs = append(m.Logs, LogEntry{
		Level:   level,
		Message: msg,
		Fields:  fields,
	})
}

// GetLogs returns captured logs (thread-safe).
func (m *MockLogger) GetLogs() []LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]LogEntry, len(m.Logs))
	copy(copied, m.Logs)
	return copied
}

// HasLog checks if a log message exists at the given level.
func (m *MockLogger) HasLog(level, message string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, entry := range m.Logs {
		if entry.Level == level && entry.Message == message {
			return true
		}
	}
	return false
}

// Clear removes all captured logs.
func (m *MockLogger) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = nil
}

// =============================================================================
// CONFIG HELPERS
// =============================================================================

// NewTestLoopConfig creates a loop config with tight ceilings for tests.
// Smart repetition is off; tests that need it register an embedder anyway.
func NewTestLoopConfig() *config.LoopConfig {
	cfg := config.DefaultLoopConfig()
	cfg.MaxIterations = 5
	cfg.CumulativeTimeoutSeconds = 30
	cfg.PerActionTimeoutSeconds = 5
	cfg.SmartRepetition = false
	return cfg
}

// NewTestGovernorConfig creates a governor config with a flat cost model:
// every action costs 1.0 and fatigue does not compound.
func NewTestGovernorConfig(budget float64) *config.GovernorConfig {
	return &config.GovernorConfig{
		FatigueBudget:     budget,
		FatigueGrowthRate: 1.0,
		ActionCosts:       map[string]float64{},
		DefaultActionCost: 1.0,
	}
}

// NewTestPlan creates a plan with one action per type.
func NewTestPlan(types ...string) *act.Plan {
	actions := make([]act.ActionSpec, len(types))
	for i, t := range types {
		actions[i] = act.ActionSpec{Type: t, Query: "query for " + t}
	}
	return &act.Plan{Actions: actions, Confidence: 0.9}
}

// =============================================================================
// ASSERTION HELPERS
// =============================================================================

// AssertTerminated checks that the run ended for the expected reason.
func AssertTerminated(result *act.Result, reason act.TerminationReason) error {
	if result == nil {
		return fmt.Errorf("expected a result, got nil")
	}
	if result.TerminationReason != reason {
		return fmt.Errorf("expected termination reason '%s', got '%s'", reason, result.TerminationReason)
	}
	return nil
}

// AssertHistoryTypes checks the action types of the visible history in order.
func AssertHistoryTypes(result *act.Result, types ...string) error {
	if result == nil {
		return fmt.Errorf("expected a result, got nil")
	}
	if len(result.ActHistory) != len(types) {
		return fmt.Errorf("expected %d history entries, got %d", len(types), len(result.ActHistory))
	}
	for i, t := range types {
		if result.ActHistory[i].ActionType != t {
			return fmt.Errorf("history[%d]: expected action type '%s', got '%s'", i, t, result.ActHistory[i].ActionType)
		}
	}
	return nil
}

// Interface assertions.
var (
	_ loop.PlanProvider        = (*MockPlanProvider)(nil)
	_ loop.Dispatcher          = (*MockDispatcher)(nil)
	_ loop.OfferStore          = (*MockOfferStore)(nil)
	_ loop.SkillRecorder       = (*MockSkillRecorder)(nil)
	_ loop.Logger              = (*MockLogger)(nil)
	_ critic.Judge             = (*MockJudge)(nil)
	_ critic.Redispatcher      = (*MockDispatcher)(nil)
	_ critic.EscalationChannel = (*MockEscalation)(nil)
	_ repetition.Embedder      = (*MockEmbedder)(nil)
	_ telemetry.LogSink        = (*MockLogSink)(nil)
	_ telemetry.EventSink      = (*MockEventSink)(nil)
)

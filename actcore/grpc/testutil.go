package grpc

// Shared test utilities. Helpers live in the package itself so the unit
// and integration tests can both use them, following stdlib patterns
// (net/http/httptest, testing/iotest).

import (
	"context"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// =============================================================================
// LOGGER MOCKS
// =============================================================================

// LogCall represents a single log call with message and structured fields.
type LogCall struct {
	Message string
	Fields  map[string]any
}

// TestLogger is a mock logger that captures structured key-value pairs.
// Safe for concurrent use; server interceptors log from other goroutines.
type TestLogger struct {
	mu         sync.Mutex
	DebugCalls []LogCall
	InfoCalls  []LogCall
	WarnCalls  []LogCall
	ErrorCalls []LogCall
}

func (l *TestLogger) Debug(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.DebugCalls = append(l.DebugCalls, LogCall{Message: msg, Fields: toMap(msg, keysAndValues)})
}

func (l *TestLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.InfoCalls = append(l.InfoCalls, LogCall{Message: msg, Fields: toMap(msg, keysAndValues)})
}

func (l *TestLogger) Warn(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.WarnCalls = append(l.WarnCalls, LogCall{Message: msg, Fields: toMap(msg, keysAndValues)})
}

func (l *TestLogger) Error(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ErrorCalls = append(l.ErrorCalls, LogCall{Message: msg, Fields: toMap(msg, keysAndValues)})
}

// toMap converts key-value pairs to a map for structured assertions.
func toMap(msg string, keysAndValues []any) map[string]any {
	m := map[string]any{"msg": msg}
	for i := 0; i < len(keysAndValues)-1; i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			m[key] = keysAndValues[i+1]
		}
	}
	return m
}

// HasDebugMessage checks if any debug call matches the given message.
func (l *TestLogger) HasDebugMessage(msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return hasMessage(l.DebugCalls, msg)
}

// HasInfoMessage checks if any info call matches the given message.
func (l *TestLogger) HasInfoMessage(msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return hasMessage(l.InfoCalls, msg)
}

// HasErrorMessage checks if any error call matches the given message.
func (l *TestLogger) HasErrorMessage(msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return hasMessage(l.ErrorCalls, msg)
}

// CountInfoMessage counts info calls matching the given message.
func (l *TestLogger) CountInfoMessage(msg string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, call := range l.InfoCalls {
		if call.Message == msg {
			n++
		}
	}
	return n
}

func hasMessage(calls []LogCall, msg string) bool {
	for _, call := range calls {
		if call.Message == msg {
			return true
		}
	}
	return false
}

// =============================================================================
// TEST SERVER FACTORY
// =============================================================================

// CreateTestOpsServer creates an OpsServer with a capturing logger.
func CreateTestOpsServer() (*OpsServer, *TestLogger) {
	logger := &TestLogger{}
	server := NewOpsServer(logger)
	return server, logger
}

// =============================================================================
// MOCK GRPC STREAMS
// =============================================================================

// MockServerStream implements grpc.ServerStream for testing interceptors.
type MockServerStream struct {
	grpc.ServerStream // Embed for default implementations
	ctx               context.Context
}

// NewMockServerStream creates a new mock server stream.
func NewMockServerStream(ctx context.Context) *MockServerStream {
	return &MockServerStream{ctx: ctx}
}

func (m *MockServerStream) Context() context.Context {
	if m.ctx != nil {
		return m.ctx
	}
	return context.Background()
}

// =============================================================================
// TEST CONTEXT HELPERS
// =============================================================================

// ContextWithSessionMetadata creates a context with session/request metadata,
// for testing RPC methods that read request-scoped identifiers.
func ContextWithSessionMetadata(sessionID, requestID string) context.Context {
	md := metadata.Pairs(
		"session_id", sessionID,
		"request_id", requestID,
	)
	return metadata.NewIncomingContext(context.Background(), md)
}

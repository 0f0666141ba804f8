// Package grpc provides the operations endpoint for the act engine daemon.
// The endpoint serves gRPC health checking and server reflection; engine
// readiness is reported by flipping the health status of ServiceEngine.
package grpc

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Logger interface for the server.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// ServiceEngine is the health service name probes use to ask whether the
// engine accepts new act runs. The empty service name reports overall
// process health.
const ServiceEngine = "actengine.Engine"

// =============================================================================
// OPS SERVER
// =============================================================================

// OpsServer bundles the services exposed on the operations endpoint.
// Thread-safe: the underlying health server synchronizes status updates.
type OpsServer struct {
	logger Logger
	health *health.Server
}

// NewOpsServer creates an ops server. ServiceEngine starts as NOT_SERVING
// until the daemon marks the engine ready.
func NewOpsServer(logger Logger) *OpsServer {
	hs := health.NewServer()
	hs.SetServingStatus(ServiceEngine, healthpb.HealthCheckResponse_NOT_SERVING)

	return &OpsServer{
		logger: logger,
		health: hs,
	}
}

// Register attaches the health and reflection services to a gRPC server.
func (o *OpsServer) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, o.health)
	reflection.Register(s)
}

// SetServing marks a service as healthy.
func (o *OpsServer) SetServing(service string) {
	o.health.SetServingStatus(service, healthpb.HealthCheckResponse_SERVING)
	o.logger.Info("health_status_changed",
		"service", service,
		"status", "SERVING",
	)
}

// SetNotServing marks a service as unhealthy.
func (o *OpsServer) SetNotServing(service string) {
	o.health.SetServingStatus(service, healthpb.HealthCheckResponse_NOT_SERVING)
	o.logger.Info("health_status_changed",
		"service", service,
		"status", "NOT_SERVING",
	)
}

// Shutdown moves every registered service to NOT_SERVING and ignores
// further status updates until Resume is called.
func (o *OpsServer) Shutdown() {
	o.health.Shutdown()
	o.logger.Info("health_shutdown")
}

// Resume moves every registered service back to SERVING and accepts
// status updates again.
func (o *OpsServer) Resume() {
	o.health.Resume()
	o.logger.Info("health_resumed")
}

// =============================================================================
// GRACEFUL SERVER
// =============================================================================

// GracefulServer wraps a gRPC server with graceful shutdown support.
// It listens for context cancellation and shuts down cleanly, draining
// in-flight RPCs after the health service reports NOT_SERVING.
type GracefulServer struct {
	grpcServer *grpc.Server
	ops        *OpsServer
	address    string
	listener   net.Listener
	shutdownMu sync.Mutex
	isShutdown bool
}

// NewGracefulServer creates a GracefulServer with the ops services
// registered. When no options are given, the standard interceptor stack
// from ServerOptions is applied.
func NewGracefulServer(ops *OpsServer, address string, opts ...grpc.ServerOption) (*GracefulServer, error) {
	if len(opts) == 0 {
		opts = ServerOptions(ops.logger)
	}

	grpcServer := grpc.NewServer(opts...)
	ops.Register(grpcServer)

	return &GracefulServer{
		grpcServer: grpcServer,
		ops:        ops,
		address:    address,
	}, nil
}

// Start starts the server and blocks until ctx is cancelled.
// When ctx is cancelled, it performs graceful shutdown.
func (s *GracefulServer) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = lis

	s.ops.logger.Info("grpc_server_started",
		"address", lis.Addr().String(),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := s.grpcServer.Serve(lis); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.ops.logger.Info("grpc_graceful_shutdown_initiated",
			"reason", ctx.Err().Error(),
		)
		s.GracefulStop()
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}
}

// StartBackground starts the server in a goroutine.
// Returns a channel that receives errors.
func (s *GracefulServer) StartBackground() (<-chan error, error) {
	lis, err := net.Listen("tcp", s.address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = lis

	s.ops.logger.Info("grpc_server_started_background",
		"address", lis.Addr().String(),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := s.grpcServer.Serve(lis); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	return errCh, nil
}

// GracefulStop gracefully stops the server.
// Health flips to NOT_SERVING first so probes stop routing new work,
// then existing connections are drained.
func (s *GracefulServer) GracefulStop() {
	s.shutdownMu.Lock()
	defer s.shutdownMu.Unlock()

	if s.isShutdown {
		return
	}
	s.isShutdown = true

	s.ops.logger.Info("grpc_graceful_stop_started")
	s.ops.Shutdown()
	s.grpcServer.GracefulStop()
	s.ops.logger.Info("grpc_graceful_stop_completed")
}

// Stop immediately stops the server.
// Use GracefulStop for production; this is for emergency shutdown.
func (s *GracefulServer) Stop() {
	s.shutdownMu.Lock()
	defer s.shutdownMu.Unlock()

	if s.isShutdown {
		return
	}
	s.isShutdown = true

	s.ops.logger.Warn("grpc_immediate_stop")
	s.ops.Shutdown()
	s.grpcServer.Stop()
}

// ShutdownWithTimeout performs graceful shutdown with a timeout.
// If shutdown doesn't complete within timeout, it forces an immediate stop.
func (s *GracefulServer) ShutdownWithTimeout(timeout time.Duration) {
	done := make(chan struct{})

	go func() {
		s.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		return
	case <-time.After(timeout):
		s.ops.logger.Warn("grpc_graceful_shutdown_timeout",
			"timeout_ms", timeout.Milliseconds(),
		)
		s.grpcServer.Stop()
	}
}

// GetGRPCServer returns the underlying grpc.Server.
func (s *GracefulServer) GetGRPCServer() *grpc.Server {
	return s.grpcServer
}

// Address returns the server address. After Start or StartBackground it
// is the bound listener address, which resolves ":0" to the chosen port.
func (s *GracefulServer) Address() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.address
}

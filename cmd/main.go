// Act Engine Ops Daemon
//
// Standalone operations endpoint for processes embedding the act engine.
// Serves gRPC health checking and server reflection, Prometheus metrics over
// HTTP, and the in-process commbus surface for configuration queries.
//
// Usage:
//
//	go run ./cmd                        # Defaults (:50051 gRPC, :9090 metrics)
//	go run ./cmd -config ops.yaml       # YAML file over defaults
//	go run ./cmd -grpc-addr :8080       # Individual flag overrides
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jeeves-cluster-organization/actengine/actcore/config"
	"github.com/jeeves-cluster-organization/actengine/actcore/grpc"
	"github.com/jeeves-cluster-organization/actengine/actcore/observability"
	"github.com/jeeves-cluster-organization/actengine/commbus"
)

// stdLogger implements grpc.Logger using standard library log.
type stdLogger struct{}

func (l *stdLogger) Debug(msg string, keysAndValues ...any) {
	log.Printf("[DEBUG] %s %v", msg, keysAndValues)
}

func (l *stdLogger) Info(msg string, keysAndValues ...any) {
	log.Printf("[INFO] %s %v", msg, keysAndValues)
}

func (l *stdLogger) Warn(msg string, keysAndValues ...any) {
	log.Printf("[WARN] %s %v", msg, keysAndValues)
}

func (l *stdLogger) Error(msg string, keysAndValues ...any) {
	log.Printf("[ERROR] %s %v", msg, keysAndValues)
}

func main() {
	configPath := flag.String("config", "", "path to YAML ops config")
	grpcAddr := flag.String("grpc-addr", "", "gRPC listen address (overrides config)")
	metricsAddr := flag.String("metrics-addr", "", "metrics listen address (overrides config)")
	otlpEndpoint := flag.String("otlp-endpoint", "", "OTLP collector endpoint (overrides config)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *grpcAddr != "" {
		cfg.GRPCAddr = *grpcAddr
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if *otlpEndpoint != "" {
		cfg.OTLPEndpoint = *otlpEndpoint
	}

	// Publish the loop and governor tables for everything in this process.
	if cfg.Loop != nil {
		config.SetLoopConfig(cfg.Loop)
	}
	if cfg.Governor != nil {
		config.SetGovernorConfig(cfg.Governor)
	}

	logger := &stdLogger{}
	logger.Info("act_engine_starting",
		"version", "1.0.0",
		"grpc_addr", cfg.GRPCAddr,
		"metrics_addr", cfg.MetricsAddr,
	)

	grace := time.Duration(cfg.ShutdownGraceSeconds * float64(time.Second))

	// Optional trace export.
	if cfg.OTLPEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(cfg.ServiceName, cfg.OTLPEndpoint)
		if err != nil {
			log.Fatalf("Failed to init tracer: %v", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), grace)
			defer cancel()
			if err := shutdownTracer(ctx); err != nil {
				logger.Warn("tracer_shutdown_failed", "error", err.Error())
			}
		}()
		logger.Info("tracing_enabled", "endpoint", cfg.OTLPEndpoint)
	}

	// In-process commbus: config introspection plus a run-completion log tap.
	bus := commbus.NewInMemoryCommBus(30 * time.Second)
	bus.AddMiddleware(commbus.NewLoggingMiddleware("info"))
	bus.AddMiddleware(commbus.NewCircuitBreakerMiddleware(5, 30*time.Second, []string{"GetLoopConfig"}))
	if err := registerBusHandlers(bus, logger); err != nil {
		log.Fatalf("Failed to register bus handlers: %v", err)
	}

	// Ops gRPC endpoint: health + reflection behind the interceptor chain.
	ops := grpc.NewOpsServer(logger)
	server, err := grpc.NewGracefulServer(ops, cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("Failed to create gRPC server: %v", err)
	}
	grpcErrCh, err := server.StartBackground()
	if err != nil {
		log.Fatalf("Failed to start gRPC server: %v", err)
	}

	metricsServer := startMetricsServer(cfg.MetricsAddr, logger)

	// Everything is listening; report the engine as serving.
	ops.SetServing(grpc.ServiceEngine)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	fmt.Printf("\nAct Engine ops endpoint running on %s (metrics on %s)\n", server.Address(), cfg.MetricsAddr)
	fmt.Println("Press Ctrl+C to stop")

	select {
	case sig := <-sigCh:
		logger.Info("shutdown_signal_received", "signal", sig.String())
	case err := <-grpcErrCh:
		logger.Error("grpc_server_failed", "error", err.Error())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics_shutdown_failed", "error", err.Error())
	}
	server.ShutdownWithTimeout(grace)

	logger.Info("act_engine_stopped")
}

// loadConfig reads the YAML file when given, defaults otherwise.
func loadConfig(path string) (*config.OpsConfig, error) {
	if path == "" {
		return config.DefaultOpsConfig(), nil
	}
	return config.LoadOpsConfig(path)
}

// registerBusHandlers wires the configuration surface onto the bus and
// subscribes a log tap for completed runs.
func registerBusHandlers(bus *commbus.InMemoryCommBus, logger *stdLogger) error {
	err := bus.RegisterHandler("GetLoopConfig", func(ctx context.Context, _ commbus.Message) (any, error) {
		return &commbus.LoopConfigResponse{
			Loop:     config.GetLoopConfig().ToMap(),
			Governor: config.GetGovernorConfig().ToMap(),
		}, nil
	})
	if err != nil {
		return err
	}

	err = bus.RegisterHandler("UpdateLoopConfig", func(ctx context.Context, msg commbus.Message) (any, error) {
		cmd, ok := msg.(*commbus.UpdateLoopConfig)
		if !ok {
			return nil, fmt.Errorf("unexpected message type %T", msg)
		}

		// Overrides apply on top of the effective config, not the defaults.
		merged := config.GetLoopConfig().ToMap()
		for key, value := range cmd.Overrides {
			merged[key] = value
		}
		candidate := config.LoopConfigFromMap(merged)
		if err := candidate.Validate(); err != nil {
			return nil, fmt.Errorf("rejected config update: %w", err)
		}

		config.SetLoopConfig(candidate)
		logger.Info("loop_config_updated", "overrides", cmd.Overrides)
		return nil, nil
	})
	if err != nil {
		return err
	}

	bus.Subscribe("ActRunCompleted", func(ctx context.Context, msg commbus.Message) (any, error) {
		done, ok := msg.(*commbus.ActRunCompleted)
		if !ok {
			return nil, nil
		}
		logger.Info("act_run_observed",
			"loop_id", done.LoopID,
			"termination_reason", done.TerminationReason,
			"iterations_used", done.IterationsUsed,
			"budget_utilization", done.BudgetUtilization,
		)
		return nil, nil
	})

	return nil
}

// startMetricsServer serves the Prometheus registry over HTTP in the
// background. Serve errors other than a clean shutdown are logged.
func startMetricsServer(addr string, logger *stdLogger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Info("metrics_server_started", "address", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics_server_failed", "error", err.Error())
		}
	}()
	return server
}

// Package observability provides Prometheus metrics instrumentation for the act engine.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// RUN METRICS
// =============================================================================

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jeeves_act_runs_total",
			Help: "Total number of act runs by termination reason",
		},
		[]string{"reason"}, // no_actions, repetition_detected, fatigue_exhausted, ...
	)

	runDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jeeves_act_run_duration_seconds",
			Help:    "Act run duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"reason"},
	)

	runIterations = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "jeeves_act_run_iterations",
			Help:    "Iterations used per act run",
			Buckets: []float64{1, 2, 3, 4, 5, 7, 10, 15},
		},
	)

	runBudgetUtilization = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "jeeves_act_run_budget_utilization",
			Help:    "Final fatigue as a fraction of the budget per run",
			Buckets: []float64{0.1, 0.25, 0.5, 0.75, 0.9, 1.0, 1.25, 1.5},
		},
	)
)

// =============================================================================
// ITERATION METRICS
// =============================================================================

var (
	iterationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jeeves_act_iterations_total",
			Help: "Total number of loop iterations",
		},
		[]string{"status"}, // status: completed, skipped
	)

	iterationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jeeves_act_iteration_duration_seconds",
			Help:    "Loop iteration duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"status"},
	)
)

// =============================================================================
// ACTION METRICS
// =============================================================================

var (
	actionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jeeves_act_actions_total",
			Help: "Total number of dispatched actions",
		},
		[]string{"action_type", "status"}, // status: success, error, timeout, skipped
	)

	actionDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jeeves_act_action_duration_seconds",
			Help:    "Action execution duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"action_type"},
	)
)

// =============================================================================
// CRITIC METRICS
// =============================================================================

var (
	criticActivityTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jeeves_act_critic_activity_total",
			Help: "Critic verification activity by outcome",
		},
		[]string{"outcome"}, // evaluation, correction, escalation, oscillation
	)
)

// =============================================================================
// ADVISORY METRICS
// =============================================================================

var (
	advisoriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jeeves_act_advisories_total",
			Help: "Synthetic system advisories injected into act history",
		},
		[]string{"kind"}, // kind: pivot_hint, budget_warning
	)
)

// =============================================================================
// GRPC METRICS
// =============================================================================

var (
	grpcRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jeeves_act_grpc_requests_total",
			Help: "Total gRPC requests on the ops endpoint",
		},
		[]string{"method", "status"}, // status: OK, InvalidArgument, Internal, etc.
	)

	grpcRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jeeves_act_grpc_request_duration_seconds",
			Help:    "gRPC request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method"},
	)
)

// =============================================================================
// PUBLIC API
// =============================================================================

// RecordRun records run-level metrics.
// This should be called once per run, after the result is assembled.
func RecordRun(reason string, iterationsUsed int, budgetUtilization float64, durationMS int) {
	runsTotal.WithLabelValues(reason).Inc()
	runDurationSeconds.WithLabelValues(reason).Observe(float64(durationMS) / 1000.0)
	runIterations.Observe(float64(iterationsUsed))
	runBudgetUtilization.Observe(budgetUtilization)
}

// RecordIteration records iteration metrics.
// Skipped iterations are governor refusals logged without execution.
func RecordIteration(status string, durationMS int) {
	iterationsTotal.WithLabelValues(status).Inc()
	iterationDurationSeconds.WithLabelValues(status).Observe(float64(durationMS) / 1000.0)
}

// RecordAction records a dispatched action's outcome.
func RecordAction(actionType string, status string, durationMS int) {
	actionsTotal.WithLabelValues(actionType, status).Inc()
	actionDurationSeconds.WithLabelValues(actionType).Observe(float64(durationMS) / 1000.0)
}

// RecordCriticActivity records critic verification counts for one pass.
// Zero deltas are skipped so unused outcomes don't materialize series.
func RecordCriticActivity(evaluations, corrections, escalations, oscillations int) {
	if evaluations > 0 {
		criticActivityTotal.WithLabelValues("evaluation").Add(float64(evaluations))
	}
	if corrections > 0 {
		criticActivityTotal.WithLabelValues("correction").Add(float64(corrections))
	}
	if escalations > 0 {
		criticActivityTotal.WithLabelValues("escalation").Add(float64(escalations))
	}
	if oscillations > 0 {
		criticActivityTotal.WithLabelValues("oscillation").Add(float64(oscillations))
	}
}

// RecordAdvisoryInjected records a synthetic advisory appended to history.
func RecordAdvisoryInjected(kind string) {
	advisoriesTotal.WithLabelValues(kind).Inc()
}

// RecordGRPCRequest records gRPC request metrics.
// This should be called from gRPC interceptors.
func RecordGRPCRequest(method string, status string, durationMS int) {
	grpcRequestsTotal.WithLabelValues(method, status).Inc()
	grpcRequestDurationSeconds.WithLabelValues(method).Observe(float64(durationMS) / 1000.0)
}

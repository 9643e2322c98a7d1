// Package telemetry exposes Prometheus metrics for the orchestrator loop
// and capability executions.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/guardline/guardline/config"
)

// Telemetry records orchestrator and capability metrics.
type Telemetry struct {
	enabled bool

	oracleRequests *prometheus.CounterVec
	toolExecutions *prometheus.CounterVec
	loopIterations prometheus.Histogram
	turnDuration   prometheus.Histogram
}

// NewTelemetry registers the metric set on the default registry.
func NewTelemetry(cfg config.TelemetryConfig) *Telemetry {
	t := &Telemetry{enabled: cfg.Enabled}
	if !t.enabled {
		return t
	}
	t.oracleRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guardline",
		Name:      "oracle_requests_total",
		Help:      "Oracle decision requests by outcome.",
	}, []string{"outcome"})
	t.toolExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guardline",
		Name:      "tool_executions_total",
		Help:      "Capability executions by tool and status.",
	}, []string{"tool", "status"})
	t.loopIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "guardline",
		Name:      "loop_iterations",
		Help:      "Tool-call iterations per user turn.",
		Buckets:   prometheus.LinearBuckets(0, 1, 10),
	})
	t.turnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "guardline",
		Name:      "turn_duration_seconds",
		Help:      "Wall time per user turn.",
		Buckets:   prometheus.DefBuckets,
	})
	return t
}

// RecordOracleRequest counts one oracle call outcome (answer, tool_call,
// error, timeout).
func (t *Telemetry) RecordOracleRequest(outcome string) {
	if t == nil || !t.enabled {
		return
	}
	t.oracleRequests.WithLabelValues(outcome).Inc()
}

// RecordToolExecution counts one capability execution.
func (t *Telemetry) RecordToolExecution(tool, status string) {
	if t == nil || !t.enabled {
		return
	}
	t.toolExecutions.WithLabelValues(tool, status).Inc()
}

// RecordTurn observes the iteration count and duration of a finished turn.
func (t *Telemetry) RecordTurn(iterations int, took time.Duration) {
	if t == nil || !t.enabled {
		return
	}
	t.loopIterations.Observe(float64(iterations))
	t.turnDuration.Observe(took.Seconds())
}

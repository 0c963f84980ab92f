// Package metrics provides Prometheus observability metrics for the call replay.
// It includes dataset-quality metrics and operational metrics for ingestion and replay.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the custom prometheus registry for our application
var Registry = prometheus.NewRegistry()

// factory allows us to register metrics to our custom Registry directly
var factory = promauto.With(Registry)

// =============================================================================
// DATASET METRICS - Training Sample Visibility
// =============================================================================

// SnapshotsCapturedTotal tracks snapshots kept as training samples.
var SnapshotsCapturedTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "replay",
	Name:      "snapshots_captured_total",
	Help:      "Total snapshots kept as training samples",
})

// SnapshotsDiscardedTotal tracks snapshots dropped as meaningless samples.
var SnapshotsDiscardedTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "replay",
	Name:      "snapshots_discarded_total",
	Help:      "Snapshots discarded by reason",
}, []string{"reason"})

// CallsRoutedTotal tracks how calls reached a worker.
// path is "direct" (on arrival), "advanced" (from the queue) or "historical".
var CallsRoutedTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "replay",
	Name:      "calls_routed_total",
	Help:      "Calls handed to a worker, by routing path",
}, []string{"path"})

// CallsQueuedTotal tracks arrivals that found no idle qualified worker.
var CallsQueuedTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "replay",
	Name:      "calls_queued_total",
	Help:      "Arrivals that had to wait in a service queue",
}, []string{"service"})

// CallsAbandonedTotal tracks queued calls that hung up before being answered.
var CallsAbandonedTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "replay",
	Name:      "calls_abandoned_total",
	Help:      "Queued calls that hung up before an answer",
}, []string{"service"})

// QueueDepth tracks the current queue length per service.
var QueueDepth = factory.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "replay",
	Name:      "queue_depth",
	Help:      "Current number of waiting calls per service",
}, []string{"service"})

// IdleWorkers tracks idle qualified workers per service at the last arrival.
var IdleWorkers = factory.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "replay",
	Name:      "idle_workers",
	Help:      "Idle qualified workers per service at the last arrival",
}, []string{"service"})

// =============================================================================
// OPERATIONAL METRICS - Engine Health
// =============================================================================

// EventsDispatchedTotal tracks dispatched events by kind.
var EventsDispatchedTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "replay",
	Name:      "events_dispatched_total",
	Help:      "Events dispatched by the scheduler, by kind",
}, []string{"kind"})

// EventsRejectedTotal tracks events refused by the scheduler.
var EventsRejectedTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "replay",
	Name:      "events_rejected_total",
	Help:      "Events dropped because their time could not be scheduled",
})

// ReplayDurationSeconds tracks wall time of one replay run.
var ReplayDurationSeconds = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "replay",
	Name:      "duration_seconds",
	Help:      "Time taken to replay the call history",
	Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
})

// ParserErrorsTotal tracks parse errors by error type.
var ParserErrorsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "parser",
	Name:      "errors_total",
	Help:      "Total parse errors by error type",
}, []string{"error_type"})

// ParserRecordsTotal tracks records successfully parsed.
var ParserRecordsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "parser",
	Name:      "records_total",
	Help:      "Total CSV records successfully parsed, by record kind",
}, []string{"kind"})

// ParserDurationSeconds tracks time to parse input files.
var ParserDurationSeconds = factory.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "parser",
	Name:      "duration_seconds",
	Help:      "Time taken to parse a CSV input file",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
}, []string{"kind"})

// =============================================================================
// Helper Functions
// =============================================================================

// ResetReplayGauges resets all replay gauges before a new run.
func ResetReplayGauges() {
	QueueDepth.Reset()
	IdleWorkers.Reset()
}

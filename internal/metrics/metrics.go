package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SamplesIngested counts accepted telemetry samples.
	SamplesIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "telemetry_samples_ingested_total",
			Help: "Total number of telemetry samples ingested",
		},
	)

	// Evaluations counts synthetic variable evaluations by outcome.
	Evaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synthetic_evaluations_total",
			Help: "Total number of synthetic variable evaluations",
		},
		[]string{"status"},
	)

	// EvaluationDuration observes per-definition evaluation latency.
	EvaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "synthetic_evaluation_duration_seconds",
			Help:    "Synthetic variable evaluation latency in seconds",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		},
	)

	// WSClients tracks connected websocket subscribers.
	WSClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_connected_clients",
			Help: "Currently connected websocket clients",
		},
	)
)

// Evaluation outcome labels.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Package metrics exposes Prometheus instrumentation for the scanner engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Decode outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeTimeout  = "timeout"
	OutcomeError    = "error"
)

var (
	// FramesSampled counts frames pulled from the video source into the
	// scan canvas.
	FramesSampled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qrscan_frames_sampled_total",
			Help: "Total number of frames sampled from the video source",
		},
	)

	// Decodes counts decode attempts by outcome.
	Decodes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrscan_decodes_total",
			Help: "Total number of decode attempts",
		},
		[]string{"outcome"},
	)

	// DecodeDuration observes decode backend latency.
	DecodeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "qrscan_decode_duration_seconds",
			Help:    "Decode backend latency in seconds",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	// BackendReplacements counts engine replacements after fatal backend
	// failures.
	BackendReplacements = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qrscan_backend_replacements_total",
			Help: "Total number of decode backend replacements",
		},
	)

	// CameraAcquisitions counts stream acquisition results by facing mode.
	CameraAcquisitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrscan_camera_acquisitions_total",
			Help: "Total number of camera stream acquisition attempts",
		},
		[]string{"facing", "status"},
	)
)

// ObserveDecode records one decode attempt.
func ObserveDecode(outcome string, d time.Duration) {
	Decodes.WithLabelValues(outcome).Inc()
	DecodeDuration.Observe(d.Seconds())
}

// Package metrics exposes Prometheus collectors for the pipeline and stream server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "facestream"

// Iteration results.
const (
	ResultPublished   = "published"
	ResultNoFrame     = "no_frame"
	ResultSourceError = "source_error"
	ResultDetectError = "detect_error"
	ResultPanic       = "panic"
)

// Stream skip reasons.
const (
	SkipEmptySlot   = "empty_slot"
	SkipEncodeError = "encode_error"
)

var (
	// pipelineIterations counts annotation loop iterations by outcome.
	pipelineIterations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_iterations_total",
			Help:      "Total annotation pipeline iterations by result",
		},
		[]string{"result"},
	)

	// pipelineDuration is a histogram of capture-to-publish processing time.
	pipelineDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_iteration_seconds",
			Help:      "Processing time of one annotation pipeline iteration in seconds",
			Buckets:   []float64{.001, .0025, .005, .01, .02, .04, .08, .16, .32, .64},
		},
	)

	// regionsDetected counts detections by kind (outer, inner).
	regionsDetected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regions_detected_total",
			Help:      "Total regions detected by kind",
		},
		[]string{"kind"},
	)

	// streamConnections counts accepted connections by route.
	streamConnections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_connections_total",
			Help:      "Total stream port connections by route",
		},
		[]string{"route"},
	)

	// streamsActive is a gauge of connected multipart clients.
	streamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "streams_active",
			Help:      "Number of currently connected multipart stream clients",
		},
	)

	// streamParts counts multipart parts fully written.
	streamParts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_parts_total",
			Help:      "Total multipart parts written to stream clients",
		},
	)

	// streamSkips counts streaming iterations that wrote nothing.
	streamSkips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_skips_total",
			Help:      "Total streaming iterations skipped by reason",
		},
		[]string{"reason"},
	)
)

// Collectors returns every collector of this package.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		pipelineIterations,
		pipelineDuration,
		regionsDetected,
		streamConnections,
		streamsActive,
		streamParts,
		streamSkips,
	}
}

// Register registers all collectors with reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// RecordPipelineIteration records one loop iteration and, for published frames, its duration.
func RecordPipelineIteration(result string, seconds float64) {
	pipelineIterations.WithLabelValues(result).Inc()
	if result == ResultPublished {
		pipelineDuration.Observe(seconds)
	}
}

// RecordRegions adds n detections of the given kind.
func RecordRegions(kind string, n int) {
	if n > 0 {
		regionsDetected.WithLabelValues(kind).Add(float64(n))
	}
}

// RecordConnection records a routed connection.
func RecordConnection(route string) {
	streamConnections.WithLabelValues(route).Inc()
}

// StreamStarted increments the active stream gauge.
func StreamStarted() {
	streamsActive.Inc()
}

// StreamEnded decrements the active stream gauge.
func StreamEnded() {
	streamsActive.Dec()
}

// RecordPart records one complete multipart part.
func RecordPart() {
	streamParts.Inc()
}

// RecordSkip records a streaming iteration that wrote nothing.
func RecordSkip(reason string) {
	streamSkips.WithLabelValues(reason).Inc()
}

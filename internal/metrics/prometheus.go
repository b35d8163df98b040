package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesExtractedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chromavue_frames_extracted_total",
		Help: "Total number of color samples read from decoders",
	})

	ChunkFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chromavue_chunk_failures_total",
		Help: "Chunks that contributed no samples, by reason",
	}, []string{"reason"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chromavue_stage_duration_seconds",
		Help:    "Duration of pipeline stages",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chromavue_active_workers",
		Help: "Number of chunk extractions currently running",
	})
)

// ChunkRecorder adapts ChunkFailuresTotal to the extractor's failure hook.
type ChunkRecorder struct{}

// ChunkFailed increments the failure counter for reason.
func (ChunkRecorder) ChunkFailed(reason string) {
	ChunkFailuresTotal.WithLabelValues(reason).Inc()
}

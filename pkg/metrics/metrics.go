package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emotion_backend_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "emotion_backend_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		},
		[]string{"method", "endpoint"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "emotion_backend_active_sessions",
			Help: "Number of live chat sessions",
		},
	)

	EmotionDetections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emotion_backend_emotion_detections_total",
			Help: "Text emotion classifier runs by resulting label",
		},
		[]string{"emotion"},
	)

	ExternalFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emotion_backend_external_failures_total",
			Help: "Failed calls to third-party services that fell back to defaults",
		},
		[]string{"service"},
	)

	VoicePredictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emotion_backend_voice_predictions_total",
			Help: "Voice emotion predictions by label",
		},
		[]string{"emotion"},
	)

	InferenceLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "emotion_backend_inference_latency_seconds",
			Help: "Local model inference latency in seconds",
		},
		[]string{"model"},
	)

	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "emotion_backend_pipeline_stage_duration_seconds",
			Help: "Duration of each retrieval pipeline stage",
		},
		[]string{"stage"},
	)

	PipelineItemsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emotion_backend_pipeline_items_dropped_total",
			Help: "Pages or chunks dropped by the retrieval pipeline",
		},
		[]string{"stage"},
	)
)

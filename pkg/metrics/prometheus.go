package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status_code"},
	)

	// Intake metrics
	webhooksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_webhooks_total",
			Help: "Total number of webhook deliveries by outcome",
		},
		[]string{"outcome"},
	)

	enqueueFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "intake_enqueue_failures_total",
			Help: "Webhooks accepted whose processing job could not be enqueued",
		},
	)

	// Worker metrics
	processingTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_processing_total",
			Help: "Total number of processed jobs by result",
		},
		[]string{"result"},
	)

	processingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "worker_processing_duration_seconds",
			Help:    "Job processing duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"result"},
	)

	// Queue metrics
	queueSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queue_size",
			Help: "Current queue size",
		},
		[]string{"queue_name"},
	)

	// Event publisher metrics
	eventPublishFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "events_publish_failures_total",
			Help: "Terminal-state events that could not be published",
		},
	)

	systemErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "system_errors_total",
			Help: "Total number of system errors",
		},
		[]string{"error_type", "component"},
	)
)

// Intake outcomes reported by RecordWebhook
const (
	WebhookAccepted  = "accepted"
	WebhookDuplicate = "duplicate"
	WebhookRejected  = "rejected"
	WebhookDegraded  = "degraded"
)

// Worker results reported by RecordProcessing
const (
	ProcessingSucceeded = "processed"
	ProcessingFailed    = "failed"
	ProcessingSkipped   = "skipped"
)

// HTTP metrics
func RecordHTTPRequest(method, endpoint, statusCode string, duration float64) {
	httpRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, statusCode).Observe(duration)
}

// Intake metrics
func RecordWebhook(outcome string) {
	webhooksTotal.WithLabelValues(outcome).Inc()
}

func RecordEnqueueFailure() {
	enqueueFailuresTotal.Inc()
}

// Worker metrics
func RecordProcessing(result string, duration float64) {
	processingTotal.WithLabelValues(result).Inc()
	processingDuration.WithLabelValues(result).Observe(duration)
}

// Queue metrics
func SetQueueSize(queueName string, size float64) {
	queueSize.WithLabelValues(queueName).Set(size)
}

// Event publisher metrics
func RecordEventPublishFailure() {
	eventPublishFailuresTotal.Inc()
}

func RecordSystemError(errorType, component string) {
	systemErrorsTotal.WithLabelValues(errorType, component).Inc()
}

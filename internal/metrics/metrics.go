// Package metrics provides Prometheus metrics for the ByteVault gateway.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bytevault_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bytevault_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Content transfer metrics
	bytesServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bytevault_bytes_served_total",
			Help: "Total bytes streamed from the serve endpoint",
		},
	)

	bytesUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bytevault_bytes_uploaded_total",
			Help: "Total bytes accepted by the upload pipeline",
		},
	)

	servesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bytevault_serves_total",
			Help: "Total number of file serves",
		},
		[]string{"status"},
	)

	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bytevault_uploads_total",
			Help: "Total number of file uploads",
		},
		[]string{"status"},
	)

	// Security metrics
	traversalRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bytevault_traversal_rejections_total",
			Help: "Total path traversal attempts rejected by the path guard",
		},
	)

	policyRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bytevault_policy_rejections_total",
			Help: "Total requests rejected by the account policy gate",
		},
		[]string{"reason"},
	)

	quotaExceededTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bytevault_quota_exceeded_total",
			Help: "Total uploads rejected for exceeding a storage quota",
		},
	)

	// Auth metrics
	authAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bytevault_auth_attempts_total",
			Help: "Total authentication attempts",
		},
		[]string{"result"},
	)

	// Staging metrics
	stagingFilesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bytevault_staging_files_active",
			Help: "Number of upload staging files currently on disk",
		},
	)

	// Accounting metrics
	accountingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bytevault_accounting_duration_seconds",
			Help:    "Time to recompute an account's storage usage",
			Buckets: prometheus.DefBuckets,
		},
	)

	// SSE metrics
	sseConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bytevault_sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)

	sseEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bytevault_sse_events_total",
			Help: "Total SSE events published",
		},
		[]string{"type"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordServe records a file serve.
func RecordServe(bytes int64, success bool) {
	bytesServed.Add(float64(bytes))
	status := "success"
	if !success {
		status = "error"
	}
	servesTotal.WithLabelValues(status).Inc()
}

// RecordUpload records a file upload.
func RecordUpload(bytes int64, success bool) {
	bytesUploaded.Add(float64(bytes))
	status := "success"
	if !success {
		status = "error"
	}
	uploadsTotal.WithLabelValues(status).Inc()
}

// RecordTraversalRejection records a path guard rejection.
func RecordTraversalRejection() {
	traversalRejectionsTotal.Inc()
}

// RecordPolicyRejection records a policy gate rejection.
func RecordPolicyRejection(reason string) {
	policyRejectionsTotal.WithLabelValues(reason).Inc()
}

// RecordQuotaExceeded records a storage quota rejection.
func RecordQuotaExceeded() {
	quotaExceededTotal.Inc()
}

// RecordAuthAttempt records an authentication attempt.
func RecordAuthAttempt(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	authAttemptsTotal.WithLabelValues(result).Inc()
}

// AddStagingFiles adjusts the active staging file gauge.
func AddStagingFiles(delta int) {
	stagingFilesActive.Add(float64(delta))
}

// RecordAccounting records a storage usage recomputation duration.
func RecordAccounting(duration time.Duration) {
	accountingDuration.Observe(duration.Seconds())
}

// SetSSEConnectionsActive sets the number of active SSE connections.
func SetSSEConnectionsActive(count int64) {
	sseConnectionsActive.Set(float64(count))
}

// RecordSSEEvent records an SSE event publication.
func RecordSSEEvent(eventType string) {
	sseEventsTotal.WithLabelValues(eventType).Inc()
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware returns HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		RecordHTTPRequest(r.Method, r.URL.Path, rw.statusCode, time.Since(start))
	})
}

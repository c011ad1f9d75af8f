package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ktc"

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	classificationsTotal *prometheus.CounterVec
	classifyDuration     *prometheus.HistogramVec
	classifyErrorsTotal  *prometheus.CounterVec
	batchRowsTotal       *prometheus.CounterVec
	batchSize            *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	classificationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "predictions_total",
			Help:      "Total stored predictions by primary category.",
		},
		[]string{"service", "endpoint", "category"},
	)
	classifyDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "classify_duration_seconds",
			Help:      "Classify-and-store duration in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"service", "endpoint"},
	)
	classifyErrorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "errors_total",
			Help:      "Total failed classification requests by HTTP status.",
		},
		[]string{"service", "endpoint", "status"},
	)
	batchRowsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "rows_total",
			Help:      "Total spreadsheet rows by outcome.",
		},
		[]string{"service", "status"},
	)
	batchSize := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "rows_per_upload",
			Help:      "Distribution of data rows per spreadsheet upload.",
			Buckets:   []float64{1, 10, 50, 100, 500, 1000, 5000, 10000},
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		classificationsTotal,
		classifyDuration,
		classifyErrorsTotal,
		batchRowsTotal,
		batchSize,
	)

	return &HTTPServerMetrics{
		registry:             registry,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		classificationsTotal: classificationsTotal,
		classifyDuration:     classifyDuration,
		classifyErrorsTotal:  classifyErrorsTotal,
		batchRowsTotal:       batchRowsTotal,
		batchSize:            batchSize,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		path := normalizePath(r.URL.Path)
		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

var knownPaths = map[string]struct{}{
	"/classify":              {},
	"/classify/document":     {},
	"/classify/batch":        {},
	"/classify/batch/stream": {},
	"/history":               {},
	"/history/logs":          {},
	"/health":                {},
	"/healthz":               {},
	"/metrics":               {},
	"/openapi.json":          {},
}

// Unknown paths collapse to one label so scanners cannot blow up cardinality.
func normalizePath(path string) string {
	if _, ok := knownPaths[path]; ok {
		return path
	}
	return "other"
}

// RecordClassification counts a stored prediction. Batch rows pass a zero
// duration and are counted without a latency sample.
func (m *HTTPServerMetrics) RecordClassification(service, endpoint, category string, duration time.Duration) {
	if category == "" {
		category = "unknown"
	}
	m.classificationsTotal.WithLabelValues(service, endpoint, category).Inc()
	if duration > 0 {
		m.classifyDuration.WithLabelValues(service, endpoint).Observe(duration.Seconds())
	}
}

func (m *HTTPServerMetrics) RecordClassifyError(service, endpoint string, status int) {
	m.classifyErrorsTotal.WithLabelValues(service, endpoint, strconv.Itoa(status)).Inc()
}

func (m *HTTPServerMetrics) RecordBatchRow(service, status string) {
	if status == "" {
		status = "unknown"
	}
	m.batchRowsTotal.WithLabelValues(service, status).Inc()
}

func (m *HTTPServerMetrics) ObserveBatchSize(service string, rows int) {
	m.batchSize.WithLabelValues(service).Observe(float64(rows))
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

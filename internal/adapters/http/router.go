package httpadapter

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kirillkom/khmer-text-classifier/internal/config"
	"github.com/kirillkom/khmer-text-classifier/internal/core/ports"
	"github.com/kirillkom/khmer-text-classifier/internal/observability/metrics"
)

const serviceName = "api"

type Router struct {
	cfg          config.Config
	classifier   ports.TextClassifier
	batch        ports.BatchClassifier
	history      ports.HistoryReader
	modelVersion string
	metrics      *metrics.HTTPServerMetrics
}

// NewRouter builds the API surface. m may be nil when metrics are disabled.
func NewRouter(
	cfg config.Config,
	classifier ports.TextClassifier,
	batch ports.BatchClassifier,
	history ports.HistoryReader,
	modelVersion string,
	m *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		cfg:          cfg,
		classifier:   classifier,
		batch:        batch,
		history:      history,
		modelVersion: modelVersion,
		metrics:      m,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", rt.health)
	mux.HandleFunc("/healthz", rt.health)
	mux.HandleFunc("/classify", rt.classify)
	mux.HandleFunc("/classify/document", rt.classifyDocument)
	mux.HandleFunc("/classify/batch", rt.classifyBatch)
	mux.HandleFunc("/classify/batch/stream", rt.classifyBatchStream)
	mux.HandleFunc("/history", rt.listHistory)
	mux.HandleFunc("/history/logs", rt.listHistoryLogs)
	mux.HandleFunc("/openapi.json", rt.openAPI)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, rt.cfg.APIBackpressureWait)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	handler = corsMiddleware(handler, rt.cfg.CORSAllowedOrigins)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) health(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"model":  rt.modelVersion,
	})
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
	return false
}

func (rt *Router) recordClassification(endpoint, category string, started time.Time) {
	if rt.metrics != nil {
		rt.metrics.RecordClassification(serviceName, endpoint, category, time.Since(started))
	}
}

func (rt *Router) recordClassifyError(endpoint string, status int) {
	if rt.metrics != nil {
		rt.metrics.RecordClassifyError(serviceName, endpoint, status)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

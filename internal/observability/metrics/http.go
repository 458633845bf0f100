package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServerMetrics covers the api binary: request plumbing plus the
// pipeline outcomes that matter operationally (match tiers, rate sources,
// review flags, token spend).
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	importsTotal     *prometheus.CounterVec
	vendorMatchTotal *prometheus.CounterVec
	rateSourceTotal  *prometheus.CounterVec
	reviewFlagTotal  *prometheus.CounterVec
	llmTokensTotal   *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invp",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "invp",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "invp",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	importsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invp",
			Subsystem: "pipeline",
			Name:      "imports_total",
			Help:      "Total invoice imports by mode and outcome.",
		},
		[]string{"service", "mode", "status"},
	)
	vendorMatchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invp",
			Subsystem: "pipeline",
			Name:      "vendor_match_total",
			Help:      "Vendor resolution outcomes by match tier.",
		},
		[]string{"service", "match_type"},
	)
	rateSourceTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invp",
			Subsystem: "pipeline",
			Name:      "rate_lookup_total",
			Help:      "Exchange rate resolutions by source.",
		},
		[]string{"service", "source"},
	)
	reviewFlagTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invp",
			Subsystem: "pipeline",
			Name:      "review_flag_total",
			Help:      "Imports routed to manual review.",
		},
		[]string{"service"},
	)
	llmTokensTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invp",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Model tokens consumed, split by direction.",
		},
		[]string{"service", "direction", "model"},
	)

	registry.MustRegister(
		requestTotal, requestDuration, requestInFlight,
		importsTotal, vendorMatchTotal, rateSourceTotal, reviewFlagTotal, llmTokensTotal,
	)

	return &HTTPServerMetrics{
		registry:         registry,
		requestTotal:     requestTotal,
		requestDuration:  requestDuration,
		requestInFlight:  requestInFlight,
		importsTotal:     importsTotal,
		vendorMatchTotal: vendorMatchTotal,
		rateSourceTotal:  rateSourceTotal,
		reviewFlagTotal:  reviewFlagTotal,
		llmTokensTotal:   llmTokensTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware instruments every request. Paths are the route patterns, so
// cardinality stays bounded.
func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(recorder, r)

		path := routePattern(r)
		m.requestTotal.WithLabelValues(service, r.Method, path, strconv.Itoa(recorder.statusCode)).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	if p := r.Pattern; p != "" {
		return p
	}
	return r.URL.Path
}

func (m *HTTPServerMetrics) RecordImport(service, mode, status string) {
	if status == "" {
		status = "unknown"
	}
	m.importsTotal.WithLabelValues(service, mode, status).Inc()
}

func (m *HTTPServerMetrics) RecordVendorMatch(service, matchType string) {
	if matchType == "" {
		matchType = "none"
	}
	m.vendorMatchTotal.WithLabelValues(service, matchType).Inc()
}

func (m *HTTPServerMetrics) RecordRateSource(service, source string) {
	if source == "" {
		source = "none"
	}
	m.rateSourceTotal.WithLabelValues(service, source).Inc()
}

func (m *HTTPServerMetrics) RecordReviewFlag(service string) {
	m.reviewFlagTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordTokenUsage(service, model string, promptTokens, completionTokens int) {
	if model == "" {
		model = "unknown"
	}
	if promptTokens > 0 {
		m.llmTokensTotal.WithLabelValues(service, "in", model).Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.llmTokensTotal.WithLabelValues(service, "out", model).Add(float64(completionTokens))
	}
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

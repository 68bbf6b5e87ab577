package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// prometheus metrics
type metrics struct {
	LoopQueryCount     *prometheus.CounterVec
	searchIterations   *prometheus.HistogramVec
	searchCandidates   *prometheus.HistogramVec
	searchDuration     *prometheus.HistogramVec
	searchTimeouts     *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	durationSummary    prometheus.Summary
	responseStatusCode *prometheus.CounterVec
	totalRequests      *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		LoopQueryCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "knooppuntx",
			Name:      "loop_query_count",
			Help:      "The total number of loop planning queries",
		}, []string{"planned"}),
		searchIterations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "knooppuntx",
			Name:      "loop_search_iterations",
			Help:      "Depth-first iterations spent per loop search",
			Buckets:   prometheus.ExponentialBuckets(100, 4, 8),
		}, []string{"graph_source"}),
		searchCandidates: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "knooppuntx",
			Name:      "loop_search_candidates",
			Help:      "Candidate loops collected per loop search",
			Buckets:   []float64{0, 1, 5, 20, 50, 100, 250, 500},
		}, []string{"graph_source"}),
		searchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "knooppuntx",
			Name:      "loop_search_duration_seconds",
			Help:      "Wall clock time of a loop search",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 90},
		}, []string{"graph_source"}),
		searchTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "knooppuntx",
			Name:      "loop_search_timeouts_total",
			Help:      "Loop searches cut short by the time budget",
		}, []string{"graph_source"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "knooppuntx",
			Name:      "request_duration_seconds",
			Help:      "The duration of request",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"method", "path"}),
		durationSummary: prometheus.NewSummary(prometheus.SummaryOpts{
			Namespace:  "knooppuntx",
			Name:       "request_duration_summary_seconds",
			Help:       "The duration of request",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}),
		responseStatusCode: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "knooppuntx",
				Name:      "response_status_code",
				Help:      "The status code of http response",
			}, []string{"status", "method", "path"},
		),
		totalRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "knooppuntx",
				Name:      "total_requests",
				Help:      "The total number of requests",
			}, []string{"path", "method", "status"},
		),
	}
	reg.MustRegister(m.LoopQueryCount, m.searchIterations, m.searchCandidates, m.searchDuration, m.searchTimeouts,
		m.httpDuration, m.durationSummary, m.responseStatusCode, m.totalRequests)
	return m
}

// ObserveSearch records the statistics of one loop search.
func (m *metrics) ObserveSearch(source string, iterations, candidates int, timedOut bool, seconds float64) {
	m.searchIterations.WithLabelValues(source).Observe(float64(iterations))
	m.searchCandidates.WithLabelValues(source).Observe(float64(candidates))
	m.searchDuration.WithLabelValues(source).Observe(seconds)
	if timedOut {
		m.searchTimeouts.WithLabelValues(source).Inc()
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func NewResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{w, http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func PromeHttpMiddleware(m *metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := NewResponseWriter(w)
			now := time.Now()

			next.ServeHTTP(rw, r)

			// route pattern keeps label cardinality bounded
			path := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				path = rctx.RoutePattern()
			}
			statusCode := strconv.Itoa(rw.statusCode)
			elapsed := time.Since(now).Seconds()

			m.httpDuration.With(prometheus.Labels{"method": r.Method, "path": path}).Observe(elapsed)
			m.responseStatusCode.With(prometheus.Labels{"status": statusCode, "method": r.Method, "path": path}).Inc()
			m.totalRequests.With(prometheus.Labels{"path": path, "method": r.Method, "status": statusCode}).Inc()
			m.durationSummary.Observe(elapsed)
		})
	}
}

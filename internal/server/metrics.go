package server

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clobrano/youtubedoc/internal/cache"
)

const metricsPrefix = "youtubedoc_"

type metrics struct {
	registry   *prometheus.Registry
	requests   *prometheus.CounterVec
	recognized *prometheus.CounterVec
	documents  *prometheus.CounterVec
	limited    *prometheus.CounterVec
}

func newMetrics(c *cache.Cache) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: metricsPrefix + "http_requests_total", Help: "HTTP requests by route and status code"},
			[]string{"route", "code"},
		),
		recognized: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: metricsPrefix + "url_recognitions_total", Help: "URL recognitions by outcome and pattern"},
			[]string{"valid", "pattern"},
		),
		documents: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: metricsPrefix + "documents_total", Help: "Documentation requests by outcome"},
			[]string{"outcome"},
		),
		limited: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: metricsPrefix + "rate_limited_total", Help: "Requests rejected by the rate limiter"},
			[]string{"route"},
		),
	}

	m.registry.MustRegister(
		m.requests,
		m.recognized,
		m.documents,
		m.limited,
		prometheus.NewCounterFunc(
			prometheus.CounterOpts{Name: metricsPrefix + "cache_hits_total", Help: "Documentation cache hits"},
			func() float64 { hits, _ := c.Stats(); return float64(hits) },
		),
		prometheus.NewCounterFunc(
			prometheus.CounterOpts{Name: metricsPrefix + "cache_misses_total", Help: "Documentation cache misses"},
			func() float64 { _, misses := c.Stats(); return float64(misses) },
		),
	)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *metrics) observeRecognition(valid bool, pattern string) {
	m.recognized.WithLabelValues(strconv.FormatBool(valid), pattern).Inc()
}

func (m *metrics) observeDocument(ok, cached bool) {
	outcome := "error"
	switch {
	case cached:
		outcome = "cached"
	case ok:
		outcome = "generated"
	}
	m.documents.WithLabelValues(outcome).Inc()
}

// instrument counts every response of h under route.
func (m *metrics) instrument(route string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rec, r)
		m.requests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

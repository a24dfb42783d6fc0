// Package metrics defines the Prometheus metric collectors used across the
// crawler, ingestion, processors and read API, and exposes an HTTP handler
// for scraping.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors. Recording methods accept a nil
// receiver so components can run without metrics.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	PagesFetchedTotal    *prometheus.CounterVec
	FetchDuration        prometheus.Histogram
	PagesParsedTotal     *prometheus.CounterVec
	ProcessorDuration    *prometheus.HistogramVec
	ProfilesPersisted    *prometheus.CounterVec
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
}

// New creates all collectors and registers them with reg. A nil reg uses
// the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		PagesFetchedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forum_pages_fetched_total",
				Help: "Forum pages fetched by the crawler, by status (ok, error).",
			},
			[]string{"status"},
		),
		FetchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "forum_fetch_duration_seconds",
				Help:    "Latency of a single page fetch, excluding pacing delay.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		PagesParsedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forum_pages_parsed_total",
				Help: "Raw pages parsed into the corpus, by status (ok, error).",
			},
			[]string{"status"},
		),
		ProcessorDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forum_processor_duration_seconds",
				Help:    "Wall time of one processor run.",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300},
			},
			[]string{"processor"},
		),
		ProfilesPersisted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forum_profiles_persisted_total",
				Help: "Profiles written by the importer, by kind (user, topic).",
			},
			[]string{"kind"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "profile_cache_hits_total",
				Help: "Total number of profile cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "profile_cache_misses_total",
				Help: "Total number of profile cache misses.",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.PagesFetchedTotal,
		m.FetchDuration,
		m.PagesParsedTotal,
		m.ProcessorDuration,
		m.ProfilesPersisted,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)

	return m
}

func (m *Metrics) PageFetched(err error, d time.Duration) {
	if m == nil {
		return
	}
	m.PagesFetchedTotal.WithLabelValues(status(err)).Inc()
	m.FetchDuration.Observe(d.Seconds())
}

func (m *Metrics) PageParsed(err error) {
	if m == nil {
		return
	}
	m.PagesParsedTotal.WithLabelValues(status(err)).Inc()
}

func (m *Metrics) ProcessorRan(name string, d time.Duration) {
	if m == nil {
		return
	}
	m.ProcessorDuration.WithLabelValues(name).Observe(d.Seconds())
}

func (m *Metrics) ProfileSaved(kind string) {
	if m == nil {
		return
	}
	m.ProfilesPersisted.WithLabelValues(kind).Inc()
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.Inc()
		return
	}
	m.CacheMissesTotal.Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handler returns the Prometheus scrape HTTP handler for the default gatherer.
func Handler() http.Handler {
	return promhttp.Handler()
}

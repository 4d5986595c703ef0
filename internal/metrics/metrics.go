// Package metrics exposes Prometheus collectors for the crawler service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	jobsTotal        *prometheus.CounterVec
	activeJobs       prometheus.Gauge
	pagesTotal       prometheus.Counter
	pagesFailedTotal prometheus.Counter
	signalsTotal     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec

	once sync.Once
)

// Init registers the Prometheus collectors. It is safe to call multiple
// times; helpers are no-ops until it runs.
func Init() {
	once.Do(func() {
		jobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contactcrawler_jobs_total",
				Help: "Total number of jobs reconciled, labeled by terminal status.",
			},
			[]string{"status"},
		)
		activeJobs = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "contactcrawler_active_jobs",
				Help: "Number of jobs currently claimed by the pool.",
			},
		)
		pagesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "contactcrawler_pages_total",
				Help: "Total number of pages visited across all sessions.",
			},
		)
		pagesFailedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "contactcrawler_pages_failed_total",
				Help: "Total number of page visits that failed to fetch.",
			},
		)
		signalsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contactcrawler_signals_total",
				Help: "Total contact signals extracted, labeled by kind.",
			},
			[]string{"kind"},
		)
		httpDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "contactcrawler_http_request_duration_seconds",
				Help:    "HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncJobTerminal counts a job reaching a terminal status.
func IncJobTerminal(status string) {
	if jobsTotal != nil {
		jobsTotal.WithLabelValues(status).Inc()
	}
}

// SetActiveJobs records the pool's current active-set size.
func SetActiveJobs(n int) {
	if activeJobs != nil {
		activeJobs.Set(float64(n))
	}
}

// ObservePage counts one visited page and its extracted signals.
func ObservePage(emails, profiles int) {
	if pagesTotal != nil {
		pagesTotal.Inc()
	}
	if signalsTotal != nil {
		signalsTotal.WithLabelValues("email").Add(float64(emails))
		signalsTotal.WithLabelValues("facebook").Add(float64(profiles))
	}
}

// IncPageFailed counts one page visit that failed to fetch.
func IncPageFailed() {
	if pagesFailedTotal != nil {
		pagesFailedTotal.Inc()
	}
}

// ObserveHTTPRequest records one HTTP request's latency.
func ObserveHTTPRequest(method, route string, duration time.Duration) {
	if httpDuration != nil {
		httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
	}
}

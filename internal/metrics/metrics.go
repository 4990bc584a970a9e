// Package metrics exposes Prometheus collectors for route discovery and the
// scanner workers.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	seededRoutesTotal          *prometheus.CounterVec
	sampledOutRoutesTotal      prometheus.Counter
	discoveredLinksTotal       prometheus.Counter
	renderEscalationsTotal     prometheus.Counter
	queuedRoutesTotal          prometheus.Counter
	pagesTotal                 *prometheus.CounterVec
	pageFetchDurationSeconds   *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	rateLimitDelaysSeconds     *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors with the default registry.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		seededRoutesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "routescan_seeded_routes_total",
				Help: "Raw seed URLs resolved, labeled by source (manual, site, sitemap).",
			},
			[]string{"source"},
		)

		sampledOutRoutesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "routescan_sampled_out_routes_total",
				Help: "Seed routes dropped by dynamic sampling.",
			},
		)

		discoveredLinksTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "routescan_discovered_links_total",
				Help: "Internal links handed to the work queue by the crawler.",
			},
		)

		renderEscalationsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "routescan_render_escalations_total",
				Help: "Times the scan switched to executing JavaScript.",
			},
		)

		queuedRoutesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "routescan_queued_routes_total",
				Help: "Routes accepted by the work queue.",
			},
		)

		pagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "routescan_pages_total",
				Help: "Pages fetched, labeled by site, fetch mode and status class.",
			},
			[]string{"site", "mode", "status"},
		)

		pageFetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "routescan_page_fetch_duration_seconds",
				Help:    "Histogram of page fetch latencies, labeled by fetch mode.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"mode"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "routescan_rate_limit_delays_seconds",
				Help:    "Histogram of rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"domain"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveSeeded counts n seed URLs coming from source.
func ObserveSeeded(source string, n int) {
	Init()
	if n > 0 {
		seededRoutesTotal.WithLabelValues(source).Add(float64(n))
	}
}

// ObserveSampledOut counts seed routes removed by sampling.
func ObserveSampledOut(n int) {
	Init()
	if n > 0 {
		sampledOutRoutesTotal.Add(float64(n))
	}
}

// ObserveDiscoveredLinks counts links enqueued by the crawler.
func ObserveDiscoveredLinks(n int) {
	Init()
	if n > 0 {
		discoveredLinksTotal.Add(float64(n))
	}
}

// ObserveEscalation counts a switch to JavaScript rendering.
func ObserveEscalation() {
	Init()
	renderEscalationsTotal.Inc()
}

// ObserveQueued counts a route accepted by the work queue.
func ObserveQueued() {
	Init()
	queuedRoutesTotal.Inc()
}

// ObservePage records a fetched page.
func ObservePage(site, mode string, statusCode int, duration time.Duration) {
	Init()
	pagesTotal.WithLabelValues(SanitizeSite(site), mode, statusClass(statusCode)).Inc()
	pageFetchDurationSeconds.WithLabelValues(mode).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	Init()
	rateLimitDelaysSeconds.WithLabelValues(domain).Observe(duration.Seconds())
}

func statusClass(code int) string {
	switch {
	case code == 0:
		return "error"
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "other"
	}
}

package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nbeast/nbeast/internal/health"
)

var (
	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nbeast",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nbeast",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})

	LocaleRedirectsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nbeast",
		Name:      "locale_redirects_total",
		Help:      "Redirects issued by the edge routing middleware.",
	}, []string{"reason"})

	RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "nbeast",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the per-IP magic-link limiter.",
	})

	// Auth metrics

	MagicLinkRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nbeast",
		Name:      "magic_link_requests_total",
		Help:      "Magic-link sign-in requests, by outcome.",
	}, []string{"outcome"})

	EmailsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nbeast",
		Name:      "emails_total",
		Help:      "Magic-link email deliveries, by outcome.",
	}, []string{"outcome"})

	SessionLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nbeast",
		Name:      "session_lookups_total",
		Help:      "Session lookups, by source (cache, db, miss, error).",
	}, []string{"source"})

	// Janitor metrics

	JanitorPurgedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nbeast",
		Name:      "janitor_purged_total",
		Help:      "Rows deleted by the janitor, by kind.",
	}, []string{"kind"})

	JanitorCycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "nbeast",
		Name:      "janitor_cycle_duration_seconds",
		Help:      "Time taken for one janitor cycle.",
		Buckets:   prometheus.DefBuckets,
	})
)

func Register() {
	prometheus.MustRegister(
		HTTPRequestDuration,
		HTTPRequestsTotal,
		LocaleRedirectsTotal,
		RateLimitedTotal,
		MagicLinkRequestsTotal,
		EmailsTotal,
		SessionLookupsTotal,
		JanitorPurgedTotal,
		JanitorCycleDuration,
	)
}

// NewServer serves /metrics plus the liveness/readiness probes on the
// internal port.
func NewServer(addr string, checker *health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz/live", func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, checker.Liveness(r.Context()), http.StatusOK)
	})
	mux.HandleFunc("/healthz/ready", func(w http.ResponseWriter, r *http.Request) {
		result := checker.Readiness(r.Context())
		status := http.StatusOK
		if result.Status != "up" {
			status = http.StatusServiceUnavailable
		}
		writeHealth(w, result, status)
	})
	return &http.Server{Addr: addr, Handler: mux}
}

func writeHealth(w http.ResponseWriter, result health.HealthResult, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(result)
}

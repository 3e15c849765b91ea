package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonathan/interview-coach/internal/feedback"
)

const metricsNamespace = "interview_coach"

// Metrics holds the Prometheus collectors of one server. Each instance owns
// its registry so several servers can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	normalizeStages *prometheus.CounterVec
	defaultedFields *prometheus.CounterVec
	scoreAdjusted   prometheus.Counter
	unknownTones    prometheus.Counter
	analyzeOutcomes *prometheus.CounterVec
	authFailures    *prometheus.CounterVec
	rateLimited     prometheus.Counter
}

// NewMetrics registers the service collectors plus the Go runtime and
// process collectors on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	auto := promauto.With(registry)

	return &Metrics{
		registry: registry,
		httpRequests: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code",
		}, []string{"route", "method", "status_code"}),
		httpDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and method",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"route", "method"}),
		normalizeStages: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "normalizer",
			Name:      "parse_stage_total",
			Help:      "Model outputs by the parse stage that recovered them",
		}, []string{"stage"}),
		defaultedFields: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "normalizer",
			Name:      "defaulted_fields_total",
			Help:      "Feedback fields filled with a default because the model omitted them",
		}, []string{"field"}),
		scoreAdjusted: auto.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "normalizer",
			Name:      "score_adjusted_total",
			Help:      "Scores that were clamped, truncated or defaulted",
		}),
		unknownTones: auto.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "normalizer",
			Name:      "unknown_tone_total",
			Help:      "Feedback whose tone is outside the prompted set",
		}),
		analyzeOutcomes: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "analyze_outcomes_total",
			Help:      "Analysis requests by outcome",
		}, []string{"outcome"}),
		authFailures: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "auth_failures_total",
			Help:      "Requests rejected by the auth gate by reason",
		}, []string{"reason"}),
		rateLimited: auto.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveReport records what the normalizer had to repair.
func (m *Metrics) ObserveReport(r feedback.Report) {
	m.normalizeStages.WithLabelValues(r.Stage.String()).Inc()
	for _, field := range r.MissingFields {
		m.defaultedFields.WithLabelValues(field).Inc()
	}
	if r.ScoreAdjusted {
		m.scoreAdjusted.Inc()
	}
	if r.UnknownTone {
		m.unknownTones.Inc()
	}
}

func (m *Metrics) observeRequest(route, method string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func (m *Metrics) observeAnalyze(outcome string) {
	m.analyzeOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeAuthFailure(reason string) {
	m.authFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) observeRateLimited() {
	m.rateLimited.Inc()
}

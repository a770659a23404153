package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the registry lookup instruments. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	TokenCacheHits      prometheus.Counter
	TokenRefreshes      *prometheus.CounterVec
	TokenInvalidations  prometheus.Counter
	UpstreamRequests    *prometheus.CounterVec
	UpstreamLatency     *prometheus.HistogramVec
	LookupOutcomes      *prometheus.CounterVec
	QualityIssues       *prometheus.CounterVec
	RecordsImported     prometheus.Counter
	StoreDegradedErrors *prometheus.CounterVec
}

// New registers the instruments with the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the instruments with reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TokenCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "siren_registry_token_cache_hits_total",
			Help: "Bearer token requests served from the cache",
		}),
		TokenRefreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "siren_registry_token_refreshes_total",
			Help: "Registry logins, by result",
		}, []string{"result"}),
		TokenInvalidations: factory.NewCounter(prometheus.CounterOpts{
			Name: "siren_registry_token_invalidations_total",
			Help: "Cached tokens dropped after the registry rejected them",
		}),
		UpstreamRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "siren_registry_upstream_requests_total",
			Help: "Company lookups sent to the registry, by response status class",
		}, []string{"status"}),
		UpstreamLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "siren_registry_upstream_duration_seconds",
			Help:    "Registry call latency, by operation",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"op"}),
		LookupOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "siren_registry_lookup_outcomes_total",
			Help: "Lookup results as seen by callers",
		}, []string{"outcome"}),
		QualityIssues: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "siren_registry_quality_issues_total",
			Help: "Fields missing from normalized registry records",
		}, []string{"issue"}),
		RecordsImported: factory.NewCounter(prometheus.CounterOpts{
			Name: "siren_registry_records_imported_total",
			Help: "Business records saved from registry lookups",
		}),
		StoreDegradedErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "siren_registry_store_degraded_errors_total",
			Help: "Token store failures that were tolerated",
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementTokenCacheHit() {
	if m == nil {
		return
	}
	m.TokenCacheHits.Inc()
}

func (m *Metrics) IncrementTokenRefresh(result string) {
	if m == nil {
		return
	}
	m.TokenRefreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementTokenInvalidation() {
	if m == nil {
		return
	}
	m.TokenInvalidations.Inc()
}

// IncrementUpstreamRequest counts a response by status class ("2xx", "4xx",
// "5xx") or "error" when no response arrived.
func (m *Metrics) IncrementUpstreamRequest(status int) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(statusClass(status)).Inc()
}

func (m *Metrics) ObserveUpstreamLatency(op string, d time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamLatency.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) IncrementLookupOutcome(outcome string) {
	if m == nil {
		return
	}
	m.LookupOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementQualityIssue(issue string) {
	if m == nil {
		return
	}
	m.QualityIssues.WithLabelValues(issue).Inc()
}

func (m *Metrics) IncrementRecordsImported() {
	if m == nil {
		return
	}
	m.RecordsImported.Inc()
}

func (m *Metrics) IncrementStoreDegraded(operation string) {
	if m == nil {
		return
	}
	m.StoreDegradedErrors.WithLabelValues(operation).Inc()
}

func statusClass(status int) string {
	switch {
	case status <= 0:
		return "error"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

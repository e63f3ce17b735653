// Package metrics provides Prometheus metrics for the lyrics pipelines.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Provider metrics
var (
	// providerAttemptsTotal records every lyrics provider attempt.
	// Labels:
	//   - provider: Provider name (e.g., "lrchub", "lrclib", "github")
	//   - outcome: "success", or the error kind ("network", "timeout", "malformed", "not_found", ...)
	providerAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lyrics_provider_attempts_total",
			Help: "Total number of lyrics provider attempts",
		},
		[]string{"provider", "outcome"},
	)

	// providerDuration records provider latency.
	// Buckets: 0.1s, 0.5s, 1s, 2.5s, 5s, 10s, 30s, 90s
	providerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lyrics_provider_duration_seconds",
			Help:    "Duration of lyrics provider attempts in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 90},
		},
		[]string{"provider"},
	)

	// fallbackDepth records how far down the provider order a load had to go.
	// Labels:
	//   - provider: Provider that served the lyrics, or "none"
	fallbackDepth = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lyrics_fallback_served_total",
			Help: "Lyrics loads by serving provider",
		},
		[]string{"provider"},
	)
)

// Translation metrics
var (
	// translationRequestsTotal records translator calls.
	// Labels:
	//   - kind: "bulk" or "mixed"
	//   - status: "success", "failed", "mismatch"
	translationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lyrics_translation_requests_total",
			Help: "Total number of translation provider calls",
		},
		[]string{"kind", "status"},
	)

	// mixedLinesTotal counts lines detected as passed through untranslated.
	mixedLinesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lyrics_translation_mixed_lines_total",
			Help: "Lines re-submitted by the mixed-language fallback",
		},
	)

	// translationSourceTotal records where each language's translation came from.
	// Labels:
	//   - source: "registry", "machine", "none"
	translationSourceTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lyrics_translation_source_total",
			Help: "Translations by source",
		},
		[]string{"source"},
	)
)

// Session metrics
var (
	// actionsTotal records candidate selections and lock requests.
	// Labels:
	//   - action: "select" or "lock"
	//   - status: "success" or "failed"
	actionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lyrics_session_actions_total",
			Help: "Candidate selections and lock requests by outcome",
		},
		[]string{"action", "status"},
	)

	// staleDiscardsTotal counts pipeline results dropped because the song changed.
	// Labels:
	//   - pipeline: "load", "select", "reload", "lock"
	staleDiscardsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lyrics_stale_results_total",
			Help: "Pipeline results discarded after the song identity changed",
		},
		[]string{"pipeline"},
	)
)

func init() {
	prometheus.MustRegister(providerAttemptsTotal)
	prometheus.MustRegister(providerDuration)
	prometheus.MustRegister(fallbackDepth)
	prometheus.MustRegister(translationRequestsTotal)
	prometheus.MustRegister(mixedLinesTotal)
	prometheus.MustRegister(translationSourceTotal)
	prometheus.MustRegister(actionsTotal)
	prometheus.MustRegister(staleDiscardsTotal)
}

// RecordProviderAttempt records one provider attempt and its latency.
func RecordProviderAttempt(provider, outcome string, durationSeconds float64) {
	providerAttemptsTotal.WithLabelValues(provider, outcome).Inc()
	providerDuration.WithLabelValues(provider).Observe(durationSeconds)
}

// RecordServedBy records which provider served a load ("none" when all failed).
func RecordServedBy(provider string) {
	fallbackDepth.WithLabelValues(provider).Inc()
}

// RecordTranslation records a translator call.
func RecordTranslation(kind, status string) {
	translationRequestsTotal.WithLabelValues(kind, status).Inc()
}

// RecordMixedLines adds n lines flagged by the mixed-language fallback.
func RecordMixedLines(n int) {
	mixedLinesTotal.Add(float64(n))
}

// RecordTranslationSource records where a language's translation came from.
func RecordTranslationSource(source string) {
	translationSourceTotal.WithLabelValues(source).Inc()
}

// RecordAction records a selection or lock outcome.
func RecordAction(action, status string) {
	actionsTotal.WithLabelValues(action, status).Inc()
}

// RecordStale records a discarded pipeline result.
func RecordStale(pipeline string) {
	staleDiscardsTotal.WithLabelValues(pipeline).Inc()
}

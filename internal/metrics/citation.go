package metrics

import "github.com/prometheus/client_golang/prometheus"

// Citation resolution Prometheus metrics.
var (
	CitationsParsedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "citeflow",
			Name:      "citations_parsed_total",
			Help:      "Citation markers found in answers, duplicates included",
		},
	)

	SourcesResolvedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "citeflow",
			Name:      "sources_resolved_total",
			Help:      "Resolved sources by how the section was matched",
		},
		[]string{"match"}, // "exact" / "closest" / "placeholder"
	)

	HighlightsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "citeflow",
			Name:      "highlights_total",
			Help:      "Highlights attached to sources",
		},
		[]string{"scorer"},
	)

	HighlightErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "citeflow",
			Name:      "highlight_errors_total",
			Help:      "Highlight extractions that failed and degraded to no highlights",
		},
		[]string{"scorer"},
	)

	ResolveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "citeflow",
			Name:      "resolve_duration_seconds",
			Help:      "Time to resolve all citations of one answer",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	StreamsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "citeflow",
			Name:      "streams_total",
			Help:      "Finished answer streams by outcome",
		},
		[]string{"outcome"}, // "done" / "aborted" / "disconnected"
	)
)

var citationMetricsRegistered bool

// RegisterCitationMetrics registers citation metrics. Must be called once from main.
func RegisterCitationMetrics() {
	if citationMetricsRegistered {
		return
	}
	prometheus.MustRegister(CitationsParsedTotal)
	prometheus.MustRegister(SourcesResolvedTotal)
	prometheus.MustRegister(HighlightsTotal)
	prometheus.MustRegister(HighlightErrorsTotal)
	prometheus.MustRegister(ResolveDuration)
	prometheus.MustRegister(StreamsTotal)
	citationMetricsRegistered = true
}

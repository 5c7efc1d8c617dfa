package metrics

import "github.com/prometheus/client_golang/prometheus"

// Answer provider Prometheus metrics.
var (
	AnswerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "citeflow",
			Name:      "answer_requests_total",
			Help:      "Total number of answer provider requests",
		},
		[]string{"provider", "model", "mode", "status"}, // mode: "complete" / "stream"
	)

	AnswerRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "citeflow",
			Name:      "answer_request_duration_seconds",
			Help:      "Answer provider request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"provider", "model", "mode"},
	)

	AnswerTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "citeflow",
			Name:      "answer_tokens_total",
			Help:      "Total answer provider tokens consumed",
		},
		[]string{"provider", "model", "type"},
	)
)

var answerMetricsRegistered bool

// RegisterAnswerMetrics registers Prometheus answer provider metrics. Must be called once from main.
func RegisterAnswerMetrics() {
	if answerMetricsRegistered {
		return
	}
	prometheus.MustRegister(AnswerRequestsTotal)
	prometheus.MustRegister(AnswerRequestDuration)
	prometheus.MustRegister(AnswerTokensTotal)
	answerMetricsRegistered = true
}

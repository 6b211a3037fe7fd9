// Package metrics exposes Prometheus collectors for the service
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	CompletionWrites *prometheus.CounterVec
	Suggestions      *prometheus.CounterVec
	RemindersSent    prometheus.Counter
	RemindersFailed  prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "regimen",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status class.",
		}, []string{"route", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "regimen",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		CompletionWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "regimen",
			Name:      "completion_writes_total",
			Help:      "Completion toggles by kind (set, unset, period_undo).",
		}, []string{"kind"}),
		Suggestions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "regimen",
			Name:      "suggestions_total",
			Help:      "Suggestion requests by outcome (cache, llm, error).",
		}, []string{"outcome"}),
		RemindersSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "regimen",
			Name:      "reminders_sent_total",
			Help:      "Reminder notifications delivered.",
		}),
		RemindersFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "regimen",
			Name:      "reminders_failed_total",
			Help:      "Reminder notifications that failed to deliver.",
		}),
	}
}

// Default returns metrics registered on the global Prometheus registry
func Default() *Metrics {
	return New(prometheus.DefaultRegisterer)
}

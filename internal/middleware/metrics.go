package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Labels: type (message, callback_query, unknown)
	updatesProcessed = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "coworker",
		Subsystem: "bot",
		Name:      "update_duration_seconds",
		Help:      "Time spent handling one Telegram update",
		Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"type"})

	panicsRecovered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coworker",
		Subsystem: "bot",
		Name:      "panics_total",
		Help:      "Handler panics caught by the recover middleware",
	}, []string{"type"})

	rateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "coworker",
		Subsystem: "bot",
		Name:      "rate_limited_total",
		Help:      "Messages dropped by the per-chat rate limit",
	})
)

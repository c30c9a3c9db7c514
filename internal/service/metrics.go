package service

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Labels: path, outcome (ok, timeout, api_error, error)
	backendRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coworker",
		Subsystem: "backend",
		Name:      "requests_total",
		Help:      "Backend API calls by path and outcome",
	}, []string{"path", "outcome"})

	backendLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "coworker",
		Subsystem: "backend",
		Name:      "request_duration_seconds",
		Help:      "Backend API call latency in seconds",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
	}, []string{"path"})
)

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 0 && apiErr.Message == timeoutMessage {
			return "timeout"
		}
		return "api_error"
	}
	return "error"
}

package main

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "worldmap_requests_total",
		Help: "Total HTTP requests by handler and status code",
	}, []string{"handler", "code"})
	renderDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "worldmap_render_duration_ms",
		Help:    "Snapshot render duration in milliseconds, including image waits",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
	})
	completionRefreshFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "worldmap_completion_refresh_failures_total",
		Help: "Completion loads from redis that failed",
	})
)

func registerMetrics(reg prometheus.Registerer) {
	reg.MustRegister(requestsTotal, renderDurationMs, completionRefreshFailures)
}

package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crm",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "crm",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	activityTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crm",
			Name:      "activity_transitions_total",
			Help:      "Activity status transitions by outcome",
		},
		[]string{"outcome"},
	)

	dailyCallRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crm",
			Name:      "daily_call_runs_total",
			Help:      "Daily call generator runs by result",
		},
		[]string{"result"},
	)

	dailyCallsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "crm",
			Name:      "daily_calls_created_total",
			Help:      "System generated call activities",
		},
	)
)

func ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func RecordTransition(outcome string) {
	activityTransitions.WithLabelValues(outcome).Inc()
}

// RecordDailyCallRun: result es created, weekday, already_generated, no_candidates o error.
func RecordDailyCallRun(result string, created int) {
	dailyCallRuns.WithLabelValues(result).Inc()
	if created > 0 {
		dailyCallsCreated.Add(float64(created))
	}
}

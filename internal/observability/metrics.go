package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ventil",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ventil",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	tradeEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ventil",
			Subsystem: "trades",
			Name:      "events_total",
			Help:      "Trade lifecycle events (created, cancelled, executed, execution_failed).",
		},
		[]string{"event"},
	)
	tradeRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ventil",
			Subsystem: "trades",
			Name:      "rejections_total",
			Help:      "Trade operations rejected by validation.",
		},
		[]string{"operation", "reason"},
	)
	skippedPossessions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ventil",
			Subsystem: "trades",
			Name:      "skipped_possessions_total",
			Help:      "Offered possessions that no longer existed when their trade executed.",
		},
	)
	openTrades = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ventil",
			Subsystem: "trades",
			Name:      "open",
			Help:      "Trades currently under negotiation.",
		},
	)
	executionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ventil",
			Subsystem: "trades",
			Name:      "execution_duration_seconds",
			Help:      "Time spent committing a trade, including failed attempts.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// Trade lifecycle event labels
const (
	EventCreated         = "created"
	EventCancelled       = "cancelled"
	EventExecuted        = "executed"
	EventExecutionFailed = "execution_failed"
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			tradeEvents,
			tradeRejections,
			skippedPossessions,
			openTrades,
			executionDuration,
		)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

func RecordTradeEvent(event string) {
	RegisterMetrics()
	tradeEvents.WithLabelValues(event).Inc()
}

func RecordRejection(operation, reason string) {
	RegisterMetrics()
	tradeRejections.WithLabelValues(operation, reason).Inc()
}

func RecordSkippedPossessions(n int) {
	RegisterMetrics()
	skippedPossessions.Add(float64(n))
}

func RecordExecutionDuration(d time.Duration) {
	RegisterMetrics()
	executionDuration.Observe(d.Seconds())
}

func SetOpenTrades(n int) {
	RegisterMetrics()
	openTrades.Set(float64(n))
}

package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	TriggerDelivered = "delivered"
	TriggerDropped   = "dropped"

	ActionOK      = "ok"
	ActionFailed  = "error"
	ActionIgnored = "ignored"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "readyctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "readyctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	activeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "readyctl",
			Subsystem: "coordinator",
			Name:      "connections",
			Help:      "Live event channel connections.",
		},
	)
	inboundEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "readyctl",
			Subsystem: "coordinator",
			Name:      "events_total",
			Help:      "Events processed by the coordinator loop.",
		},
		[]string{"event"},
	)
	triggers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "readyctl",
			Subsystem: "coordinator",
			Name:      "triggers_total",
			Help:      "Rendezvous dispatches by outcome.",
		},
		[]string{"outcome"},
	)
	broadcasts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "readyctl",
			Subsystem: "coordinator",
			Name:      "broadcasts_total",
			Help:      "status_update broadcasts sent to all connections.",
		},
	)
	outboundDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "readyctl",
			Subsystem: "coordinator",
			Name:      "outbound_dropped_total",
			Help:      "Frames dropped because a connection's send buffer was full or closed.",
		},
	)
	actions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "readyctl",
			Subsystem: "host",
			Name:      "actions_total",
			Help:      "Host physical actions by mode and result.",
		},
		[]string{"mode", "result"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			activeConnections,
			inboundEvents,
			triggers,
			broadcasts,
			outboundDropped,
			actions,
		)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func SetConnections(n int) {
	RegisterMetrics()
	activeConnections.Set(float64(n))
}

func RecordEvent(event string) {
	RegisterMetrics()
	inboundEvents.WithLabelValues(event).Inc()
}

func RecordTrigger(outcome string) {
	RegisterMetrics()
	triggers.WithLabelValues(outcome).Inc()
}

func RecordBroadcast() {
	RegisterMetrics()
	broadcasts.Inc()
}

func RecordOutboundDropped() {
	RegisterMetrics()
	outboundDropped.Inc()
}

func RecordAction(mode, result string) {
	RegisterMetrics()
	actions.WithLabelValues(mode, result).Inc()
}

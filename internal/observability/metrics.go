package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamchat_http_requests_total",
			Help: "Total number of HTTP requests processed by the chat API.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "teamchat_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "teamchat_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
		[]string{"kind"},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamchat_ws_events_total",
			Help: "Total number of websocket events.",
		},
		[]string{"kind", "event"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "teamchat_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
	syncPollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamchat_sync_polls_total",
			Help: "Client poll cycles by poller and result (ok, error, skipped).",
		},
		[]string{"poller", "result"},
	)
	syncStaleTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "teamchat_sync_stale_responses_total",
			Help: "Fetch responses discarded because the selection changed in flight.",
		},
	)
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamchat_notifications_total",
			Help: "System messages written to notification chats.",
		},
		[]string{"kind"},
	)
	retentionPurgedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "teamchat_retention_purged_total",
			Help: "Notification messages removed by the retention job.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		amqpPublishErrorsTotal,
		syncPollsTotal,
		syncStaleTotal,
		notificationsTotal,
		retentionPurgedTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Inc()
}

func DecWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Dec()
}

func IncWSEvent(kind, event string) {
	wsEventsTotal.WithLabelValues(kind, event).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}

// IncSyncPoll counts a poll cycle. result is "ok", "error" or "skipped".
func IncSyncPoll(poller, result string) {
	syncPollsTotal.WithLabelValues(poller, result).Inc()
}

func IncSyncStale() {
	syncStaleTotal.Inc()
}

func IncNotification(kind string) {
	notificationsTotal.WithLabelValues(kind).Inc()
}

func AddRetentionPurged(n int64) {
	retentionPurgedTotal.Add(float64(n))
}

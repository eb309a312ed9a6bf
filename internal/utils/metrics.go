package utils

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector tracks request, delivery and presence metrics for the
// messaging core. Each instance carries its own registry so tests can run
// isolated collectors.
type MetricsCollector struct {
	registry *prometheus.Registry

	RequestsTotal  *prometheus.CounterVec
	ErrorsTotal    prometheus.Counter
	SendLatency    prometheus.Histogram
	EventsPushed   *prometheus.CounterVec
	EventsDropped  prometheus.Counter
	OnlineUsers    prometheus.Gauge
	OpenWebsockets prometheus.Gauge
}

func NewMetricsCollector() *MetricsCollector {
	registry := prometheus.NewRegistry()

	mc := &MetricsCollector{
		registry: registry,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ripple_requests_total",
			Help: "REST requests handled, by operation.",
		}, []string{"operation"}),
		ErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ripple_request_errors_total",
			Help: "REST requests that ended in an error response.",
		}),
		SendLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ripple_send_duration_seconds",
			Help:    "Latency of the full send path (validate, persist, push).",
			Buckets: prometheus.DefBuckets,
		}),
		EventsPushed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ripple_realtime_events_total",
			Help: "Realtime events published, by event type.",
		}, []string{"type"}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ripple_realtime_events_dropped_total",
			Help: "Realtime events dropped because a client buffer was full.",
		}),
		OnlineUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ripple_online_users",
			Help: "Users currently registered in the presence table.",
		}),
		OpenWebsockets: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ripple_open_websockets",
			Help: "Open websocket connections, joined or not.",
		}),
	}

	registry.MustRegister(
		mc.RequestsTotal,
		mc.ErrorsTotal,
		mc.SendLatency,
		mc.EventsPushed,
		mc.EventsDropped,
		mc.OnlineUsers,
		mc.OpenWebsockets,
	)
	return mc
}

// Handler exposes the collector's registry in Prometheus text format.
func (mc *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{})
}

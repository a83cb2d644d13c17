package utils

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the bot's Prometheus collectors.
type Metrics struct {
	registry     *prometheus.Registry
	Updates      *prometheus.CounterVec
	Deliveries   *prometheus.CounterVec
	QuotaDenied  *prometheus.CounterVec
	Broadcasts   *prometheus.CounterVec
	ShareLinks   *prometheus.CounterVec
	SweptTokens  prometheus.Counter
	HTTPRequests *prometheus.CounterVec
}

// Stats is the process-wide metrics instance.
var Stats = NewMetrics()

// NewMetrics creates collectors on a private registry so tests can build fresh ones.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clipbot",
			Name:      "updates_total",
			Help:      "Telegram updates handled, by kind.",
		}, []string{"kind"}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clipbot",
			Name:      "deliveries_total",
			Help:      "Media deliveries, by kind and result.",
		}, []string{"kind", "result"}),
		QuotaDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clipbot",
			Name:      "quota_denied_total",
			Help:      "Requests refused because the daily quota was exhausted.",
		}, []string{"kind"}),
		Broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clipbot",
			Name:      "broadcast_messages_total",
			Help:      "Broadcast sends, by result.",
		}, []string{"result"}),
		ShareLinks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clipbot",
			Name:      "share_links_total",
			Help:      "Share link operations, by op and result.",
		}, []string{"op", "result"}),
		SweptTokens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clipbot",
			Name:      "share_tokens_swept_total",
			Help:      "Expired share tokens removed by the sweep.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clipbot",
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by method, route and status class.",
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Updates, m.Deliveries, m.QuotaDenied, m.Broadcasts, m.ShareLinks, m.SweptTokens, m.HTTPRequests,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
	return gin.WrapH(h)
}

// Package metrics exposes Prometheus counters for the HTTP API, the event
// stream and the write-ahead queue.
package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/events"
)

const namespace = "muslim_assistant"

// Metrics holds every collector on its own registry.
type Metrics struct {
	Registry *prometheus.Registry

	ReqCount        *prometheus.CounterVec
	ReqDuration     *prometheus.HistogramVec
	Events          *prometheus.CounterVec
	XPAwarded       *prometheus.CounterVec
	BadgesUnlocked  *prometheus.CounterVec
	ChatMessages    prometheus.Counter
	OnlineUsers     prometheus.Gauge
	PersistFailures *prometheus.CounterVec
	BroadcastEmails prometheus.Counter
}

// New creates and registers the collectors. pending, when set, reports the
// write queue depth.
func New(pending func() int) *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		ReqCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		ReqDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Request duration seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Events published on the bus",
		}, []string{"event"}),
		XPAwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "xp_awarded_total",
			Help:      "Net XP credited, by reason. Removals are counted separately",
		}, []string{"reason", "direction"}),
		BadgesUnlocked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "badges_unlocked_total",
			Help:      "Badge unlocks",
		}, []string{"badge"}),
		ChatMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_messages_total",
			Help:      "Chat messages stored",
		}),
		OnlineUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_users",
			Help:      "Users with an open realtime connection",
		}),
		PersistFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Queued writes that ran out of retries, by document kind",
		}, []string{"kind"}),
		BroadcastEmails: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_recipients_total",
			Help:      "Recipients of version broadcast emails",
		}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ReqCount, m.ReqDuration, m.Events, m.XPAwarded, m.BadgesUnlocked,
		m.ChatMessages, m.OnlineUsers, m.PersistFailures, m.BroadcastEmails,
	)
	if pending != nil {
		m.Registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "write_queue_pending",
			Help:      "Documents waiting to be written",
		}, func() float64 { return float64(pending()) }))
	}
	return m
}

// Attach subscribes the counters to bus.
func (m *Metrics) Attach(bus *events.Bus) (detach func()) {
	unsubs := []func(){
		bus.SubscribeAll(func(e events.Event) {
			m.Events.WithLabelValues(e.Name()).Inc()
		}),
		events.Subscribe(bus, func(e events.XPChanged) {
			delta := e.NewXP - e.OldXP
			switch {
			case delta > 0:
				m.XPAwarded.WithLabelValues(e.Reason, "credit").Add(float64(delta))
			case delta < 0:
				m.XPAwarded.WithLabelValues(e.Reason, "debit").Add(float64(-delta))
			}
		}),
		events.Subscribe(bus, func(e events.BadgeUnlocked) {
			m.BadgesUnlocked.WithLabelValues(e.BadgeID).Inc()
		}),
		events.Subscribe(bus, func(events.ChatMessage) {
			m.ChatMessages.Inc()
		}),
		events.Subscribe(bus, func(e events.PresenceChanged) {
			if e.Online {
				m.OnlineUsers.Inc()
			} else {
				m.OnlineUsers.Dec()
			}
		}),
		events.Subscribe(bus, func(e events.PersistFailed) {
			m.PersistFailures.WithLabelValues(kindOf(e.Key)).Inc()
		}),
		events.Subscribe(bus, func(e events.VersionBroadcast) {
			m.BroadcastEmails.Add(float64(e.Recipients))
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// kindOf returns the document kind of a queue key such as "profile:42".
func kindOf(key string) string {
	kind, _, _ := strings.Cut(key, ":")
	return kind
}

// RequestLogger records request count and latency per route.
func (m *Metrics) RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		c.Next()

		m.ReqCount.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.ReqDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
}

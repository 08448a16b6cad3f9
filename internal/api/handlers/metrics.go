package handlers

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors exported on /metrics. Labels are limited to
// auth mode, outcome and channel so webhook ids never become series.
type Metrics struct {
	registry      *prometheus.Registry
	verifications *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	notifications *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hookflo",
			Name:      "verifications_total",
			Help:      "Inbound webhook calls by auth mode and outcome.",
		}, []string{"mode", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hookflo",
			Name:      "verification_duration_seconds",
			Help:      "Time spent verifying and dispatching inbound calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hookflo",
			Name:      "notifications_total",
			Help:      "Notification delivery attempts by channel and result.",
		}, []string{"channel", "result"}),
	}
	m.registry.MustRegister(
		m.verifications,
		m.duration,
		m.notifications,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) observeVerification(mode, outcome string, elapsed time.Duration) {
	if mode == "" {
		mode = "unknown"
	}
	m.verifications.WithLabelValues(mode, outcome).Inc()
	m.duration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

func (m *Metrics) observeNotification(channel string, sent bool) {
	result := "sent"
	if !sent {
		result = "failed"
	}
	m.notifications.WithLabelValues(channel, result).Inc()
}

func (m *Metrics) Export(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics records billing webhook processing outcomes.
type WebhookMetrics struct {
	received *prometheus.CounterVec
	ignored  *prometheus.CounterVec
	synced   *prometheus.CounterVec
	failed   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewWebhookMetrics registers the webhook metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_received",
		Help: "Webhook events accepted after signature verification.",
	}, []string{"type"})
	ignored := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_ignored",
		Help: "Webhook events discarded by the type allowlist or duplicate guard.",
	}, []string{"type"})
	synced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_synced",
		Help: "Webhook events that completed a subscription resync.",
	}, []string{"type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_failed",
		Help: "Webhook events whose resync failed.",
	}, []string{"type"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_sync_duration_seconds",
		Help:    "Duration of webhook-triggered subscription resyncs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})
	reg.MustRegister(received, ignored, synced, failed, duration)
	return &WebhookMetrics{
		received: received,
		ignored:  ignored,
		synced:   synced,
		failed:   failed,
		duration: duration,
	}
}

// IncReceived increments the received counter for the event type.
func (w *WebhookMetrics) IncReceived(eventType string) {
	if w == nil || w.received == nil {
		return
	}
	w.received.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncIgnored increments the ignored counter for the event type.
func (w *WebhookMetrics) IncIgnored(eventType string) {
	if w == nil || w.ignored == nil {
		return
	}
	w.ignored.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncSynced increments the synced counter for the event type.
func (w *WebhookMetrics) IncSynced(eventType string) {
	if w == nil || w.synced == nil {
		return
	}
	w.synced.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncFailed increments the failed counter for the event type.
func (w *WebhookMetrics) IncFailed(eventType string) {
	if w == nil || w.failed == nil {
		return
	}
	w.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// ObserveSyncDuration records how long a webhook-triggered resync took.
func (w *WebhookMetrics) ObserveSyncDuration(eventType string, duration time.Duration) {
	if w == nil || w.duration == nil {
		return
	}
	w.duration.WithLabelValues(normalizeLabel(eventType)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

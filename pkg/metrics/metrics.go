package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records checkout outcomes by path (paid, zero_amount,
// invitation).
type CheckoutMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_success",
		Help: "Successful checkouts.",
	}, []string{"path"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failure",
		Help: "Failed checkouts.",
	}, []string{"path", "code"})
	reg.MustRegister(duration, success, failure)
	return &CheckoutMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
	}
}

// ObserveDuration records the duration for the named checkout path.
func (c *CheckoutMetrics) ObserveDuration(path string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(path)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named checkout path.
func (c *CheckoutMetrics) IncSuccess(path string) {
	if c == nil || c.success == nil {
		return
	}
	c.success.WithLabelValues(normalizeLabel(path)).Inc()
}

// IncFailure increments the failure counter with the domain error code.
func (c *CheckoutMetrics) IncFailure(path, code string) {
	if c == nil || c.failure == nil {
		return
	}
	c.failure.WithLabelValues(normalizeLabel(path), normalizeLabel(code)).Inc()
}

// WebhookMetrics tracks payment confirmation processing.
type WebhookMetrics struct {
	received   *prometheus.CounterVec
	duplicates prometheus.Counter
	failures   *prometheus.CounterVec
}

// NewWebhookMetrics registers webhook metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_received",
		Help: "Gateway webhook events received by type.",
	}, []string{"event_type"})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "webhook_events_duplicate",
		Help: "Webhook events skipped by the idempotency guard.",
	})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_failed",
		Help: "Webhook events that failed processing.",
	}, []string{"event_type"})
	reg.MustRegister(received, duplicates, failures)
	return &WebhookMetrics{
		received:   received,
		duplicates: duplicates,
		failures:   failures,
	}
}

// IncReceived counts an incoming gateway event.
func (w *WebhookMetrics) IncReceived(eventType string) {
	if w == nil || w.received == nil {
		return
	}
	w.received.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncDuplicate counts a redelivery recognized by the idempotency guard.
func (w *WebhookMetrics) IncDuplicate() {
	if w == nil || w.duplicates == nil {
		return
	}
	w.duplicates.Inc()
}

// IncFailed counts a processing failure.
func (w *WebhookMetrics) IncFailed(eventType string) {
	if w == nil || w.failures == nil {
		return
	}
	w.failures.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// PublisherMetrics tracks the outbox publisher loop.
type PublisherMetrics struct {
	published prometheus.Counter
	failed    prometheus.Counter
	terminal  prometheus.Counter
	lag       prometheus.Histogram
}

// NewPublisherMetrics registers outbox publisher metrics.
func NewPublisherMetrics(reg prometheus.Registerer) *PublisherMetrics {
	if reg == nil {
		return &PublisherMetrics{}
	}
	published := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_events_published",
		Help: "Outbox events published to Pub/Sub.",
	})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_events_failed",
		Help: "Outbox publish attempts that failed and will retry.",
	})
	terminal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_events_terminal",
		Help: "Outbox events routed to the DLQ.",
	})
	lag := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "outbox_publish_lag_seconds",
		Help:    "Delay between outbox row creation and publish.",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 300},
	})
	reg.MustRegister(published, failed, terminal, lag)
	return &PublisherMetrics{
		published: published,
		failed:    failed,
		terminal:  terminal,
		lag:       lag,
	}
}

// IncPublished counts a successful publish.
func (p *PublisherMetrics) IncPublished() {
	if p == nil || p.published == nil {
		return
	}
	p.published.Inc()
}

// IncFailed counts a retryable publish failure.
func (p *PublisherMetrics) IncFailed() {
	if p == nil || p.failed == nil {
		return
	}
	p.failed.Inc()
}

// IncTerminal counts a DLQ routing.
func (p *PublisherMetrics) IncTerminal() {
	if p == nil || p.terminal == nil {
		return
	}
	p.terminal.Inc()
}

// ObserveLag records the publish delay for an event.
func (p *PublisherMetrics) ObserveLag(createdAt time.Time) {
	if p == nil || p.lag == nil || createdAt.IsZero() {
		return
	}
	p.lag.Observe(time.Since(createdAt).Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

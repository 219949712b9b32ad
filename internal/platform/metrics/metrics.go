package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	LeadsCreated         *prometheus.CounterVec
	RateLimitDenied      prometheus.Counter
	NotificationAttempts *prometheus.CounterVec
	IntakeDuration       prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		LeadsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "leadgate_leads_created_total",
			Help: "Total leads created, labeled by priority tier",
		}, []string{"tier"}),
		RateLimitDenied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "leadgate_rate_limit_denied_total",
			Help: "Total intake submissions denied by the rate limiter",
		}),
		NotificationAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "leadgate_notification_attempts_total",
			Help: "Notification dispatch attempts, labeled by channel and outcome",
		}, []string{"channel", "outcome"}),
		IntakeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "leadgate_intake_duration_seconds",
			Help:    "End-to-end submission handling latency",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// RecordLeadCreated increments the created counter for a tier.
func (m *Metrics) RecordLeadCreated(tier string) {
	m.LeadsCreated.WithLabelValues(tier).Inc()
}

// RecordRateLimitDenied increments the denial counter.
func (m *Metrics) RecordRateLimitDenied() {
	m.RateLimitDenied.Inc()
}

// RecordNotification increments the dispatch counter for a channel/outcome.
func (m *Metrics) RecordNotification(channel, outcome string) {
	m.NotificationAttempts.WithLabelValues(channel, outcome).Inc()
}

// ObserveIntakeDuration records one submission's handling latency.
func (m *Metrics) ObserveIntakeDuration(d time.Duration) {
	m.IntakeDuration.Observe(d.Seconds())
}

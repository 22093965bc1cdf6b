package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the payment service collectors. A nil *Metrics is a no-op.
type Metrics struct {
	jobDuration *prometheus.HistogramVec
	jobSuccess  *prometheus.CounterVec
	jobFailure  *prometheus.CounterVec

	transitions *prometheus.CounterVec
	credits     *prometheus.CounterVec
	webhooks    *prometheus.CounterVec
}

// New registers the collectors on the provided registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}

	m := &Metrics{
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coinwallet_job_duration_seconds",
			Help:    "Duration of background jobs in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
		jobSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coinwallet_job_success_total",
			Help: "Successful background job runs.",
		}, []string{"job"}),
		jobFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coinwallet_job_failure_total",
			Help: "Failed background job runs.",
		}, []string{"job"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coinwallet_payment_transitions_total",
			Help: "Payment intent status transitions won, by source and status.",
		}, []string{"source", "status"}),
		credits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coinwallet_wallet_credits_total",
			Help: "Wallet credit outcomes for succeeded payments.",
		}, []string{"outcome"}),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coinwallet_webhooks_total",
			Help: "Inbound provider webhooks by delivery status.",
		}, []string{"status"}),
	}
	reg.MustRegister(m.jobDuration, m.jobSuccess, m.jobFailure, m.transitions, m.credits, m.webhooks)
	return m
}

func (m *Metrics) ObserveJob(job string, duration time.Duration, err error) {
	if m == nil || m.jobDuration == nil {
		return
	}
	job = normalizeLabel(job)
	m.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
	if err != nil {
		m.jobFailure.WithLabelValues(job).Inc()
		return
	}
	m.jobSuccess.WithLabelValues(job).Inc()
}

func (m *Metrics) IncTransition(source, status string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(source), normalizeLabel(status)).Inc()
}

func (m *Metrics) IncCredit(outcome string) {
	if m == nil || m.credits == nil {
		return
	}
	m.credits.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *Metrics) IncWebhook(status string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.WithLabelValues(normalizeLabel(status)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for wallet synchronization.
type Metrics struct {
	PassesProvisioned  prometheus.Counter
	PassesRevoked      prometheus.Counter
	StampUpdatesPushed prometheus.Counter
	SyncFailures       *prometheus.CounterVec
	RetriesEnqueued    prometheus.Counter
	PermanentFailures  prometheus.Counter
	QueueDepth         prometheus.Gauge
	DispatchLatency    prometheus.Histogram
	ConsentBlocks      prometheus.Counter
	PrivacyActions     *prometheus.CounterVec
}

// New registers and returns wallet sync metrics collectors.
func New() *Metrics {
	return &Metrics{
		PassesProvisioned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "selo_wallet_passes_provisioned_total",
			Help: "Total number of wallet passes created at the provider",
		}),
		PassesRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "selo_wallet_passes_revoked_total",
			Help: "Total number of wallet passes deleted at the provider",
		}),
		StampUpdatesPushed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "selo_wallet_stamp_updates_total",
			Help: "Total number of balance updates pushed to the provider",
		}),
		SyncFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "selo_wallet_sync_failures_total",
			Help: "Total number of failed provider dispatches, labeled by kind",
		}, []string{"kind"}),
		RetriesEnqueued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "selo_wallet_retries_enqueued_total",
			Help: "Total number of sync attempts handed to the retry queue",
		}),
		PermanentFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "selo_wallet_permanent_failures_total",
			Help: "Total number of syncs dropped after exhausting the retry budget",
		}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "selo_wallet_retry_queue_depth",
			Help: "Current number of pending retry items",
		}),
		DispatchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "selo_wallet_dispatch_latency_seconds",
			Help:    "Latency of outbound provider calls in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		ConsentBlocks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "selo_wallet_consent_blocks_total",
			Help: "Total number of provisioning attempts blocked by missing consent",
		}),
		PrivacyActions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "selo_privacy_actions_total",
			Help: "Total number of LGPD privacy actions, labeled by action",
		}, []string{"action"}),
	}
}

func (m *Metrics) IncrementSyncFailure(kind string) {
	m.SyncFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementPrivacyAction(action string) {
	m.PrivacyActions.WithLabelValues(action).Inc()
}

// SetQueueDepth records the current retry queue depth.
func (m *Metrics) SetQueueDepth(depth int) {
	m.QueueDepth.Set(float64(depth))
}

// ObserveDispatchLatency records the latency of one provider call.
func (m *Metrics) ObserveDispatchLatency(durationSeconds float64) {
	m.DispatchLatency.Observe(durationSeconds)
}

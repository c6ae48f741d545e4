package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BridgeMetrics records per-method dispatch outcomes and listener activity.
type BridgeMetrics struct {
	duration      *prometheus.HistogramVec
	failures      *prometheus.CounterVec
	events        prometheus.Counter
	skippedEvents prometheus.Counter
}

// NewBridgeMetrics registers the bridge metrics on the provided registerer.
func NewBridgeMetrics(reg prometheus.Registerer) *BridgeMetrics {
	if reg == nil {
		return &BridgeMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bridge_command_duration_seconds",
		Help:    "Duration of bridge command dispatches in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_command_failures_total",
		Help: "Failed bridge command dispatches by error code.",
	}, []string{"method", "code"})
	events := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bridge_transaction_updates_total",
		Help: "Transaction updates forwarded to the host application.",
	})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bridge_transaction_updates_skipped_total",
		Help: "Transaction updates dropped because verification failed.",
	})
	reg.MustRegister(duration, failures, events, skipped)
	return &BridgeMetrics{
		duration:      duration,
		failures:      failures,
		events:        events,
		skippedEvents: skipped,
	}
}

// ObserveCommand records the duration for the named method.
func (b *BridgeMetrics) ObserveCommand(method string, duration time.Duration) {
	if b == nil || b.duration == nil {
		return
	}
	b.duration.WithLabelValues(normalizeLabel(method)).Observe(duration.Seconds())
}

// IncFailure increments the failure counter for the named method and code.
func (b *BridgeMetrics) IncFailure(method, code string) {
	if b == nil || b.failures == nil {
		return
	}
	b.failures.WithLabelValues(normalizeLabel(method), normalizeLabel(code)).Inc()
}

// IncUpdateForwarded increments the forwarded-update counter.
func (b *BridgeMetrics) IncUpdateForwarded() {
	if b == nil || b.events == nil {
		return
	}
	b.events.Inc()
}

// IncUpdateSkipped increments the skipped-update counter.
func (b *BridgeMetrics) IncUpdateSkipped() {
	if b == nil || b.skippedEvents == nil {
		return
	}
	b.skippedEvents.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

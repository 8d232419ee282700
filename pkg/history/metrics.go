package history

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "rewind"
	metricsSubsystem = "history"

	modeSync      = "sync"
	modeDebounced = "debounced"

	reasonInvalidPush = "invalid_push"
	reasonReset       = "reset"
	reasonFailed      = "failed"
)

// Metrics holds the Prometheus collectors a History reports to. A nil
// *Metrics records nothing.
type Metrics struct {
	pushes       *prometheus.CounterVec
	rejections   *prometheus.CounterVec
	evictions    prometheus.Counter
	poolEntries  prometheus.Gauge
	collisions   prometheus.Counter
	pushDuration prometheus.Histogram
}

// NewMetrics creates the history collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "pushes_total",
			Help:      "Committed pushes by mode.",
		}, []string{"mode"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "push_rejections_total",
			Help:      "Debounced pushes that were rejected, by reason.",
		}, []string{"reason"}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "evictions_total",
			Help:      "Entries dropped because the history exceeded its maximum length.",
		}),
		poolEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "chunk_pool_entries",
			Help:      "Chunks currently held in the pool.",
		}),
		collisions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "chunk_collisions_total",
			Help:      "Chunk writes that replaced a different payload under the same digest.",
		}),
		pushDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "push_duration_seconds",
			Help:      "Time spent decomposing and committing a push.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.pushes,
			m.rejections,
			m.evictions,
			m.poolEntries,
			m.collisions,
			m.pushDuration,
		)
	}

	return m
}

func (m *Metrics) recordPush(mode string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.pushes.WithLabelValues(mode).Inc()
	m.pushDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) recordRejection(reason string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.rejections.WithLabelValues(reason).Add(float64(n))
}

func (m *Metrics) recordEviction() {
	if m == nil {
		return
	}
	m.evictions.Inc()
}

func (m *Metrics) recordCollisions(n uint64) {
	if m == nil || n == 0 {
		return
	}
	m.collisions.Add(float64(n))
}

func (m *Metrics) setPoolEntries(n int) {
	if m == nil {
		return
	}
	m.poolEntries.Set(float64(n))
}

package history

import "github.com/prometheus/client_golang/prometheus"

// Collector accessors for tests.

func (m *Metrics) PushesCollector(mode string) prometheus.Counter {
	return m.pushes.WithLabelValues(mode)
}

func (m *Metrics) RejectionsCollector(reason string) prometheus.Counter {
	return m.rejections.WithLabelValues(reason)
}

func (m *Metrics) EvictionsCollector() prometheus.Counter {
	return m.evictions
}

func (m *Metrics) PoolEntriesCollector() prometheus.Gauge {
	return m.poolEntries
}

func (m *Metrics) CollisionsCollector() prometheus.Counter {
	return m.collisions
}

func (m *Metrics) PushDurationCollector() prometheus.Histogram {
	return m.pushDuration
}

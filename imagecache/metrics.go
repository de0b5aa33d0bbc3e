package imagecache

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts cache traffic. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Hits      prometheus.Counter
	Misses    prometheus.Counter
	Failures  prometheus.Counter
	Evictions prometheus.Counter
	Size      prometheus.Gauge
}

// NewMetrics creates the cache collectors and registers them with reg when
// it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "worldmap_image_cache_hits_total",
			Help: "Image requests served by an existing handle",
		}),
		Misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "worldmap_image_cache_misses_total",
			Help: "Image requests that started a download",
		}),
		Failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "worldmap_image_fetch_failures_total",
			Help: "Image downloads that were rejected",
		}),
		Evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "worldmap_image_cache_evictions_total",
			Help: "Entries removed by least-recently-requested trimming",
		}),
		Size: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "worldmap_image_cache_entries",
			Help: "Entries currently held by the image cache",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Hits, m.Misses, m.Failures, m.Evictions, m.Size)
	}
	return m
}

func (m *Metrics) hit() {
	if m != nil {
		m.Hits.Inc()
	}
}

func (m *Metrics) miss(size int) {
	if m != nil {
		m.Misses.Inc()
		m.Size.Set(float64(size))
	}
}

func (m *Metrics) failure() {
	if m != nil {
		m.Failures.Inc()
	}
}

func (m *Metrics) evicted(n int) {
	if m != nil {
		m.Evictions.Add(float64(n))
	}
}

package metrics

import (
	"runtime"
	"runtime/pprof"

	"github.com/prometheus/client_golang/prometheus"
)

// SystemCollector implements the prometheus.Collector interface to expose Go runtime metrics.
// Values are read on every scrape.
type SystemCollector struct {
	memStats   *prometheus.GaugeVec // Vector of gauges for various memory statistics
	gcStats    *prometheus.GaugeVec // Vector of gauges for garbage collection metrics
	goroutines prometheus.Gauge     // Single gauge for number of goroutines
	threads    prometheus.Gauge     // Single gauge for number of OS threads
}

// NewSystemCollector creates a collector and registers it with reg.
func NewSystemCollector(reg prometheus.Registerer) *SystemCollector {
	c := &SystemCollector{
		memStats: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "system",
			Name:      "memory_bytes",
			Help:      "Memory statistics in bytes.",
		}, []string{"type"}),
		gcStats: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "system",
			Name:      "gc_stats",
			Help:      "Garbage collector statistics.",
		}, []string{"type"}),
		goroutines: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "system",
			Name:      "goroutines",
			Help:      "Number of running goroutines.",
		}),
		threads: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "system",
			Name:      "threads",
			Help:      "Number of OS threads created.",
		}),
	}
	reg.MustRegister(c)
	return c
}

// Describe implements prometheus.Collector.
func (c *SystemCollector) Describe(ch chan<- *prometheus.Desc) {
	c.memStats.Describe(ch)
	c.gcStats.Describe(ch)
	ch <- c.goroutines.Desc()
	ch <- c.threads.Desc()
}

// Collect implements prometheus.Collector.
func (c *SystemCollector) Collect(ch chan<- prometheus.Metric) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	c.memStats.WithLabelValues("alloc").Set(float64(m.Alloc))
	c.memStats.WithLabelValues("sys").Set(float64(m.Sys))
	c.memStats.WithLabelValues("heap_inuse").Set(float64(m.HeapInuse))
	c.memStats.WithLabelValues("heap_idle").Set(float64(m.HeapIdle))

	c.gcStats.WithLabelValues("num_gc").Set(float64(m.NumGC))
	c.gcStats.WithLabelValues("pause_total_ns").Set(float64(m.PauseTotalNs))

	c.goroutines.Set(float64(runtime.NumGoroutine()))
	c.threads.Set(float64(pprof.Lookup("threadcreate").Count()))

	c.memStats.Collect(ch)
	c.gcStats.Collect(ch)
	c.goroutines.Collect(ch)
	c.threads.Collect(ch)
}

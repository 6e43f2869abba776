package profiler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the prometheus registration for command lifecycle timings and
// queue depth. NewMetrics registers it whether or not
// OPENCRUN_PROFILED_COUNTERS requests "time".
// Grounded on the "time" counter Profiler.Counter bit; there is no
// prometheus concept in the original runtime, this is the pack's idiomatic
// way (aistore registers its own custom collectors the same way) of
// exposing what DumpTrace otherwise only prints.
type Metrics struct {
	stageLatency *prometheus.HistogramVec
	queueDepth   prometheus.Gauge
}

// NewMetrics builds and registers the collectors against reg. Passing a
// fresh *prometheus.Registry (rather than the global default) keeps tests
// hermetic.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		stageLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "opencrun",
			Subsystem: "command",
			Name:      "stage_latency_seconds",
			Help:      "Time spent between consecutive command lifecycle stages.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"from", "to"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "opencrun",
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Number of commands currently queued or submitted.",
		}),
	}
	reg.MustRegister(m.stageLatency, m.queueDepth)
	return m
}

// ObserveStage records the latency between two consecutive trace samples.
func (m *Metrics) ObserveStage(from, to Label, d time.Duration) {
	m.stageLatency.WithLabelValues(from.String(), to.String()).Observe(d.Seconds())
}

// ObserveTrace feeds every consecutive pair of a completed trace into
// ObserveStage.
func (m *Metrics) ObserveTrace(tr *Trace) {
	samples := tr.Samples()
	for i := 1; i < len(samples); i++ {
		m.ObserveStage(samples[i-1].Label, samples[i].Label, samples[i].Time.Sub(samples[i-1].Time))
	}
}

// SetQueueDepth updates the live queue-depth gauge.
func (m *Metrics) SetQueueDepth(n int) {
	m.queueDepth.Set(float64(n))
}

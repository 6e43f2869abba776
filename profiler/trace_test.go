package profiler

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledTraceRecordsNothing(t *testing.T) {
	tr := NewTrace(false)
	tr.Record(CommandEnqueued, -1)
	assert.Empty(t, tr.Samples())
}

func TestTraceSortsByLabelRegardlessOfRecordOrder(t *testing.T) {
	tr := NewTrace(true)
	tr.Record(CommandCompleted, -1)
	tr.Record(CommandEnqueued, -1)
	tr.Record(CommandRunning, -1)
	tr.Record(CommandSubmitted, -1)

	samples := tr.Samples()
	require.Len(t, samples, 4)
	assert.Equal(t, []Label{CommandEnqueued, CommandSubmitted, CommandRunning, CommandCompleted},
		[]Label{samples[0].Label, samples[1].Label, samples[2].Label, samples[3].Label})
}

func TestDumpRendersAllSamples(t *testing.T) {
	tr := NewTrace(true)
	tr.Record(CommandEnqueued, -1)
	tr.Record(CommandRunning, 2)

	out := tr.Dump("ndrange_kernel")
	assert.Contains(t, out, "ndrange_kernel")
	assert.Contains(t, out, "enqueued")
	assert.Contains(t, out, "running")
}

func TestMetricsObserveTrace(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	tr := NewTrace(true)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	restore := now
	defer func() { now = restore }()

	now = func() time.Time { return base }
	tr.Record(CommandEnqueued, -1)
	now = func() time.Time { return base.Add(10 * time.Millisecond) }
	tr.Record(CommandSubmitted, -1)
	now = func() time.Time { return base.Add(50 * time.Millisecond) }
	tr.Record(CommandRunning, -1)

	m.ObserveTrace(tr)
	m.SetQueueDepth(3)

	metricFamilies, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, metricFamilies)
}

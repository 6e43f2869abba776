// Package profiler records the per-command timestamp trace described in
// spec §7: four labelled samples (Enqueued/Submitted/Running/Completed) per
// command, a plain-text dump, and prometheus histograms for anyone scraping
// the runtime instead of reading its logs.
package profiler

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/opencrun-go/opencrun/util"
)

// Label identifies the queue-state transition a Sample was taken at,
// mirroring ProfileSample::Label.
type Label int

const (
	CommandEnqueued Label = iota
	CommandSubmitted
	CommandRunning
	CommandCompleted
)

func (l Label) String() string {
	switch l {
	case CommandEnqueued:
		return "enqueued"
	case CommandSubmitted:
		return "submitted"
	case CommandRunning:
		return "running"
	case CommandCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Sample is one timestamped trace point. SubID distinguishes split
// NDRangeKernel commands that were broken into several device-side
// sub-commands (spec §4.E), -1 when there is no split.
type Sample struct {
	Label Label
	SubID int
	Time  time.Time
}

// Trace accumulates a command's samples in label order, regardless of the
// order Record is called in — mirrors ProfileTrace's insert-sorted-by-label
// container. Safe for concurrent use.
type Trace struct {
	mu      sync.Mutex
	enabled bool
	samples []Sample
}

// NewTrace returns a Trace. If enabled is false, Record is a no-op — this
// is the "fast path for non-profiled runs" the original keeps via its
// Counters bitmask.
func NewTrace(enabled bool) *Trace {
	return &Trace{enabled: enabled}
}

// Enabled reports whether this trace records samples.
func (t *Trace) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// Record appends a sample, keeping the trace sorted by label. A disabled
// trace silently discards the sample.
func (t *Trace) Record(label Label, subID int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.samples = append(t.samples, Sample{Label: label, SubID: subID, Time: now()})
	sort.SliceStable(t.samples, func(i, j int) bool {
		return t.samples[i].Label < t.samples[j].Label
	})
}

// Samples returns a copy of the recorded samples in label order.
func (t *Trace) Samples() []Sample {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Sample, len(t.samples))
	copy(out, t.samples)
	return out
}

// now is a seam so tests can't depend on wall-clock granularity mattering;
// production always calls time.Now.
var now = time.Now

// Dump renders the trace as a util.Table, one row per sample, the same
// shape as Profiler::DumpTrace's stdout output.
func (t *Trace) Dump(commandName string) string {
	tbl := util.NewTable("command", "label", "sub", "time")
	for _, s := range t.Samples() {
		sub := "-"
		if s.SubID >= 0 {
			sub = fmt.Sprintf("%d", s.SubID)
		}
		tbl.AddRow(commandName, s.Label.String(), sub, s.Time.Format(time.RFC3339Nano))
	}
	return tbl.String()
}

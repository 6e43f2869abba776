package event_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencrun-go/opencrun/event"
)

type fakeQueue struct {
	mu   sync.Mutex
	done []*event.Event
}

func (q *fakeQueue) CommandDone(e *event.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.done = append(q.done, e)
}

func TestEventStartsQueued(t *testing.T) {
	e := event.New(nil, "read_buffer", false)
	assert.Equal(t, event.Queued, e.Status())
	assert.False(t, e.HasCompleted())
}

func TestEventLifecycleAdvances(t *testing.T) {
	q := &fakeQueue{}
	e := event.New(q, "ndrange_kernel", false)

	e.MarkSubmitted()
	assert.Equal(t, event.Submitted, e.Status())

	e.MarkRunning()
	assert.Equal(t, event.Running, e.Status())

	e.MarkCompleted(event.Complete)
	assert.Equal(t, event.Complete, e.Status())
	assert.True(t, e.HasCompleted())

	require.Len(t, q.done, 1)
	assert.Same(t, e, q.done[0])
}

func TestDelayedSignalIsDropped(t *testing.T) {
	e := event.New(nil, "write_buffer", false)

	e.MarkRunning()
	require.Equal(t, event.Running, e.Status())

	// A stale "submitted" signal arriving after "running" must not regress
	// the status — this is the strict-advance rule.
	e.MarkSubmitted()
	assert.Equal(t, event.Running, e.Status())
}

func TestMarkCompletedRejectsInvalidStatus(t *testing.T) {
	e := event.New(nil, "write_buffer", false)
	e.MarkCompleted(event.Status(5))
	assert.Equal(t, event.Queued, e.Status())
}

func TestWaitBlocksUntilTerminal(t *testing.T) {
	e := event.New(nil, "copy_buffer", false)

	done := make(chan event.Status, 1)
	go func() {
		done <- e.Wait()
	}()

	time.Sleep(10 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("Wait returned before completion")
	default:
	}

	e.MarkCompleted(event.Complete)

	select {
	case status := <-done:
		assert.Equal(t, event.Complete, status)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after completion")
	}
}

func TestErrorStatusIsTerminal(t *testing.T) {
	q := &fakeQueue{}
	e := event.New(q, "write_buffer", false)
	e.MarkCompleted(event.Status(-1))
	assert.True(t, e.Status().IsError())
	assert.True(t, e.HasCompleted())
	assert.Len(t, q.done, 1)
}

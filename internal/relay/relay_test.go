package relay

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/ferry/core"
)

func TestLoop_DrainRunsTasksInOrder(t *testing.T) {
	t.Parallel()

	l := NewLoop()
	var got []int
	for i := range 5 {
		l.Post(func() { got = append(got, i) })
	}
	assert.Equal(t, 5, l.Len())

	n := l.Drain()
	assert.Equal(t, 5, n)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
	assert.Zero(t, l.Len())
	assert.Zero(t, l.Drain())
}

func TestLoop_TasksPostedWhileDrainingRunNextTime(t *testing.T) {
	t.Parallel()

	l := NewLoop()
	var got []string
	l.Post(func() {
		got = append(got, "first")
		l.Post(func() { got = append(got, "second") })
	})

	require.Equal(t, 1, l.Drain())
	assert.Equal(t, []string{"first"}, got)
	require.Equal(t, 1, l.Drain())
	assert.Equal(t, []string{"first", "second"}, got)
}

func TestLoop_PostNilIsIgnored(t *testing.T) {
	t.Parallel()

	l := NewLoop()
	l.Post(nil)
	assert.Zero(t, l.Len())
}

func TestLoop_RunDrainsUntilCanceled(t *testing.T) {
	t.Parallel()

	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	ran := make(chan struct{})
	l.Post(func() { close(ran) })

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("task was not run")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestQueue_DeliversInOrderOnOwner(t *testing.T) {
	t.Parallel()

	l := NewLoop()
	var got []core.EventType
	q := NewQueue(l, func(ev core.Event) { got = append(got, ev.Type) })

	q.Post(core.Event{Type: core.EventStarted})
	q.Post(core.Event{Type: core.EventProgress})
	q.Post(core.Event{Type: core.EventProgress})

	// One drain task is scheduled for the whole burst.
	assert.Equal(t, 1, l.Len())
	assert.Empty(t, got)

	l.Drain()
	assert.Equal(t, []core.EventType{core.EventStarted, core.EventProgress, core.EventProgress}, got)

	q.Post(core.Event{Type: core.EventCompleted})
	assert.Equal(t, 1, l.Len())
	l.Drain()
	assert.Equal(t, core.EventCompleted, got[len(got)-1])
}

// drainRecovering drains l and returns the recovered panic value.
func drainRecovering(l *Loop) (v any) {
	defer func() { v = recover() }()
	l.Drain()
	return nil
}

func TestLoop_PanickingTaskKeepsLaterTasks(t *testing.T) {
	t.Parallel()

	l := NewLoop()
	var got []int
	l.Post(func() { got = append(got, 1) })
	l.Post(func() { panic("callback failed") })
	l.Post(func() { got = append(got, 3) })

	assert.Equal(t, "callback failed", drainRecovering(l))
	assert.Equal(t, []int{1}, got)
	assert.Equal(t, 1, l.Len())

	assert.Equal(t, 1, l.Drain())
	assert.Equal(t, []int{1, 3}, got)
}

func TestQueue_RecoveredCallbackPanicKeepsDelivering(t *testing.T) {
	t.Parallel()

	l := NewLoop()
	var got []core.EventType
	q := NewQueue(l, func(ev core.Event) {
		got = append(got, ev.Type)
		if ev.Type == core.EventStarted {
			panic("callback failed")
		}
	})

	q.Post(core.Event{Type: core.EventStarted})
	q.Post(core.Event{Type: core.EventProgress})
	q.Post(core.Event{Type: core.EventCompleted})

	require.NotNil(t, drainRecovering(l))
	assert.Equal(t, []core.EventType{core.EventStarted}, got)
	assert.Equal(t, 1, l.Len(), "the rest of the queue is rescheduled")

	l.Drain()
	assert.Equal(t, []core.EventType{core.EventStarted, core.EventProgress, core.EventCompleted}, got)
	assert.Zero(t, q.Pending())

	// Later posts are scheduled again once the terminal event is delivered.
	q.Post(core.Event{Type: core.EventProgress})
	assert.Zero(t, l.Len())
}

func TestQueue_DropsEventsAfterTerminal(t *testing.T) {
	t.Parallel()

	l := NewLoop()
	var got []core.EventType
	q := NewQueue(l, func(ev core.Event) { got = append(got, ev.Type) })

	q.Post(core.Event{Type: core.EventStarted})
	q.Post(core.Event{Type: core.EventFailed})
	q.Post(core.Event{Type: core.EventCompleted})
	l.Drain()

	assert.Equal(t, []core.EventType{core.EventStarted, core.EventFailed}, got)

	q.Post(core.Event{Type: core.EventProgress})
	assert.Zero(t, l.Len())
	assert.Zero(t, q.Pending())
}

func TestQueue_ConcurrentProducersKeepPerTransferOrder(t *testing.T) {
	t.Parallel()

	const (
		transfers = 8
		samples   = 200
	)

	l := NewLoop()
	got := make([][]int64, transfers)
	queues := make([]*Queue, transfers)
	for i := range transfers {
		queues[i] = NewQueue(l, func(ev core.Event) {
			got[i] = append(got[i], ev.Progress.TransferredBytes)
		})
	}

	var wg sync.WaitGroup
	for i := range transfers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range samples {
				queues[i].Post(core.Event{
					Type:     core.EventProgress,
					Progress: core.ProgressSample{TransferredBytes: int64(n)},
				})
			}
		}()
	}

	// Drain concurrently with the producers, as an owner loop would.
	stop := make(chan struct{})
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for {
			select {
			case <-stop:
				l.Drain()
				return
			case <-l.Wake():
				l.Drain()
			}
		}
	}()

	wg.Wait()
	close(stop)
	<-drained

	for i := range transfers {
		require.Len(t, got[i], samples, fmt.Sprintf("transfer %d", i))
		for n := range samples {
			assert.Equal(t, int64(n), got[i][n])
		}
	}
}

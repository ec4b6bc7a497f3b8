package relay

import (
	"sync"

	"github.com/meigma/ferry/core"
	"github.com/meigma/ferry/internal/contracts"
)

// Compile-time interface implementation check.
var _ contracts.EventSink = (*Queue)(nil)

// DeliverFunc handles one event on the owner goroutine.
type DeliverFunc func(ev core.Event)

// Queue is the event FIFO of a single transfer.
//
// Workers call Post; the queue schedules at most one pending drain task on
// the owner scheduler at a time. The drain runs on the owner goroutine and
// delivers every queued event in the order it was posted.
type Queue struct {
	owner   core.Scheduler
	deliver DeliverFunc

	mu        sync.Mutex
	events    []core.Event
	scheduled bool
	closed    bool
}

// NewQueue creates a queue that delivers through deliver on owner.
func NewQueue(owner core.Scheduler, deliver DeliverFunc) *Queue {
	return &Queue{
		owner:   owner,
		deliver: deliver,
	}
}

// Post appends ev and schedules a drain if none is pending.
// Events posted after a terminal event has been delivered are dropped.
func (q *Queue) Post(ev core.Event) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.events = append(q.events, ev)
	schedule := !q.scheduled
	q.scheduled = true
	q.mu.Unlock()

	if schedule {
		q.owner.Post(q.drain)
	}
}

// Pending returns the number of undelivered events.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// drain runs on the owner goroutine. If deliver panics, the remaining
// events are rescheduled before the panic propagates, so an owner that
// recovers keeps receiving them.
func (q *Queue) drain() {
	finished := false
	defer func() {
		if finished {
			return
		}
		q.mu.Lock()
		reschedule := len(q.events) > 0 && !q.closed
		q.scheduled = reschedule
		q.mu.Unlock()
		if reschedule {
			q.owner.Post(q.drain)
		}
	}()

	for {
		q.mu.Lock()
		if len(q.events) == 0 || q.closed {
			q.scheduled = false
			q.mu.Unlock()
			finished = true
			return
		}
		ev := q.events[0]
		q.events[0] = core.Event{}
		q.events = q.events[1:]
		if ev.Type.IsTerminal() {
			q.closed = true
			q.events = nil
		}
		q.mu.Unlock()

		q.deliver(ev)
	}
}

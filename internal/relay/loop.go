// Package relay moves transfer events from worker goroutines onto the
// owner goroutine.
//
// A Loop is the owner's task queue. A Queue is the per-transfer FIFO that
// worker goroutines append to; it schedules its own drain on the Loop (or any
// other core.Scheduler) so events of one transfer are delivered in order and
// never concurrently.
package relay

import (
	"context"
	"sync"

	"github.com/meigma/ferry/core"
)

// Compile-time interface implementation check.
var _ core.Scheduler = (*Loop)(nil)

// Loop is a FIFO task queue drained by a single owner goroutine.
//
// Post may be called from any goroutine. Drain and Run must only be called
// from the owner goroutine.
type Loop struct {
	mu    sync.Mutex
	tasks []func()
	wake  chan struct{}
}

// NewLoop creates an empty loop.
func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post appends a task. It never blocks on the owner.
func (l *Loop) Post(task func()) {
	if task == nil {
		return
	}
	l.mu.Lock()
	l.tasks = append(l.tasks, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Wake returns a channel that receives a value after Post. Owners that run
// their own select loop can wait on it and call Drain.
func (l *Loop) Wake() <-chan struct{} {
	return l.wake
}

// Len returns the number of pending tasks.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}

// Drain runs every task that is pending when it is called, in order, on the
// calling goroutine. Tasks posted while draining run on the next call.
// Returns the number of tasks run.
//
// A panicking task propagates to the caller; the tasks after it are put back
// at the front of the queue.
func (l *Loop) Drain() int {
	l.mu.Lock()
	tasks := l.tasks
	l.tasks = nil
	l.mu.Unlock()

	ran := 0
	defer func() {
		if ran >= len(tasks) {
			return
		}
		rest := tasks[ran+1:]
		if len(rest) == 0 {
			return
		}
		l.mu.Lock()
		l.tasks = append(append([]func(){}, rest...), l.tasks...)
		l.mu.Unlock()
		select {
		case l.wake <- struct{}{}:
		default:
		}
	}()

	for _, task := range tasks {
		task()
		ran++
	}
	return ran
}

// Run drains the loop whenever tasks are posted until ctx is done.
// Tasks still pending when ctx is done are left in the queue.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
			l.Drain()
		}
	}
}

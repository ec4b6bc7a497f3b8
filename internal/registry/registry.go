// Package registry tracks live transfers from dispatch to disposal.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/meigma/ferry/core"
)

// State is the lifecycle state of a transfer.
type State uint8

const (
	// StateCreated is the state of a registered transfer whose worker has
	// not started.
	StateCreated State = iota
	// StateRunning means the worker goroutine is performing the transfer.
	StateRunning
	// StateCompleted means the transfer succeeded.
	StateCompleted
	// StateFailed means the transfer failed.
	StateFailed
	// StateDisposed means the terminal callback returned and the entry
	// was released.
	StateDisposed
)

// String returns the name of the state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Entry is the registry record of one transfer. It owns the request copy
// for the transfer's lifetime.
type Entry struct {
	id     uint64
	cancel context.CancelFunc
	done   chan struct{}
	exit   sync.Once

	mu    sync.Mutex
	state State
	req   *core.Request

	disposed atomic.Bool
}

// ID returns the transfer ID.
func (e *Entry) ID() uint64 { return e.id }

// Request returns the owned request copy, or nil after disposal.
func (e *Entry) Request() *core.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.req
}

// State returns the current lifecycle state.
func (e *Entry) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Done is closed once the worker goroutine has exited.
func (e *Entry) Done() <-chan struct{} { return e.done }

// Cancel asks the worker to stop. It has no effect once the worker is done.
func (e *Entry) Cancel() {
	if e.cancel != nil {
		e.cancel()
	}
}

// Start moves the entry from Created to Running.
func (e *Entry) Start() error {
	return e.transition(StateRunning, StateCreated)
}

// Finish records the terminal event type, moving from Running to Completed
// or Failed.
func (e *Entry) Finish(t core.EventType) error {
	switch t {
	case core.EventCompleted:
		return e.transition(StateCompleted, StateRunning)
	case core.EventFailed:
		return e.transition(StateFailed, StateRunning)
	default:
		return fmt.Errorf("%w: %s is not a terminal event", core.ErrInvalidTransition, t)
	}
}

// Exited marks the worker goroutine as finished. Safe to call more than once.
func (e *Entry) Exited() {
	e.exit.Do(func() {
		close(e.done)
		if e.cancel != nil {
			e.cancel()
		}
	})
}

func (e *Entry) transition(to State, from ...State) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range from {
		if e.state == s {
			e.state = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", core.ErrInvalidTransition, e.state, to)
}

// Registry tracks every transfer of a client that has not been disposed.
type Registry struct {
	logger *slog.Logger

	mu      sync.Mutex
	nextID  uint64
	entries map[uint64]*Entry
	idle    chan struct{}

	spawned atomic.Uint64
}

// New creates an empty registry.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	idle := make(chan struct{})
	close(idle)
	return &Registry{
		logger:  logger,
		entries: make(map[uint64]*Entry),
		idle:    idle,
	}
}

// Add registers req in the Created state. The registry takes ownership of
// req; callers must pass a copy they no longer mutate. cancel, if not nil,
// is called by Entry.Cancel and when the worker exits.
func (r *Registry) Add(req *core.Request, cancel context.CancelFunc) *Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	e := &Entry{
		id:     r.nextID,
		cancel: cancel,
		done:   make(chan struct{}),
		state:  StateCreated,
		req:    req,
	}
	if len(r.entries) == 0 {
		r.idle = make(chan struct{})
	}
	r.entries[e.id] = e

	r.logger.Debug("transfer registered", "id", e.id, "kind", req.Kind, "url", req.URL)
	return e
}

// Spawned records that a worker goroutine was started.
func (r *Registry) Spawned() {
	r.spawned.Add(1)
}

// Get returns the live entry with the given ID.
func (r *Registry) Get(id uint64) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	return e, ok
}

// Release disposes a finished entry and drops the request copy. The caller's
// UserData is not touched. Only the first call for an entry has any effect;
// later calls return nil.
func (r *Registry) Release(e *Entry) error {
	e.mu.Lock()
	if e.state != StateCompleted && e.state != StateFailed && e.state != StateDisposed {
		state := e.state
		e.mu.Unlock()
		return fmt.Errorf("%w: release of %s transfer", core.ErrInvalidTransition, state)
	}
	e.mu.Unlock()

	if !e.disposed.CompareAndSwap(false, true) {
		return nil
	}

	e.mu.Lock()
	e.state = StateDisposed
	e.req = nil
	e.mu.Unlock()

	r.mu.Lock()
	delete(r.entries, e.id)
	if len(r.entries) == 0 {
		close(r.idle)
	}
	r.mu.Unlock()

	r.logger.Debug("transfer released", "id", e.id)
	return nil
}

// Live returns the number of transfers not yet disposed.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Stats returns the spawn and live counters.
func (r *Registry) Stats() core.Stats {
	return core.Stats{
		Spawned: r.spawned.Load(),
		Live:    r.Live(),
	}
}

// Idle returns a channel that is closed when no transfer is live.
// The channel is replaced by the next Add, so callers must fetch it again
// after starting new transfers.
func (r *Registry) Idle() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.idle
}

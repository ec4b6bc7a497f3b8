package ferry

import (
	"github.com/meigma/ferry/core"
	"github.com/meigma/ferry/internal/registry"
)

// State is the lifecycle state of a transfer.
type State = registry.State

// Transfer lifecycle states.
const (
	StateCreated   = registry.StateCreated
	StateRunning   = registry.StateRunning
	StateCompleted = registry.StateCompleted
	StateFailed    = registry.StateFailed
	StateDisposed  = registry.StateDisposed
)

// Transfer is a handle to a started transfer. It stays valid after the
// transfer is disposed.
type Transfer struct {
	entry     *registry.Entry
	kind      core.Kind
	url       string
	localPath string
}

func newTransfer(entry *registry.Entry, req *core.Request) *Transfer {
	return &Transfer{
		entry:     entry,
		kind:      req.Kind,
		url:       req.URL,
		localPath: req.LocalPath,
	}
}

// ID returns the transfer's identifier, unique within its client.
func (t *Transfer) ID() uint64 { return t.entry.ID() }

// Kind returns the direction of the transfer.
func (t *Transfer) Kind() Kind { return t.kind }

// URL returns the remote side of the transfer.
func (t *Transfer) URL() string { return t.url }

// LocalPath returns the save path of a download or the read path of an upload.
func (t *Transfer) LocalPath() string { return t.localPath }

// State returns the current lifecycle state.
func (t *Transfer) State() State { return t.entry.State() }

// Done is closed when the transfer's goroutine has exited. The terminal
// callback may still be pending on the owner goroutine at that point.
func (t *Transfer) Done() <-chan struct{} { return t.entry.Done() }

// Cancel asks the transfer to stop. A running transfer still ends with
// exactly one OnFailed callback carrying ErrCanceled. Cancel after the
// transfer finished has no effect.
func (t *Transfer) Cancel() { t.entry.Cancel() }

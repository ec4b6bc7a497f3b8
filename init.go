package ferry

import "github.com/meigma/ferry/internal/transport"

// Init acquires the process-wide engine state. The first call builds the
// HTTP transport shared by every client's default engine; later calls only
// increment a reference count. Init is safe for concurrent use.
func Init() {
	transport.Default.Acquire()
}

// Cleanup releases one reference taken by Init. The call that drops the
// count to zero closes idle connections and tears the shared state down.
// Calls beyond the number of Init calls are no-ops.
//
// No transfer of a default-engine client may be outstanding when the last
// reference is released; such transfers may fail with ErrNotInitialized.
func Cleanup() {
	transport.Default.Release()
}

// Initialized reports whether the process-wide engine state is live.
func Initialized() bool {
	return transport.Default.Ready()
}

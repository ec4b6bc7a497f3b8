package transport

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/meigma/ferry/core"
)

// State is the process-wide engine state shared by all transfers: one HTTP
// transport whose connections every engine reuses.
//
// It is reference counted. The first Acquire builds the transport; the
// Release that brings the count back to zero closes idle connections and
// drops it. Extra Releases are no-ops.
type State struct {
	mu        sync.Mutex
	refs      int
	transport *http.Transport
	inits     int
	teardowns int
}

// Default is the state behind ferry.Init and ferry.Cleanup.
var Default = &State{}

// Acquire increments the reference count, initializing on the first call.
func (s *State) Acquire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refs == 0 {
		s.transport = newHTTPTransport()
		s.inits++
	}
	s.refs++
}

// Release decrements the reference count, tearing down on the last call.
// Transfers must not be in flight when the count reaches zero.
func (s *State) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refs == 0 {
		return
	}
	s.refs--
	if s.refs == 0 {
		s.transport.CloseIdleConnections()
		s.transport = nil
		s.teardowns++
	}
}

// Ready reports whether the state is initialized.
func (s *State) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs > 0
}

// Refs returns the current reference count.
func (s *State) Refs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs
}

// Cycles returns how many times the state was initialized and torn down.
func (s *State) Cycles() (inits, teardowns int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inits, s.teardowns
}

// HTTPClient returns a client over the shared transport.
// Returns ErrNotInitialized when the state is not acquired.
func (s *State) HTTPClient() (*http.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refs == 0 {
		return nil, core.ErrNotInitialized
	}
	return &http.Client{Transport: s.transport}, nil
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

package core

import (
	"context"
	"io"
)

// ProgressFunc receives cumulative progress from a transfer engine.
// Engines call it at their own cadence from the worker goroutine; it must
// not block.
type ProgressFunc func(transferredBytes, totalBytes int64)

// Engine performs one blocking transfer against a remote endpoint.
//
// Implementations must be safe for concurrent use: every transfer calls the
// engine from its own worker goroutine.
type Engine interface {
	// Get fetches url and writes the body to dst.
	Get(ctx context.Context, url string, dst io.Writer, progress ProgressFunc) error

	// Put sends size bytes read from src to url.
	// creds is nil when the caller supplied no credentials.
	Put(ctx context.Context, url string, src io.Reader, size int64, creds *Credentials, progress ProgressFunc) error
}

// Scheduler runs tasks on the owner goroutine.
//
// Post may be called from any goroutine and must not block on the owner.
// Tasks must run one at a time, in the order they were posted.
type Scheduler interface {
	Post(task func())
}

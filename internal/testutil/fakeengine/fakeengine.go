// Package fakeengine provides a scripted transfer engine for tests.
// It performs no network I/O: downloads write generated bytes and uploads
// read and record the local file.
package fakeengine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/meigma/ferry/core"
)

// Compile-time interface implementation check.
var _ core.Engine = (*Engine)(nil)

// Call records one engine invocation.
type Call struct {
	Method      string
	URL         string
	Credentials *core.Credentials
	Body        []byte
}

// Option configures an Engine.
type Option func(*Engine)

// Engine is a scripted core.Engine.
type Engine struct {
	total    int64
	chunks   []int64
	err      error
	panicVal any
	gate     <-chan struct{}
	user     string
	pass     string

	mu    sync.Mutex
	calls []Call
}

// New creates an Engine. Without options every transfer succeeds immediately
// with no progress reports.
func New(opts ...Option) *Engine {
	e := &Engine{total: core.UnknownSize}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithChunks scripts downloads to write the given chunk sizes, reporting
// cumulative progress against total after each one. Uploads report progress
// at the same chunk boundaries.
func WithChunks(total int64, chunks ...int64) Option {
	return func(e *Engine) {
		e.total = total
		e.chunks = chunks
	}
}

// WithError makes every transfer fail with err after its chunks.
func WithError(err error) Option {
	return func(e *Engine) {
		e.err = err
	}
}

// WithPanic makes every transfer panic with v before doing any work.
func WithPanic(v any) Option {
	return func(e *Engine) {
		e.panicVal = v
	}
}

// WithGate blocks every transfer until gate is closed or the context ends.
func WithGate(gate <-chan struct{}) Option {
	return func(e *Engine) {
		e.gate = gate
	}
}

// WithCredentials makes uploads fail as unauthorized unless they carry
// exactly these credentials.
func WithCredentials(username, password string) Option {
	return func(e *Engine) {
		e.user = username
		e.pass = password
	}
}

// Calls returns the recorded invocations.
func (e *Engine) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Call(nil), e.calls...)
}

// Get writes the scripted chunks to dst.
func (e *Engine) Get(ctx context.Context, url string, dst io.Writer, progress core.ProgressFunc) error {
	e.record(Call{Method: "GET", URL: url})
	if err := e.begin(ctx); err != nil {
		return err
	}

	var done int64
	for _, n := range e.chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := dst.Write(bytes.Repeat([]byte{'x'}, int(n))); err != nil {
			return err
		}
		done += n
		if progress != nil {
			progress(done, e.total)
		}
	}
	return e.err
}

// Put reads src to the end, reporting progress at the scripted chunk
// boundaries, and records the body.
func (e *Engine) Put(ctx context.Context, url string, src io.Reader, size int64, creds *core.Credentials, progress core.ProgressFunc) error {
	if err := e.begin(ctx); err != nil {
		e.record(Call{Method: "PUT", URL: url, Credentials: creds})
		return err
	}
	if e.user != "" && (creds == nil || creds.Username != e.user || creds.Password != e.pass) {
		e.record(Call{Method: "PUT", URL: url, Credentials: creds})
		return fmt.Errorf("%w: %w: bad credentials for %s", core.ErrTransport, core.ErrUnauthorized, url)
	}

	var body bytes.Buffer
	chunks := e.chunks
	if len(chunks) == 0 {
		chunks = []int64{size}
	}
	for _, n := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := io.CopyN(&body, src, n); err != nil && err != io.EOF {
			return err
		}
		if progress != nil {
			progress(int64(body.Len()), size)
		}
	}
	if _, err := io.Copy(&body, src); err != nil {
		return err
	}

	e.record(Call{Method: "PUT", URL: url, Credentials: creds, Body: body.Bytes()})
	return e.err
}

func (e *Engine) begin(ctx context.Context) error {
	if e.panicVal != nil {
		panic(e.panicVal)
	}
	if e.gate != nil {
		select {
		case <-e.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return ctx.Err()
}

func (e *Engine) record(c Call) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, c)
}

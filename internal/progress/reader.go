// Package progress provides utilities for tracking I/O progress.
package progress

import (
	"context"
	"io"
)

// Callback is called to report progress during I/O operations.
type Callback func(bytesTransferred, totalBytes int64)

// Reader wraps an io.Reader to track bytes read and report progress.
type Reader struct {
	reader  io.Reader
	ctx     context.Context
	sampler *Sampler
}

// NewReader creates a progress-tracking reader.
// The total parameter should be the expected size (-1 if unknown).
// The callback is called after reads with cumulative bytes and total,
// at most once per step bytes (every read when step <= 0). EOF always
// reports the final count.
func NewReader(r io.Reader, total, step int64, callback Callback) *Reader {
	return &Reader{
		reader:  r,
		sampler: NewSampler(total, step, callback),
	}
}

// WithContext makes Read fail with the context error once ctx is done.
func (r *Reader) WithContext(ctx context.Context) *Reader {
	r.ctx = ctx
	return r
}

// Read implements io.Reader and reports progress after each read.
func (r *Reader) Read(p []byte) (n int, err error) {
	if r.ctx != nil {
		if ctxErr := r.ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
	}
	n, err = r.reader.Read(p)
	if n > 0 {
		r.sampler.Add(int64(n))
	}
	if err == io.EOF {
		r.sampler.Flush()
	}
	return n, err
}

// Transferred returns the cumulative number of bytes read.
func (r *Reader) Transferred() int64 {
	return r.sampler.Transferred()
}

// Close closes the underlying reader if it implements io.Closer.
func (r *Reader) Close() error {
	if closer, ok := r.reader.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

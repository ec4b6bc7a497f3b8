package progress

import (
	"context"
	"io"
)

// Writer wraps an io.Writer to track bytes written and report progress.
// Call Flush once the stream is complete to report the final count.
type Writer struct {
	writer  io.Writer
	ctx     context.Context
	sampler *Sampler
}

// NewWriter creates a progress-tracking writer. See NewReader for the
// meaning of total and step.
func NewWriter(w io.Writer, total, step int64, callback Callback) *Writer {
	return &Writer{
		writer:  w,
		sampler: NewSampler(total, step, callback),
	}
}

// WithContext makes Write fail with the context error once ctx is done.
func (w *Writer) WithContext(ctx context.Context) *Writer {
	w.ctx = ctx
	return w
}

// Write implements io.Writer and reports progress after each write.
func (w *Writer) Write(p []byte) (int, error) {
	if w.ctx != nil {
		if err := w.ctx.Err(); err != nil {
			return 0, err
		}
	}
	n, err := w.writer.Write(p)
	if n > 0 {
		w.sampler.Add(int64(n))
	}
	return n, err
}

// Flush reports the final count if it has not been reported yet.
func (w *Writer) Flush() {
	w.sampler.Flush()
}

// Transferred returns the cumulative number of bytes written.
func (w *Writer) Transferred() int64 {
	return w.sampler.Transferred()
}

// Package worker runs a single transfer against a transfer engine and turns
// its outcome into transfer events.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/meigma/ferry/core"
	"github.com/meigma/ferry/internal/contracts"
)

// Worker adapts a contracts.Engine to the transfer event protocol.
type Worker struct {
	engine contracts.Engine
	logger *slog.Logger
}

// New creates a Worker over engine.
func New(engine contracts.Engine, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Worker{engine: engine, logger: logger}
}

// Run performs req and reports its events to sink: Started, then one
// Progress per engine report, then exactly one Completed or Failed.
// It returns the error carried by Failed, or nil.
//
// Run blocks for the duration of the transfer and is meant to be the body
// of the transfer's goroutine. Engine panics are recovered and reported as
// failures.
func (w *Worker) Run(ctx context.Context, id uint64, req *core.Request, sink contracts.EventSink) (err error) {
	sink.Post(req.Event(id, core.EventStarted))
	w.logger.Debug("transfer started", "id", id, "kind", req.Kind, "url", req.URL, "path", req.LocalPath)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: engine panic: %v", core.ErrTransport, r)
		}
		err = classify(ctx, err)

		ev := req.Event(id, core.EventCompleted)
		if err != nil {
			ev.Type = core.EventFailed
			ev.Err = err
			w.logger.Debug("transfer failed", "id", id, "error", err)
		} else {
			w.logger.Debug("transfer completed", "id", id)
		}
		sink.Post(ev)
	}()

	report := func(transferred, total int64) {
		ev := req.Event(id, core.EventProgress)
		ev.Progress = core.ProgressSample{TotalBytes: total, TransferredBytes: transferred}
		sink.Post(ev)
	}

	switch req.Kind {
	case core.KindDownload:
		return w.download(ctx, req, report)
	case core.KindUpload:
		return w.upload(ctx, req, report)
	default:
		return fmt.Errorf("%w: unknown transfer kind %d", core.ErrInvalidArgument, req.Kind)
	}
}

// download streams into the save path. The file is created on the first
// write, so a transfer that fails before any byte arrives leaves an existing
// file untouched. A partial file is left in place on later failures.
func (w *Worker) download(ctx context.Context, req *core.Request, report core.ProgressFunc) (err error) {
	if _, err := os.Stat(filepath.Dir(req.LocalPath)); err != nil {
		return localIO("create", err)
	}

	dst := &localWriter{path: req.LocalPath}
	defer func() {
		if cerr := dst.Close(); cerr != nil && err == nil {
			err = localIO("close", cerr)
		}
	}()

	if err := w.engine.Get(ctx, req.URL, dst, report); err != nil {
		return err
	}
	// Empty bodies still produce a file.
	return dst.open()
}

func (w *Worker) upload(ctx context.Context, req *core.Request, report core.ProgressFunc) error {
	f, err := os.Open(req.LocalPath)
	if err != nil {
		return localIO("open", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return localIO("stat", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", core.ErrLocalIO, req.LocalPath)
	}

	return w.engine.Put(ctx, req.URL, &localReader{f: f}, info.Size(), req.Credentials, report)
}

// classify normalizes a transfer error under the core sentinels.
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, core.ErrCanceled) {
		return err
	}
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", core.ErrCanceled, err)
	}
	switch {
	case errors.Is(err, core.ErrLocalIO),
		errors.Is(err, core.ErrTransport),
		errors.Is(err, core.ErrInvalidArgument),
		errors.Is(err, core.ErrNotInitialized):
		return err
	}
	return fmt.Errorf("%w: %w", core.ErrTransport, err)
}

func localIO(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", core.ErrLocalIO, op, err)
}

// localWriter creates the save path lazily and tags failures on the local
// file as local I/O errors so engines can tell them apart from network
// failures.
type localWriter struct {
	path string
	f    *os.File
}

func (w *localWriter) open() error {
	if w.f != nil {
		return nil
	}
	f, err := os.Create(w.path)
	if err != nil {
		return localIO("create", err)
	}
	w.f = f
	return nil
}

func (w *localWriter) Write(p []byte) (int, error) {
	if err := w.open(); err != nil {
		return 0, err
	}
	n, err := w.f.Write(p)
	if err != nil {
		return n, localIO("write", err)
	}
	return n, nil
}

// Close closes the file if it was created.
func (w *localWriter) Close() error {
	if w.f == nil {
		return nil
	}
	return w.f.Close()
}

// localReader tags read failures on the local file as local I/O errors.
// It is seekable so engines can hash the content before sending it.
type localReader struct {
	f *os.File
}

func (r *localReader) Read(p []byte) (int, error) {
	n, err := r.f.Read(p)
	if err != nil && err != io.EOF {
		return n, localIO("read", err)
	}
	return n, err
}

func (r *localReader) Seek(offset int64, whence int) (int64, error) {
	n, err := r.f.Seek(offset, whence)
	if err != nil {
		return n, localIO("seek", err)
	}
	return n, nil
}

package ferry

import "github.com/meigma/ferry/core"

// DownloadCallbacks receives the events of a download. Every callback runs
// on the owner goroutine. Nil callbacks are skipped.
type DownloadCallbacks struct {
	// OnStarted is called once before any other callback.
	OnStarted func(url, savePath string, userData any)

	// OnProgress reports cumulative bytes written. total is UnknownSize when
	// the server does not announce a size.
	OnProgress func(url, savePath string, total, downloaded int64, userData any)

	// OnCompleted is called once when the file has been written.
	OnCompleted func(url, savePath string, userData any)

	// OnFailed is called once with the reason the download failed. A
	// partially written file is left in place.
	OnFailed func(url, savePath string, err error, userData any)
}

// UploadCallbacks receives the events of an upload. Every callback runs on
// the owner goroutine. Nil callbacks are skipped.
type UploadCallbacks struct {
	// OnStarted is called once before any other callback.
	OnStarted func(url, readPath string, userData any)

	// OnProgress reports cumulative bytes sent.
	OnProgress func(url, readPath string, total, uploaded int64, userData any)

	// OnCompleted is called once when the server accepted the file.
	OnCompleted func(url, readPath string, userData any)

	// OnFailed is called once with the reason the upload failed.
	OnFailed func(url, readPath string, err error, userData any)
}

func (cb DownloadCallbacks) callbacks() core.Callbacks {
	return core.Callbacks{
		OnStarted:   cb.OnStarted,
		OnProgress:  cb.OnProgress,
		OnCompleted: cb.OnCompleted,
		OnFailed:    cb.OnFailed,
	}
}

func (cb UploadCallbacks) callbacks() core.Callbacks {
	return core.Callbacks{
		OnStarted:   cb.OnStarted,
		OnProgress:  cb.OnProgress,
		OnCompleted: cb.OnCompleted,
		OnFailed:    cb.OnFailed,
	}
}

// dispatch invokes the callback slot matching ev. It runs on the owner
// goroutine.
func dispatch(cb core.Callbacks, ev core.Event) {
	switch ev.Type {
	case core.EventStarted:
		if cb.OnStarted != nil {
			cb.OnStarted(ev.URL, ev.LocalPath, ev.UserData)
		}
	case core.EventProgress:
		if cb.OnProgress != nil {
			cb.OnProgress(ev.URL, ev.LocalPath, ev.Progress.TotalBytes, ev.Progress.TransferredBytes, ev.UserData)
		}
	case core.EventCompleted:
		if cb.OnCompleted != nil {
			cb.OnCompleted(ev.URL, ev.LocalPath, ev.UserData)
		}
	case core.EventFailed:
		if cb.OnFailed != nil {
			cb.OnFailed(ev.URL, ev.LocalPath, ev.Err, ev.UserData)
		}
	}
}

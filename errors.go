package ferry

import "github.com/meigma/ferry/core"

// Sentinel errors for common failure conditions.
// Re-exported from core package.
var (
	// ErrInvalidArgument indicates a malformed request; returned synchronously.
	ErrInvalidArgument = core.ErrInvalidArgument

	// ErrTransport indicates the transfer engine failed.
	ErrTransport = core.ErrTransport

	// ErrUnauthorized indicates authentication failed.
	ErrUnauthorized = core.ErrUnauthorized

	// ErrNotFound indicates the remote resource does not exist.
	ErrNotFound = core.ErrNotFound

	// ErrLocalIO indicates the local file could not be opened, read or written.
	ErrLocalIO = core.ErrLocalIO

	// ErrNotInitialized indicates Init has not been called.
	ErrNotInitialized = core.ErrNotInitialized

	// ErrCanceled indicates the transfer was canceled through its handle.
	ErrCanceled = core.ErrCanceled

	// ErrUnsupportedScheme indicates the URL scheme has no engine.
	ErrUnsupportedScheme = core.ErrUnsupportedScheme
)

package core

import "errors"

// Sentinel errors for common failure conditions.
var (
	// ErrInvalidArgument indicates an empty or malformed URL, path or
	// credential. It is returned synchronously, before any worker starts.
	ErrInvalidArgument = errors.New("ferry: invalid argument")

	// ErrTransport indicates a network, protocol or remote status failure.
	ErrTransport = errors.New("ferry: transport error")

	// ErrUnauthorized indicates the remote side rejected the credentials.
	ErrUnauthorized = errors.New("ferry: unauthorized")

	// ErrNotFound indicates the remote resource does not exist.
	ErrNotFound = errors.New("ferry: not found")

	// ErrLocalIO indicates the local file could not be opened, read or written.
	ErrLocalIO = errors.New("ferry: local i/o error")

	// ErrNotInitialized indicates the transport engine was used without Init
	// or after the final Cleanup.
	ErrNotInitialized = errors.New("ferry: engine not initialized")

	// ErrCanceled indicates the transfer was canceled through its handle.
	ErrCanceled = errors.New("ferry: transfer canceled")

	// ErrInvalidTransition indicates a transfer state change that the
	// lifecycle does not allow.
	ErrInvalidTransition = errors.New("ferry: invalid state transition")

	// ErrUnsupportedScheme indicates no engine handles the URL scheme.
	ErrUnsupportedScheme = errors.New("ferry: unsupported url scheme")
)

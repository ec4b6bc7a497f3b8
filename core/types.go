// Package core provides the shared types and interfaces for ferry.
//
// This package exists to break import cycles between the root ferry package
// and internal implementation packages. The ferry package re-exports all
// public types from this package, so external users should import ferry
// directly, not ferry/core.
package core

import (
	"fmt"
	"strings"
)

// Kind identifies the direction of a transfer.
type Kind uint8

const (
	// KindDownload fetches a remote resource into a local file.
	KindDownload Kind = iota
	// KindUpload sends a local file to a remote resource.
	KindUpload
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindDownload:
		return "download"
	case KindUpload:
		return "upload"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Credentials holds basic authentication for an upload.
type Credentials struct {
	Username string
	Password string
}

// ParseCredentials parses a "user:pass" string.
// An empty string yields nil credentials. The password may itself contain
// colons; only the first colon separates the fields.
func ParseCredentials(s string) (*Credentials, error) {
	if s == "" {
		return nil, nil
	}
	user, pass, ok := strings.Cut(s, ":")
	if !ok {
		return nil, fmt.Errorf("%w: credentials must be in user:pass form", ErrInvalidArgument)
	}
	if user == "" {
		return nil, fmt.Errorf("%w: credentials have an empty username", ErrInvalidArgument)
	}
	return &Credentials{Username: user, Password: pass}, nil
}

// String masks the password.
func (c *Credentials) String() string {
	if c == nil {
		return ""
	}
	return c.Username + ":***"
}

// ProgressSample is a progress report from the transfer engine.
//
// TransferredBytes is cumulative since the start of the transfer.
// TotalBytes is -1 while the size is unknown and may be refined by later
// samples.
type ProgressSample struct {
	TotalBytes       int64
	TransferredBytes int64
}

// UnknownSize is the TotalBytes placeholder for a size the engine cannot
// report yet.
const UnknownSize int64 = -1

// EventType is the tag of an Event.
type EventType uint8

const (
	// EventStarted is emitted once, before any other event of a transfer.
	EventStarted EventType = iota
	// EventProgress carries a ProgressSample.
	EventProgress
	// EventCompleted ends a successful transfer.
	EventCompleted
	// EventFailed ends an unsuccessful transfer.
	EventFailed
)

// String returns the name of the event type.
func (t EventType) String() string {
	switch t {
	case EventStarted:
		return "started"
	case EventProgress:
		return "progress"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	default:
		return fmt.Sprintf("event(%d)", uint8(t))
	}
}

// IsTerminal reports whether t ends a transfer's event sequence.
func (t EventType) IsTerminal() bool {
	return t == EventCompleted || t == EventFailed
}

// Event is a notification raised by a transfer worker and delivered on the
// owner goroutine.
type Event struct {
	Type EventType
	// ID identifies the transfer within its client.
	ID uint64
	// Kind is the direction of the transfer.
	Kind Kind
	// URL is the remote side of the transfer.
	URL string
	// LocalPath is the save path for downloads and the read path for uploads.
	LocalPath string
	// Progress is set for EventProgress.
	Progress ProgressSample
	// Err is set for EventFailed.
	Err error
	// UserData is the caller's opaque value, passed through untouched.
	UserData any
}

// Callbacks is the direction-neutral callback set stored with a request.
// Any slot may be nil, in which case events of that type are dropped.
type Callbacks struct {
	OnStarted   func(url, localPath string, userData any)
	OnProgress  func(url, localPath string, totalBytes, transferredBytes int64, userData any)
	OnCompleted func(url, localPath string, userData any)
	OnFailed    func(url, localPath string, err error, userData any)
}

// Request describes one transfer. It is immutable once started.
type Request struct {
	Kind        Kind
	URL         string
	LocalPath   string
	Credentials *Credentials
	Callbacks   Callbacks
	UserData    any
}

// Clone returns a copy of r that shares no string or credential storage
// with the original. UserData is copied by value and never inspected.
func (r *Request) Clone() *Request {
	c := &Request{
		Kind:      r.Kind,
		URL:       strings.Clone(r.URL),
		LocalPath: strings.Clone(r.LocalPath),
		Callbacks: r.Callbacks,
		UserData:  r.UserData,
	}
	if r.Credentials != nil {
		c.Credentials = &Credentials{
			Username: strings.Clone(r.Credentials.Username),
			Password: strings.Clone(r.Credentials.Password),
		}
	}
	return c
}

// Event builds an event of the given type for r.
func (r *Request) Event(id uint64, t EventType) Event {
	return Event{
		Type:      t,
		ID:        id,
		Kind:      r.Kind,
		URL:       r.URL,
		LocalPath: r.LocalPath,
		UserData:  r.UserData,
	}
}

// Stats reports transfer counters for a client.
type Stats struct {
	// Spawned is the number of worker goroutines ever started.
	Spawned uint64
	// Live is the number of transfers not yet disposed.
	Live int
}

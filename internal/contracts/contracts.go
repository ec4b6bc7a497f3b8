// Package contracts defines internal interfaces shared across ferry components.
// These interfaces are intentionally internal to avoid exposing implementation
// contracts as part of the public API.
package contracts

import "github.com/meigma/ferry/core"

// EventSink accepts events raised on a worker goroutine.
//
// Post must only enqueue; it never waits for the owner goroutine.
type EventSink interface {
	Post(ev core.Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ev core.Event)

// Post calls f(ev).
func (f EventSinkFunc) Post(ev core.Event) { f(ev) }

// Readiness is implemented by engines that depend on process-wide state.
// The dispatcher refuses to start transfers while Ready reports false.
type Readiness interface {
	Ready() bool
}

// Engine is the transfer engine surface used by workers.
type Engine = core.Engine

// Scheduler is the owner task queue surface used by the relay.
type Scheduler = core.Scheduler

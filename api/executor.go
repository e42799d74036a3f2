// Package api
// Author: momentics <momentics@gmail.com>
//
// Executor contract: a shared reactor driven by a fixed worker pool.

package api

// Executor owns a shared Reactor and a pool of worker goroutines that drive
// it. Publishers and their sessions schedule work onto the Reactor rather
// than spawning goroutines directly. Stop waits for the Submit workers to
// drain; goroutines launched with Go are not waited for.
type Executor interface {
	// Start spawns exactly n workers pumping the short-task queue (n <= 0
	// spawns one). Calling Start twice is the caller's responsibility to
	// avoid.
	Start(n int)

	// Stop drops the keep-alive work guard and asks the reactor to stop.
	// It never blocks on in-flight long-running reactor-bound goroutines;
	// those observe cancellation through their own done channel.
	Stop()

	// Reactor returns the handle used to schedule work bound to this
	// executor's lifecycle.
	Reactor() Reactor
}

// Reactor is the scheduling handle an Executor exposes to the rest of the
// system. Go launches a long-lived goroutine (an acceptor loop, a session's
// writer/reader pump) that the caller owns end to end; the executor counts
// it but Stop does not wait for it. Submit enqueues a short callback onto
// the bounded worker pool.
type Reactor interface {
	// Go runs fn in a new goroutine. Returns false without running fn if
	// the executor has already been stopped.
	Go(fn func()) bool

	// Submit enqueues fn for execution on one of the bounded workers.
	// Returns false without running fn if the executor has been stopped
	// or the queue is saturated.
	Submit(fn func()) bool
}

// File: executor/executor.go
// Package executor implements api.Executor/api.Reactor: a shared scheduling
// handle backed by a bounded worker pool, standing in for the asio
// io_service + thread-pool pair the original C++ executor wraps.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Grounded on core/concurrency/executor.go's worker-pool shape (fixed
// goroutine count draining a shared task channel) and on executor_impl.cpp's
// start(thread_count)/stop() lifecycle with its keep-alive "dummy work"
// sentinel. Go's runtime netpoller already multiplexes blocking socket I/O
// across OS threads, so unlike the teacher this package never touches raw
// epoll: Reactor.Go launches a goroutine the caller owns end to end (an
// accept loop, a session's reader/writer pump), while Reactor.Submit feeds
// short callbacks through the bounded pool below.
package executor

import (
	"sync"
	"sync/atomic"

	"github.com/tsingakbar/tcp-pubsub/api"
)

// queueDepth bounds the number of pending Submit callbacks per worker,
// mirroring the teacher's per-worker local queue capacity.
const queueDepth = 1024

type executor struct {
	tasks   chan func()
	wg      sync.WaitGroup
	running int32 // goroutines launched via Go(), for diagnostics only
	stopped atomic.Bool
}

// New returns an api.Executor with no workers running yet; call Start to
// spawn its pool.
func New() api.Executor {
	return &executor{}
}

func (e *executor) Start(n int) {
	if n <= 0 {
		n = 1
	}
	e.tasks = make(chan func(), n*queueDepth)
	for i := 0; i < n; i++ {
		e.wg.Add(1)
		go e.runWorker()
	}
}

func (e *executor) runWorker() {
	defer e.wg.Done()
	for task := range e.tasks {
		safeRun(task)
	}
}

func safeRun(task func()) {
	defer func() { recover() }()
	task()
}

func (e *executor) Stop() {
	if e.stopped.CompareAndSwap(false, true) {
		if e.tasks != nil {
			close(e.tasks)
		}
		e.wg.Wait()
	}
}

func (e *executor) Reactor() api.Reactor { return (*reactorHandle)(e) }

// reactorHandle exposes the Go/Submit surface without letting callers reach
// Start/Stop through the Reactor handle.
type reactorHandle executor

func (r *reactorHandle) Go(fn func()) bool {
	e := (*executor)(r)
	if e.stopped.Load() {
		return false
	}
	atomic.AddInt32(&e.running, 1)
	go func() {
		defer atomic.AddInt32(&e.running, -1)
		safeRun(fn)
	}()
	return true
}

func (r *reactorHandle) Submit(fn func()) bool {
	e := (*executor)(r)
	if e.stopped.Load() {
		return false
	}
	select {
	case e.tasks <- fn:
		return true
	default:
		return false
	}
}

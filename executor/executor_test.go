package executor

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSubmitRunsOnWorker(t *testing.T) {
	e := New()
	e.Start(2)
	defer e.Stop()

	var n int32
	var wg sync.WaitGroup
	wg.Add(1)
	if ok := e.Reactor().Submit(func() {
		atomic.AddInt32(&n, 1)
		wg.Done()
	}); !ok {
		t.Fatal("Submit returned false")
	}
	wg.Wait()
	if atomic.LoadInt32(&n) != 1 {
		t.Fatalf("n = %d, want 1", n)
	}
}

func TestGoRunsIndependentGoroutine(t *testing.T) {
	e := New()
	e.Start(1)
	defer e.Stop()

	done := make(chan struct{})
	if ok := e.Reactor().Go(func() { close(done) }); !ok {
		t.Fatal("Go returned false")
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Go-launched goroutine never ran")
	}
}

func TestSubmitAfterStopFails(t *testing.T) {
	e := New()
	e.Start(1)
	e.Stop()

	if ok := e.Reactor().Submit(func() {}); ok {
		t.Fatal("Submit after Stop should return false")
	}
	if ok := e.Reactor().Go(func() {}); ok {
		t.Fatal("Go after Stop should return false")
	}
}

func TestStopWaitsForWorkersToDrain(t *testing.T) {
	e := New()
	e.Start(1)

	var ran atomic.Bool
	e.Reactor().Submit(func() {
		time.Sleep(10 * time.Millisecond)
		ran.Store(true)
	})
	e.Stop()

	if !ran.Load() {
		t.Fatal("Stop returned before queued task finished")
	}
}

func TestStopWithoutStartDoesNotPanic(t *testing.T) {
	e := New()
	e.Stop()
}

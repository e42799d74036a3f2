// File: transientlocal/ring.go
// Package transientlocal holds the most recent published buffers so a
// subscriber that completes its handshake after a publish still receives
// them, within a count and/or age bound.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Grounded on publisher_impl.cpp's transient_local_buffers_ list and its
// purgeExpiredTransientLocalBuffers: a single monotone while-loop evicts
// from the front while the ring is over its count bound or its oldest
// element has aged out, whichever triggers. The backing storage is
// github.com/eapache/queue's ring buffer rather than a hand-rolled list,
// since the teacher's own go.mod already carries that dependency.
package transientlocal

import (
	"time"

	"github.com/eapache/queue"
	"github.com/tsingakbar/tcp-pubsub/api"
)

type element struct {
	buf      api.Buffer
	enqueued time.Time
}

// Ring is a count- and/or age-bounded FIFO of retained buffers. A Ring with
// MaxCount == 0 never retains anything; Push is then a guaranteed no-op,
// letting a Publisher skip the transient-local path entirely when it is
// disabled, matching buffer_max_count_ == 0 in the original.
type Ring struct {
	maxCount int
	lifespan time.Duration

	q *queue.Queue
}

// New creates a Ring bounded by maxCount entries and, when lifespan > 0,
// by age. maxCount == 0 disables retention.
func New(maxCount int, lifespan time.Duration) *Ring {
	return &Ring{maxCount: maxCount, lifespan: lifespan, q: queue.New()}
}

// Enabled reports whether this Ring retains anything at all.
func (r *Ring) Enabled() bool { return r.maxCount > 0 }

// Push retains buf, taking ownership of one reference (the caller must
// Retain before calling Push if it still needs buf afterward), then evicts
// down to the configured bounds.
func (r *Ring) Push(buf api.Buffer, now time.Time) {
	if !r.Enabled() {
		buf.Release()
		return
	}
	r.q.Add(element{buf: buf, enqueued: now})
	r.purge(now)
}

// purge evicts from the front while the ring exceeds its count bound or its
// oldest element has exceeded the configured lifespan. Both conditions are
// checked in the same loop so a single Purge call restores both invariants,
// mirroring the original's single while-loop rather than two passes.
func (r *Ring) purge(now time.Time) {
	for r.q.Length() > 0 {
		overCount := r.q.Length() > r.maxCount
		var overAge bool
		if r.lifespan > 0 {
			oldest := r.q.Peek().(element)
			overAge = now.Sub(oldest.enqueued) > r.lifespan
		}
		if !overCount && !overAge {
			break
		}
		evicted := r.q.Remove().(element)
		evicted.buf.Release()
	}
}

// Purge re-evaluates the age bound against now without adding anything,
// for callers that want to age out stale entries on a timer rather than
// only on the next Push.
func (r *Ring) Purge(now time.Time) {
	if !r.Enabled() {
		return
	}
	r.purge(now)
}

// Snapshot returns every currently retained buffer, each with one Retain
// already applied so the caller owns a reference independent of the ring's
// own. Intended for fanning a newly handshaken session's backlog out
// before any subsequent normal send can reach it.
func (r *Ring) Snapshot() []api.Buffer {
	n := r.q.Length()
	if n == 0 {
		return nil
	}
	out := make([]api.Buffer, n)
	for i := 0; i < n; i++ {
		out[i] = r.q.Get(i).(element).buf.Retain()
	}
	return out
}

// Len reports the number of retained buffers.
func (r *Ring) Len() int { return r.q.Length() }

// Close releases every retained buffer and empties the ring.
func (r *Ring) Close() {
	for r.q.Length() > 0 {
		r.q.Remove().(element).buf.Release()
	}
}

// Package api
// Author: momentics
//
// Shared-ownership, reference-counted byte buffer used to fan out a single
// published payload to every connected subscriber without copying it once
// per session.

package api

// Buffer is a reference-counted, resizable byte region obtained from a
// BufferPool. A freshly allocated buffer carries one reference. Retain adds
// a reference for an additional holder (e.g. a session about to enqueue the
// buffer); Release drops one. The underlying storage returns to its pool
// only when the reference count reaches zero. A Buffer is treated as
// immutable once it has been handed to more than one holder.
type Buffer interface {
	// Bytes returns the current contents. The slice aliases pool-owned
	// storage and must not be retained past Release.
	Bytes() []byte

	// Len returns len(Bytes()).
	Len() int

	// Retain adds one reference, returning the same Buffer for chaining.
	Retain() Buffer

	// Release drops one reference. Once the last reference is dropped the
	// storage is recycled into the pool; the buffer must not be used by
	// the releasing holder afterwards.
	Release()
}

// BufferPool hands out refcounted buffers and recycles their storage once
// the last holder releases them. A pool may be shared across publishers;
// a buffer's lifetime must never depend on the pool owner's lifetime.
type BufferPool interface {
	// Get returns a buffer whose Bytes() has exactly length n, carrying a
	// single reference owned by the caller.
	Get(n int) Buffer

	// Stats reports allocation/reuse accounting for observability.
	Stats() BufferPoolStats
}

// BufferPoolStats aggregates allocation/reuse counters.
type BufferPoolStats struct {
	TotalAlloc int64
	TotalFree  int64
	InUse      int64
}

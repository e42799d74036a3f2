// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics collector for system-level monitoring.
// Exposes counters in a thread-safe map with dynamic registration, plus a
// payload-size distribution backed by HdrHistogram for low-overhead
// percentile tracking under high publish rates.

package control

import (
	"sync"
	"sync/atomic"
	"time"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"
)

// MetricsRegistry holds mutable and read-only metrics.
type MetricsRegistry struct {
	mu      sync.RWMutex
	metrics map[string]any
	updated time.Time

	sessionsDropped int64
	bytesSent       int64

	histMu    sync.Mutex
	sizeHist  *hdrhistogram.Histogram
}

// NewMetricsRegistry creates an empty registry. The payload-size histogram
// tracks 0..64MiB with 3 significant figures, matching the kind of
// low-overhead runtime distribution paypal-junodb keeps for request sizes.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		metrics:  make(map[string]any),
		sizeHist: hdrhistogram.New(0, 64*1024*1024, 3),
	}
}

// Set sets or updates a metric key.
func (mr *MetricsRegistry) Set(key string, value any) {
	mr.mu.Lock()
	mr.metrics[key] = value
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// GetSnapshot returns the latest metrics.
func (mr *MetricsRegistry) GetSnapshot() map[string]any {
	mr.mu.RLock()
	out := make(map[string]any, len(mr.metrics))
	for k, v := range mr.metrics {
		out[k] = v
	}
	mr.mu.RUnlock()

	out["bytes_sent"] = atomic.LoadInt64(&mr.bytesSent)
	out["sessions_dropped_messages"] = atomic.LoadInt64(&mr.sessionsDropped)

	mr.histMu.Lock()
	out["payload_size_p50"] = mr.sizeHist.ValueAtQuantile(50)
	out["payload_size_p99"] = mr.sizeHist.ValueAtQuantile(99)
	out["payload_size_max"] = mr.sizeHist.Max()
	mr.histMu.Unlock()

	return out
}

// ObservePayloadSize records one published payload's size.
func (mr *MetricsRegistry) ObservePayloadSize(n int) {
	mr.histMu.Lock()
	_ = mr.sizeHist.RecordValue(int64(n))
	mr.histMu.Unlock()
}

// AddBytesSent accumulates bytes actually written to subscriber sockets.
func (mr *MetricsRegistry) AddBytesSent(n int) {
	atomic.AddInt64(&mr.bytesSent, int64(n))
}

// IncSessionDrop counts one backpressure-dropped queued buffer.
func (mr *MetricsRegistry) IncSessionDrop() {
	atomic.AddInt64(&mr.sessionsDropped, 1)
}

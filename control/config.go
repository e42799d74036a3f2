// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Thread-safe configuration store for the publisher facade, with dynamic
// update and hot-reload propagation.

package control

import (
	"sync"
	"time"
)

// PublisherConfig is the concrete set of tunables a facade records in its
// config store: the acceptor endpoint, worker pool size, and transient-local
// backlog retention. Storing a new value here does not reconfigure a
// running publisher. ConfigStore keeps this typed struct
// as its source of truth rather than a bare map, so a caller merging a
// partial update gets a single place (SetConfig's key switch below) that
// knows which keys exist, instead of silently accepting or dropping
// arbitrary string keys with no feedback.
type PublisherConfig struct {
	ListenAddress string
	ListenPort    uint16

	NumWorkers int

	TransientLocalMaxCount int
	TransientLocalLifespan time.Duration

	ShutdownTimeout time.Duration
}

// ConfigStore holds the facade's PublisherConfig plus any caller-supplied
// keys this facade doesn't recognize. api.Control.SetConfig takes an
// untyped map[string]any, so unrecognized keys are retained verbatim for
// GetSnapshot to echo back rather than silently discarded.
type ConfigStore struct {
	mu        sync.RWMutex
	cfg       PublisherConfig
	extra     map[string]any
	listeners []func()
}

// NewConfigStore initializes a new config store with a zero PublisherConfig.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		extra:     make(map[string]any),
		listeners: make([]func(), 0),
	}
}

// Snapshot returns a copy of the typed publisher configuration.
func (cs *ConfigStore) Snapshot() PublisherConfig {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.cfg
}

// SetPublisherConfig replaces the typed configuration wholesale and
// dispatches reload, the typed counterpart to SetConfig's untyped merge.
func (cs *ConfigStore) SetPublisherConfig(cfg PublisherConfig) {
	cs.mu.Lock()
	cs.cfg = cfg
	cs.dispatchReload()
	cs.mu.Unlock()
}

// GetSnapshot returns the typed config flattened into api.Control's
// map[string]any view, plus any unrecognized keys SetConfig retained.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	out := make(map[string]any, len(cs.extra)+6)
	for k, v := range cs.extra {
		out[k] = v
	}
	out["listen_address"] = cs.cfg.ListenAddress
	out["listen_port"] = cs.cfg.ListenPort
	out["num_workers"] = cs.cfg.NumWorkers
	out["transient_local_max_count"] = cs.cfg.TransientLocalMaxCount
	out["transient_local_lifespan"] = cs.cfg.TransientLocalLifespan.String()
	out["shutdown_timeout"] = cs.cfg.ShutdownTimeout.String()
	return out
}

// SetConfig merges newCfg into the typed PublisherConfig: recognized keys
// update their corresponding field, everything else is retained as-is for
// GetSnapshot to echo back. Implements api.Control.
func (cs *ConfigStore) SetConfig(newCfg map[string]any) {
	cs.mu.Lock()
	for k, v := range newCfg {
		switch k {
		case "listen_address":
			if s, ok := v.(string); ok {
				cs.cfg.ListenAddress = s
				continue
			}
		case "listen_port":
			if p, ok := toUint16(v); ok {
				cs.cfg.ListenPort = p
				continue
			}
		case "num_workers":
			if n, ok := toInt(v); ok {
				cs.cfg.NumWorkers = n
				continue
			}
		case "transient_local_max_count":
			if n, ok := toInt(v); ok {
				cs.cfg.TransientLocalMaxCount = n
				continue
			}
		case "transient_local_lifespan":
			if d, ok := toDuration(v); ok {
				cs.cfg.TransientLocalLifespan = d
				continue
			}
		case "shutdown_timeout":
			if d, ok := toDuration(v); ok {
				cs.cfg.ShutdownTimeout = d
				continue
			}
		}
		cs.extra[k] = v
	}
	cs.dispatchReload()
	cs.mu.Unlock()
}

// OnReload registers a listener hook called on config changes.
func (cs *ConfigStore) OnReload(fn func()) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}

// dispatchReload invokes all listeners. Called with mu held; listeners run
// on their own goroutine so a slow one can't stall the caller of SetConfig.
func (cs *ConfigStore) dispatchReload() {
	for _, fn := range cs.listeners {
		go fn()
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func toUint16(v any) (uint16, bool) {
	n, ok := toInt(v)
	if !ok {
		return 0, false
	}
	return uint16(n), true
}

func toDuration(v any) (time.Duration, bool) {
	switch d := v.(type) {
	case time.Duration:
		return d, true
	case string:
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}

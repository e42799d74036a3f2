// File: server/hioload.go
// Package server is the public façade: a thin wrapper that wires an
// Executor, a BufferPool, and a Publisher together and exposes the
// Publisher's lifetime and send operation to an embedder, without
// requiring it to construct each subsystem by hand.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Grounded on facade/hioload.go's Config/DefaultConfig/New/Start/Stop/
// Shutdown shape, generalized from a WebSocket framework facade (transport,
// poller, scheduler, affinity, session manager) down to the three
// subsystems this domain actually has, plus the metrics/control wiring
// control.MetricsRegistry already provides.
package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/tsingakbar/tcp-pubsub/api"
	"github.com/tsingakbar/tcp-pubsub/control"
	"github.com/tsingakbar/tcp-pubsub/executor"
	"github.com/tsingakbar/tcp-pubsub/pool"
	"github.com/tsingakbar/tcp-pubsub/publisher"
)

// Config holds the facade's construction parameters.
type Config struct {
	ListenAddress string
	ListenPort    uint16

	NumWorkers int

	TransientLocalMaxCount int
	TransientLocalLifespan time.Duration

	ShutdownTimeout time.Duration

	Log api.LogFunc
}

// DefaultConfig returns a baseline configuration: ephemeral port on all
// interfaces, four workers, transient-local retention disabled.
func DefaultConfig() *Config {
	return &Config{
		ListenAddress:   "",
		ListenPort:      0,
		NumWorkers:      4,
		ShutdownTimeout: 10 * time.Second,
		Log:             api.NopLog,
	}
}

// HioloadTCPPubSub is the central facade exposing the publisher's
// lifetime and send operation to an embedder. It also satisfies
// api.Control and api.Debug so an embedder can poll/reconfigure it
// through those narrower interfaces without depending on this type.
type HioloadTCPPubSub struct {
	config *Config

	executor    api.Executor
	bufPool     api.BufferPool
	metrics     *control.MetricsRegistry
	publisher   *publisher.Publisher
	configStore *control.ConfigStore
	debugProbes *control.DebugProbes

	mu      sync.Mutex
	started bool
}

// New wires an Executor, a BufferPool, a MetricsRegistry, and a Publisher
// together per cfg. Start must be called before Send will do anything.
func New(cfg *Config) (*HioloadTCPPubSub, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Log == nil {
		cfg.Log = api.NopLog
	}

	ex := executor.New()
	bufPool := pool.NewBufferPool()
	metrics := control.NewMetricsRegistry()

	pub := publisher.New(ex.Reactor(), bufPool, publisher.TransientLocalSetting{
		MaxCount: cfg.TransientLocalMaxCount,
		Lifespan: cfg.TransientLocalLifespan,
	}, metrics, cfg.Log)

	configStore := control.NewConfigStore()
	configStore.SetPublisherConfig(control.PublisherConfig{
		ListenAddress:          cfg.ListenAddress,
		ListenPort:             cfg.ListenPort,
		NumWorkers:             cfg.NumWorkers,
		TransientLocalMaxCount: cfg.TransientLocalMaxCount,
		TransientLocalLifespan: cfg.TransientLocalLifespan,
		ShutdownTimeout:        cfg.ShutdownTimeout,
	})

	debugProbes := control.NewDebugProbes()
	control.RegisterPlatformProbes(debugProbes)
	debugProbes.RegisterProbe("control.config", func() any { return configStore.Snapshot() })
	debugProbes.RegisterProbe("control.reload_hooks", func() any { return control.ReloadHookCount() })

	h := &HioloadTCPPubSub{
		config:      cfg,
		executor:    ex,
		bufPool:     bufPool,
		metrics:     metrics,
		publisher:   pub,
		configStore: configStore,
		debugProbes: debugProbes,
	}
	debugProbes.RegisterProbe("publisher.subscriber_count", func() any { return h.publisher.SubscriberCount() })
	debugProbes.RegisterProbe("publisher.port", func() any { return h.publisher.Port() })
	debugProbes.RegisterProbe("pool.stats", func() any { return h.bufPool.Stats() })

	return h, nil
}

// Start spawns the worker pool and binds the publisher's acceptor.
func (h *HioloadTCPPubSub) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return nil
	}
	h.executor.Start(h.config.NumWorkers)
	if err := h.publisher.Start(h.config.ListenAddress, h.config.ListenPort); err != nil {
		h.executor.Stop()
		return err
	}
	h.started = true
	return nil
}

// Stop cancels the publisher and its sessions, then drains the worker
// pool. It is internal; embedders should call Shutdown for the
// timeout-bounded variant.
func (h *HioloadTCPPubSub) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.started {
		return nil
	}
	h.publisher.Cancel()
	h.executor.Stop()
	h.started = false
	return nil
}

// Shutdown stops the facade, returning an error if teardown exceeds
// config.ShutdownTimeout.
func (h *HioloadTCPPubSub) Shutdown() error {
	done := make(chan error, 1)
	go func() { done <- h.Stop() }()
	select {
	case err := <-done:
		return err
	case <-time.After(h.config.ShutdownTimeout):
		return fmt.Errorf("shutdown timeout after %v", h.config.ShutdownTimeout)
	}
}

// Send publishes chunks, concatenated into one message, to every currently
// connected subscriber.
func (h *HioloadTCPPubSub) Send(chunks ...[]byte) error {
	return h.publisher.Send(chunks...)
}

// Port returns the bound TCP port, or 0 if the publisher is not running.
func (h *HioloadTCPPubSub) Port() uint16 { return h.publisher.Port() }

// SubscriberCount returns the number of sessions currently tracked.
func (h *HioloadTCPPubSub) SubscriberCount() int { return h.publisher.SubscriberCount() }

// Metrics exposes the facade's metrics registry for a CLI or status
// endpoint to poll.
func (h *HioloadTCPPubSub) Metrics() *control.MetricsRegistry { return h.metrics }

// GetConfig implements api.Control.
func (h *HioloadTCPPubSub) GetConfig() map[string]any { return h.configStore.GetSnapshot() }

// SetConfig implements api.Control. Recognized keys update the config
// store's typed fields and unknown keys are stored as-is; neither is applied
// to the running publisher, executor or acceptor.
func (h *HioloadTCPPubSub) SetConfig(cfg map[string]any) error {
	h.configStore.SetConfig(cfg)
	return nil
}

// Stats implements api.Control.
func (h *HioloadTCPPubSub) Stats() map[string]any { return h.metrics.GetSnapshot() }

// OnReload implements api.Control.
func (h *HioloadTCPPubSub) OnReload(fn func()) { h.configStore.OnReload(fn) }

// RegisterDebugProbe implements api.Control.
func (h *HioloadTCPPubSub) RegisterDebugProbe(name string, fn func() any) {
	h.debugProbes.RegisterProbe(name, fn)
}

// DumpState implements api.Debug.
func (h *HioloadTCPPubSub) DumpState() map[string]any { return h.debugProbes.DumpState() }

// RegisterProbe implements api.Debug.
func (h *HioloadTCPPubSub) RegisterProbe(name string, fn func() any) {
	h.debugProbes.RegisterProbe(name, fn)
}

var (
	_ api.Control = (*HioloadTCPPubSub)(nil)
	_ api.Debug   = (*HioloadTCPPubSub)(nil)
)

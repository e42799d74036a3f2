package server

import (
	"testing"
)

func TestNewWithNilConfigUsesDefaults(t *testing.T) {
	h, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if h.Port() != 0 {
		t.Fatalf("Port() before Start = %d, want 0", h.Port())
	}
}

func TestStartStopLifecycle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ListenAddress = "127.0.0.1"
	h, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := h.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if h.Port() == 0 {
		t.Fatal("Port() after Start should be non-zero")
	}
	if err := h.Send([]byte("hello")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := h.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if h.Port() != 0 {
		t.Fatalf("Port() after Shutdown = %d, want 0", h.Port())
	}
}

func TestStartTwiceIsNoop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ListenAddress = "127.0.0.1"
	h, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := h.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer h.Shutdown()

	port := h.Port()
	if err := h.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if h.Port() != port {
		t.Fatalf("second Start rebound the acceptor: port changed from %d to %d", port, h.Port())
	}
}

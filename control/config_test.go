package control

import (
	"testing"
	"time"
)

func TestSetPublisherConfigThenSnapshotRoundTrips(t *testing.T) {
	cs := NewConfigStore()
	cs.SetPublisherConfig(PublisherConfig{
		ListenAddress:          "127.0.0.1",
		ListenPort:             9000,
		NumWorkers:             8,
		TransientLocalMaxCount: 16,
		TransientLocalLifespan: 30 * time.Second,
		ShutdownTimeout:        5 * time.Second,
	})

	got := cs.Snapshot()
	if got.ListenAddress != "127.0.0.1" || got.ListenPort != 9000 || got.NumWorkers != 8 {
		t.Fatalf("Snapshot() = %+v, want address/port/workers set", got)
	}
}

func TestSetConfigUpdatesRecognizedKeysAndRetainsUnknown(t *testing.T) {
	cs := NewConfigStore()
	cs.SetConfig(map[string]any{
		"transient_local_max_count": 4,
		"transient_local_lifespan":  "1m",
		"custom_key":                "value",
	})

	snap := cs.Snapshot()
	if snap.TransientLocalMaxCount != 4 {
		t.Fatalf("TransientLocalMaxCount = %d, want 4", snap.TransientLocalMaxCount)
	}
	if snap.TransientLocalLifespan != time.Minute {
		t.Fatalf("TransientLocalLifespan = %v, want 1m", snap.TransientLocalLifespan)
	}

	out := cs.GetSnapshot()
	if out["custom_key"] != "value" {
		t.Fatalf("GetSnapshot() dropped unrecognized key custom_key")
	}
	if out["transient_local_max_count"] != 4 {
		t.Fatalf("GetSnapshot()[transient_local_max_count] = %v, want 4", out["transient_local_max_count"])
	}
}

func TestOnReloadFiresOnSetConfig(t *testing.T) {
	cs := NewConfigStore()
	done := make(chan struct{}, 1)
	cs.OnReload(func() { done <- struct{}{} })

	cs.SetConfig(map[string]any{"num_workers": 2})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reload listener never fired")
	}
}

func TestDebugProbesDumpStateInvokesEachProbe(t *testing.T) {
	dp := NewDebugProbes()
	dp.RegisterProbe("answer", func() any { return 42 })
	dp.RegisterProbe("greeting", func() any { return "hi" })

	out := dp.DumpState()
	if out["answer"] != 42 || out["greeting"] != "hi" {
		t.Fatalf("DumpState() = %v, want answer=42 greeting=hi", out)
	}
}

func TestReloadHookCountReflectsRegistrations(t *testing.T) {
	before := ReloadHookCount()
	RegisterReloadHook(func() {})
	if got := ReloadHookCount(); got != before+1 {
		t.Fatalf("ReloadHookCount() = %d, want %d", got, before+1)
	}
}

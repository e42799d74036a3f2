// Package control is the tcp-pubsub facade's control plane: typed
// publisher configuration with hot-reload propagation, named debug probes,
// and platform-specific worker-sizing hints.
//
// Provides:
//   - PublisherConfig and ConfigStore: the facade's live listen
//     address/port, worker count, and transient-local retention settings,
//     readable as a snapshot and mergeable from an untyped map for
//     api.Control callers.
//   - DebugProbes: named thunks a facade registers once at construction
//     and DumpState invokes on demand, backing api.Debug.
//   - The package-level reload hook registry a SIGHUP handler triggers to
//     re-read a config file without restarting the acceptor.
//
// This package is cross-platform and build-tag-partitioned where a probe
// needs platform-specific data (see platform_linux.go/platform_windows.go).
package control

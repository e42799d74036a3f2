//go:build windows
// +build windows

// control/platform_windows.go
// Author: momentics <momentics@gmail.com>
//
// Windows-specific debug probes for sizing the executor's worker pool.

package control

import (
	"runtime"
)

// RegisterPlatformProbes exposes the host's CPU count and a suggested
// executor worker count (twice GOMAXPROCS) so an operator can tell whether
// a facade's -workers flag undershoots the machine it's running on.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.recommended_workers", func() any {
		return 2 * runtime.GOMAXPROCS(0)
	})
}

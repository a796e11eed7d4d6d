// Package system probes where the calling thread executes: host name, current
// CPU, NUMA node, affinity mask, and the accelerators visible to the process.
// Every probe degrades to a model sentinel instead of failing, so a host
// without NUMA or accelerators still produces complete records.
package system

import (
	"os"

	"xthi/internal/model"
)

// Placement is where the calling OS thread was executing when sampled.
type Placement struct {
	CPU      int
	NUMANode int
	Affinity string
	TID      int
}

// Host reads placement facts from the running kernel.
type Host struct {
	// sysRoot is the root of the sysfs filesystem. Defaults to "/sys"
	// in production; overridden in tests with synthetic trees.
	sysRoot string
	getenv  func(string) string
}

// NewHost creates a Host reading the real /sys and process environment.
func NewHost() *Host {
	return &Host{sysRoot: "/sys", getenv: os.Getenv}
}

// newHostFrom creates a Host with a custom sysfs root and environment for testing.
func newHostFrom(sysRoot string, getenv func(string) string) *Host {
	return &Host{sysRoot: sysRoot, getenv: getenv}
}

func (h *Host) Hostname() string {
	return ShortHostname()
}

// Placement samples the calling thread. Callers that need per-thread facts
// must hold runtime.LockOSThread for the duration of the call.
func (h *Host) Placement() Placement {
	if !placementSupported {
		return Placement{
			CPU:      model.Unavailable,
			NUMANode: model.Unavailable,
			Affinity: model.NoValue,
			TID:      currentTID(),
		}
	}
	cpu := currentCPU()
	return Placement{
		CPU:      cpu,
		NUMANode: NUMANodeOf(h.sysRoot, cpu),
		Affinity: currentAffinity(),
		TID:      currentTID(),
	}
}

func (h *Host) Accelerators() string {
	return Accelerators(h.sysRoot, h.getenv)
}

// Capabilities reports which placement columns this platform can fill. Group
// membership and accelerator reporting are decided by the caller.
func (h *Host) Capabilities() model.Capabilities {
	return model.Capabilities{
		Placement: placementSupported,
		NUMA:      placementSupported && numaSupported(h.sysRoot),
	}
}

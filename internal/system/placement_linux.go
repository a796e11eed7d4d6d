//go:build linux

package system

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"xthi/internal/model"
)

const placementSupported = true

// currentCPU returns the logical CPU the calling thread is running on, as
// reported by getcpu(2).
func currentCPU() int {
	var cpu, node uint32
	_, _, errno := unix.RawSyscall(unix.SYS_GETCPU,
		uintptr(unsafe.Pointer(&cpu)), uintptr(unsafe.Pointer(&node)), 0)
	if errno != 0 {
		return model.Unavailable
	}
	return int(cpu)
}

// currentAffinity returns the calling thread's allowed CPUs as a range list.
func currentAffinity() string {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return model.NoValue
	}
	count := set.Count()
	maxCPUs := 8 * int(unsafe.Sizeof(set))
	cpus := make([]int, 0, count)
	for i := 0; i < maxCPUs && len(cpus) < count; i++ {
		if set.IsSet(i) {
			cpus = append(cpus, i)
		}
	}
	if len(cpus) == 0 {
		return model.NoValue
	}
	return FormatCPUList(cpus)
}

func currentTID() int {
	return unix.Gettid()
}

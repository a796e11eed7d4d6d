package system

import (
	"os"
	"path/filepath"
	"strconv"

	"xthi/internal/model"
)

// NUMANodeOf returns the NUMA node containing cpu, or model.Unavailable when
// the topology is not exposed. The per-CPU nodeN link is consulted first and
// the node cpulists second.
func NUMANodeOf(sysRoot string, cpu int) int {
	if cpu < 0 {
		return model.Unavailable
	}
	cpuDir := filepath.Join(sysRoot, "devices/system/cpu", "cpu"+strconv.Itoa(cpu))
	if entries, err := os.ReadDir(cpuDir); err == nil {
		for _, entry := range entries {
			if node, ok := isIndexedEntry(entry.Name(), "node"); ok {
				return node
			}
		}
	}

	nodeBase := filepath.Join(sysRoot, "devices/system/node")
	entries, err := os.ReadDir(nodeBase)
	if err != nil {
		return model.Unavailable
	}
	for _, entry := range entries {
		node, ok := isIndexedEntry(entry.Name(), "node")
		if !ok {
			continue
		}
		cpus, err := ParseCPUList(readSysfsString(filepath.Join(nodeBase, entry.Name(), "cpulist")))
		if err != nil {
			continue
		}
		for _, c := range cpus {
			if c == cpu {
				return node
			}
		}
	}
	return model.Unavailable
}

// numaSupported reports whether sysfs exposes at least one NUMA node.
func numaSupported(sysRoot string) bool {
	entries, err := os.ReadDir(filepath.Join(sysRoot, "devices/system/node"))
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if _, ok := isIndexedEntry(entry.Name(), "node"); ok {
			return true
		}
	}
	return false
}

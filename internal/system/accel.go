package system

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"xthi/internal/model"
)

// Runtime variables that restrict which devices a process may use. The first
// one set wins over hardware enumeration.
var visibleDeviceVars = []string{
	"CUDA_VISIBLE_DEVICES",
	"ROCR_VISIBLE_DEVICES",
	"HIP_VISIBLE_DEVICES",
}

// PCI vendor ids of accelerator vendors reported from DRM enumeration.
var acceleratorVendors = map[string]bool{
	"10de": true, // NVIDIA
	"1002": true, // AMD
}

// Accelerators returns the ';'-separated identifiers of the accelerators
// visible to this process, or model.NoAccelerators.
func Accelerators(sysRoot string, getenv func(string) string) string {
	for _, key := range visibleDeviceVars {
		value := strings.TrimSpace(getenv(key))
		if value == "" {
			continue
		}
		return joinDevices(visibleDevices(value))
	}
	return joinDevices(enumerateDRM(sysRoot))
}

func visibleDevices(value string) []string {
	var ids []string
	for _, id := range strings.Split(value, ",") {
		id = strings.TrimSpace(id)
		switch id {
		case "", "-1", "NoDevFiles":
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func joinDevices(ids []string) string {
	if len(ids) == 0 {
		return model.NoAccelerators
	}
	return strings.Join(ids, ";")
}

// enumerateDRM lists accelerator cards under /sys/class/drm by PCI slot, in
// card index order.
func enumerateDRM(sysRoot string) []string {
	drmBase := filepath.Join(sysRoot, "class/drm")
	entries, err := os.ReadDir(drmBase)
	if err != nil {
		return nil
	}

	type card struct {
		index int
		slot  string
	}
	var cards []card
	for _, entry := range entries {
		index, ok := isIndexedEntry(entry.Name(), "card")
		if !ok {
			continue
		}
		vendor, slot := parsePCIUevent(filepath.Join(drmBase, entry.Name(), "device"))
		if !acceleratorVendors[vendor] || slot == "" {
			continue
		}
		cards = append(cards, card{index: index, slot: slot})
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].index < cards[j].index })

	ids := make([]string, 0, len(cards))
	for _, c := range cards {
		ids = append(ids, c.slot)
	}
	return ids
}

// parsePCIUevent extracts the lowercase PCI vendor id and the PCI slot from a
// device's uevent file:
//
//	PCI_ID=1002:744A
//	PCI_SLOT_NAME=0000:c3:00.0
func parsePCIUevent(devicePath string) (vendorID, pciSlot string) {
	data, err := os.ReadFile(filepath.Join(devicePath, "uevent"))
	if err != nil {
		return "", ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "PCI_ID":
			if vendor, _, ok := strings.Cut(value, ":"); ok {
				vendorID = strings.ToLower(vendor)
			}
		case "PCI_SLOT_NAME":
			pciSlot = strings.TrimSpace(value)
		}
	}
	return vendorID, pciSlot
}

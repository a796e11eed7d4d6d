package system

import (
	"slices"
	"sort"
	"strconv"
	"strings"
)

// FormatCPUList renders a set of CPU ids in the compact range-list form used
// for affinity masks: runs of three or more collapse to "start-end", shorter
// runs are listed individually. "0,2-5,9".
func FormatCPUList(cpus []int) string {
	ids := append([]int(nil), cpus...)
	sort.Ints(ids)
	ids = slices.Compact(ids)

	var b strings.Builder
	for i := 0; i < len(ids); {
		j := i
		for j+1 < len(ids) && ids[j+1] == ids[j]+1 {
			j++
		}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		switch j - i {
		case 0:
			b.WriteString(strconv.Itoa(ids[i]))
		case 1:
			b.WriteString(strconv.Itoa(ids[i]))
			b.WriteByte(',')
			b.WriteString(strconv.Itoa(ids[j]))
		default:
			b.WriteString(strconv.Itoa(ids[i]))
			b.WriteByte('-')
			b.WriteString(strconv.Itoa(ids[j]))
		}
		i = j + 1
	}
	return b.String()
}

// ParseCPUList parses the kernel's cpulist format (as found in
// /sys/devices/system/cpu/online) into individual CPU ids.
func ParseCPUList(list string) ([]int, error) {
	var cpus []int
	list = strings.Trim(list, "\n ")
	if list == "" {
		return nil, nil
	}
	for _, cpuRange := range strings.Split(list, ",") {
		rangeOp := strings.SplitN(cpuRange, "-", 2)
		first, err := strconv.ParseUint(rangeOp[0], 10, 32)
		if err != nil {
			return nil, err
		}
		if len(rangeOp) == 1 {
			cpus = append(cpus, int(first))
			continue
		}
		last, err := strconv.ParseUint(rangeOp[1], 10, 32)
		if err != nil {
			return nil, err
		}
		for n := first; n <= last; n++ {
			cpus = append(cpus, int(n))
		}
	}
	return cpus, nil
}

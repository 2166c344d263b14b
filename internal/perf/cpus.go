package perf

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const onlineCPUsPath = "/sys/devices/system/cpu/online"

// OnlineCPUs returns the ids of the CPUs currently online.
func OnlineCPUs() ([]int, error) {
	data, err := os.ReadFile(onlineCPUsPath)
	if err != nil {
		return nil, fmt.Errorf("reading online CPUs: %w", err)
	}

	return parseCPUList(strings.TrimSpace(string(data)))
}

// parseCPUList parses the kernel's cpu list format, e.g. "0-3,5,7-8".
func parseCPUList(list string) ([]int, error) {
	var cpus []int
	for _, part := range strings.Split(list, ",") {
		if part == "" {
			continue
		}

		first, last, isRange := strings.Cut(part, "-")
		from, err := strconv.Atoi(first)
		if err != nil {
			return nil, fmt.Errorf("parsing CPU list %q: %w", list, err)
		}
		to := from
		if isRange {
			if to, err = strconv.Atoi(last); err != nil {
				return nil, fmt.Errorf("parsing CPU list %q: %w", list, err)
			}
		}
		if to < from {
			return nil, fmt.Errorf("parsing CPU list %q: descending range %q", list, part)
		}

		for cpu := from; cpu <= to; cpu++ {
			cpus = append(cpus, cpu)
		}
	}

	if len(cpus) == 0 {
		return nil, fmt.Errorf("parsing CPU list %q: no CPUs", list)
	}

	return cpus, nil
}

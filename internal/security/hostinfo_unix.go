//go:build !windows && !darwin

package security

import "os"

func cpuSignal() (string, bool) {
	data, err := os.ReadFile("/proc/cpuinfo")
	if err != nil {
		return "", false
	}
	brand, vendor, ok := parseCPUInfo(string(data))
	if !ok {
		return "", false
	}
	return brand + vendor, true
}

func diskSignal() (string, bool) {
	entries, err := os.ReadDir("/sys/block")
	if err != nil {
		return "", false
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return firstBlockDevice(names)
}

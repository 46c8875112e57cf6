package security

import (
	"bufio"
	"sort"
	"strings"
)

// parseCPUInfo extracts the brand and vendor of the first processor listed
// in a /proc/cpuinfo document.
func parseCPUInfo(data string) (brand, vendor string, ok bool) {
	sc := bufio.NewScanner(strings.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" && ok {
			break // end of the first processor block
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		switch strings.TrimSpace(key) {
		case "model name":
			if brand == "" {
				brand = strings.TrimSpace(value)
				ok = true
			}
		case "vendor_id":
			if vendor == "" {
				vendor = strings.TrimSpace(value)
				ok = true
			}
		}
	}
	return brand, vendor, ok
}

var virtualBlockPrefixes = []string{"loop", "ram", "zram", "dm-", "sr"}

// firstBlockDevice picks the first physical-looking device name in sorted order
func firstBlockDevice(names []string) (string, bool) {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	for _, n := range sorted {
		virtual := false
		for _, p := range virtualBlockPrefixes {
			if strings.HasPrefix(n, p) {
				virtual = true
				break
			}
		}
		if !virtual {
			return n, true
		}
	}
	return "", false
}

//go:build darwin

package security

import (
	"os"

	"golang.org/x/sys/unix"
)

func cpuSignal() (string, bool) {
	brand, errBrand := unix.SysctlString("machdep.cpu.brand_string")
	vendor, errVendor := unix.SysctlString("machdep.cpu.vendor")
	if errBrand != nil && errVendor != nil {
		return "", false
	}
	return brand + vendor, true
}

func diskSignal() (string, bool) {
	if _, err := os.Stat("/dev/disk0"); err != nil {
		return "", false
	}
	return "disk0", true
}

//go:build windows

package security

import (
	"os"
	"strings"

	"golang.org/x/sys/windows/registry"
)

const cpuRegistryKey = `HARDWARE\DESCRIPTION\System\CentralProcessor\0`

func cpuSignal() (string, bool) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, cpuRegistryKey, registry.QUERY_VALUE)
	if err != nil {
		return "", false
	}
	defer k.Close()

	brand, _, errBrand := k.GetStringValue("ProcessorNameString")
	vendor, _, errVendor := k.GetStringValue("VendorIdentifier")
	if errBrand != nil && errVendor != nil {
		return "", false
	}
	return strings.TrimSpace(brand) + strings.TrimSpace(vendor), true
}

func diskSignal() (string, bool) {
	drive := os.Getenv("SystemDrive")
	if drive == "" {
		return "", false
	}
	return drive, true
}

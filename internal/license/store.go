package license

import (
	"context"
	"errors"
	"time"
)

// ErrStoreUnavailable wraps any persistence failure seen by the session
var ErrStoreUnavailable = errors.New("license store unavailable")

// Record is the last accepted license. ExpiresOn and DeviceID are copied
// from the key at acceptance time.
type Record struct {
	LicenseKey string
	ExpiresOn  time.Time
	DeviceID   string
}

// Store persists the single license record. LoadLicense returns an error
// matching storage.ErrNotFound when nothing has been saved.
type Store interface {
	SaveLicense(ctx context.Context, rec Record) error
	LoadLicense(ctx context.Context) (*Record, error)
}

// DeviceSource supplies the current device id
type DeviceSource interface {
	DeviceID() string
}

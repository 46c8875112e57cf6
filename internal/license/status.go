package license

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/storage"
)

// Status is the expiry band shown to the user
type Status string

const (
	StatusNotActivated Status = "Not Activated"
	StatusExpired      Status = "Expired"
	StatusCritical     Status = "Critical"
	StatusWarning      Status = "Warning"
	StatusActive       Status = "Active"
)

// Expiry bands in days remaining
const (
	CriticalDays = 7
	WarningDays  = 30
)

// StatusFor maps days remaining to a band. Zero means the key expires today
// and is still usable.
func StatusFor(daysRemaining int) Status {
	switch {
	case daysRemaining < 0:
		return StatusExpired
	case daysRemaining <= CriticalDays:
		return StatusCritical
	case daysRemaining <= WarningDays:
		return StatusWarning
	default:
		return StatusActive
	}
}

// DaysBetween counts whole calendar days from today to expiresOn
func DaysBetween(today, expiresOn time.Time) int {
	return int(CalendarDate(expiresOn).Sub(CalendarDate(today)).Hours() / 24)
}

// Info summarises the stored license for display
type Info struct {
	LicenseKey     string `json:"license_key,omitempty"`
	ExpirationDate string `json:"expiration_date,omitempty"`
	HWID           string `json:"hwid,omitempty"`
	DaysRemaining  int    `json:"days_remaining"`
	Status         Status `json:"status"`
	Licensed       bool   `json:"licensed"`
}

// Info reports the stored record with its expiry band. The key is masked.
func (s *Session) Info(ctx context.Context) (Info, error) {
	ctx, span := s.tracer.Start(ctx, "license.Info")
	defer span.End()

	rec, err := s.store.LoadLicense(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return Info{Status: StatusNotActivated, Licensed: s.Licensed()}, nil
	}
	if err != nil {
		span.RecordError(err)
		return Info{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	days := DaysBetween(s.Today(), rec.ExpiresOn)
	return Info{
		LicenseKey:     MaskKey(rec.LicenseKey),
		ExpirationDate: rec.ExpiresOn.Format(time.DateOnly),
		HWID:           rec.DeviceID,
		DaysRemaining:  days,
		Status:         StatusFor(days),
		Licensed:       s.Licensed(),
	}, nil
}

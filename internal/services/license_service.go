package services

import (
	"context"
	"log/slog"

	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/license"
)

// LicenseService exposes the license session to the command API
type LicenseService struct {
	session *license.Session
	events  EventPublisher
	logger  *slog.Logger
}

// NewLicenseService creates a license service over session
func NewLicenseService(session *license.Session, events EventPublisher, logger *slog.Logger) *LicenseService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LicenseService{
		session: session,
		events:  eventsOrDiscard(events),
		logger:  logger.With(slog.String("service", "license")),
	}
}

// DeviceID returns the id a license key must be issued for
func (s *LicenseService) DeviceID() string {
	return s.session.DeviceID()
}

// Validate verifies a submitted key and persists it when valid
func (s *LicenseService) Validate(ctx context.Context, key string) (license.Outcome, error) {
	wasLicensed := s.session.Licensed()
	outcome, err := s.session.Submit(ctx, key)
	if err != nil {
		return outcome, err
	}
	if outcome.Valid() && !wasLicensed {
		s.publishState()
	}
	return outcome, nil
}

// Licensed reports the current session state
func (s *LicenseService) Licensed() bool {
	return s.session.Licensed()
}

// StartupCheck re-verifies the stored record
func (s *LicenseService) StartupCheck(ctx context.Context) (bool, error) {
	wasLicensed := s.session.Licensed()
	licensed, err := s.session.CheckOnStartup(ctx)
	if err != nil {
		return false, err
	}
	if licensed && !wasLicensed {
		s.publishState()
	}
	return licensed, nil
}

// Info returns the stored license summary
func (s *LicenseService) Info(ctx context.Context) (license.Info, error) {
	return s.session.Info(ctx)
}

func (s *LicenseService) publishState() {
	s.events.Broadcast(EventLicenseState, map[string]interface{}{
		"licensed": true,
	})
}

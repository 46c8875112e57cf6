package license

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/storage"
)

// Clock returns the current time. The session uses its calendar date as today.
type Clock func() time.Time

// Session tracks whether this process is licensed. The flag starts false and
// is set only by a Valid verification. Nothing clears it.
type Session struct {
	verifier *Verifier
	store    Store
	device   DeviceSource
	clock    Clock
	logger   *slog.Logger
	tracer   trace.Tracer
	meter    metric.Meter
	metrics  *Metrics

	mu       sync.RWMutex
	licensed bool

	startup        singleflight.Group
	startupChecked atomic.Bool
}

// Option configures a Session
type Option func(*Session)

// WithClock replaces time.Now
func WithClock(c Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithLogger sets the session logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithTracer sets the tracer used for session spans
func WithTracer(t trace.Tracer) Option {
	return func(s *Session) { s.tracer = t }
}

// WithMeter registers the license metrics on m
func WithMeter(m metric.Meter) Option {
	return func(s *Session) { s.meter = m }
}

// NewSession creates an unlicensed session
func NewSession(verifier *Verifier, store Store, device DeviceSource, opts ...Option) (*Session, error) {
	s := &Session{
		verifier: verifier,
		store:    store,
		device:   device,
		clock:    time.Now,
		logger:   slog.Default(),
		tracer:   tracenoop.NewTracerProvider().Tracer(TracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "license_session"))

	metrics, err := NewMetrics(s.meter)
	if err != nil {
		return nil, err
	}
	if err := metrics.observe(s.meter, s.Licensed); err != nil {
		return nil, fmt.Errorf("failed to register license gauge: %w", err)
	}
	s.metrics = metrics

	return s, nil
}

// DeviceID returns the id license keys must be issued for
func (s *Session) DeviceID() string {
	return s.device.DeviceID()
}

// Licensed reports the current state without re-verifying
func (s *Session) Licensed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.licensed
}

// StartupChecked reports whether a startup check has finished
func (s *Session) StartupChecked() bool {
	return s.startupChecked.Load()
}

// Today returns the session's current calendar date
func (s *Session) Today() time.Time {
	return CalendarDate(s.clock())
}

// Submit verifies a user supplied key. On a Valid outcome the record is
// persisted and the session becomes licensed. A rejected key is reported in
// the outcome with a nil error; the error is reserved for aborted checks and
// store failures, and comes with the zero (unverified) Outcome.
func (s *Session) Submit(ctx context.Context, key string) (Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "license.Submit")
	defer span.End()

	deviceID := s.device.DeviceID()
	tok, outcome, err := s.verify(ctx, "submit", key, deviceID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "verification aborted")
		return Outcome{}, err
	}
	span.SetAttributes(attribute.String("license.outcome", outcome.Reason.String()))

	if !outcome.Valid() {
		s.logger.WarnContext(ctx, "license key rejected",
			slog.String("license_key", MaskKey(key)),
			slog.String("reason", outcome.Reason.String()),
		)
		return outcome, nil
	}

	rec := Record{LicenseKey: key, ExpiresOn: tok.ExpiresOn, DeviceID: deviceID}
	if err := s.store.SaveLicense(ctx, rec); err != nil {
		err = fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to persist license")
		s.logger.ErrorContext(ctx, "failed to persist accepted license", slog.String("error", err.Error()))
		return Outcome{}, err
	}

	s.setLicensed()
	s.logger.InfoContext(ctx, "license activated",
		slog.String("license_key", MaskKey(key)),
		slog.String("expires_on", tok.ExpiresOn.Format(time.DateOnly)),
	)
	return outcome, nil
}

// CheckOnStartup re-verifies the stored record against the current device
// and date. It returns false with a nil error when nothing is stored.
// Concurrent callers share one check.
func (s *Session) CheckOnStartup(ctx context.Context) (bool, error) {
	v, err, _ := s.startup.Do("startup", func() (interface{}, error) {
		defer s.startupChecked.Store(true)
		return s.checkStored(ctx)
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (s *Session) checkStored(ctx context.Context) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "license.CheckOnStartup")
	defer span.End()

	rec, err := s.store.LoadLicense(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		s.logger.InfoContext(ctx, "no stored license")
		span.SetAttributes(attribute.Bool("license.stored", false))
		return false, nil
	}
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load license")
		return false, err
	}
	span.SetAttributes(attribute.Bool("license.stored", true))

	_, outcome, err := s.verify(ctx, "startup", rec.LicenseKey, s.device.DeviceID())
	if err != nil {
		return false, err
	}
	span.SetAttributes(attribute.String("license.outcome", outcome.Reason.String()))

	if !outcome.Valid() {
		s.logger.WarnContext(ctx, "stored license no longer valid",
			slog.String("license_key", MaskKey(rec.LicenseKey)),
			slog.String("reason", outcome.Reason.String()),
		)
		return s.Licensed(), nil
	}

	s.setLicensed()
	s.logger.InfoContext(ctx, "stored license verified",
		slog.String("license_key", MaskKey(rec.LicenseKey)),
		slog.String("expires_on", rec.ExpiresOn.Format(time.DateOnly)),
	)
	return true, nil
}

// verify runs the verifier on a worker goroutine and waits for it
func (s *Session) verify(ctx context.Context, source, key, deviceID string) (Token, Outcome, error) {
	today := s.Today()
	start := time.Now()

	var (
		tok     Token
		outcome Outcome
	)
	if err := ctx.Err(); err != nil {
		return Token{}, Outcome{}, err
	}

	var g errgroup.Group
	g.Go(func() error {
		tok, outcome = s.verifier.Check(key, deviceID, today)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Token{}, Outcome{}, err
	}

	s.metrics.record(ctx, source, outcome, time.Since(start))
	return tok, outcome, nil
}

func (s *Session) setLicensed() {
	s.mu.Lock()
	s.licensed = true
	s.mu.Unlock()
}

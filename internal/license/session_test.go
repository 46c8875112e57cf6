package license

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/shared/testutil"
	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/storage"
)

type staticDevice string

func (d staticDevice) DeviceID() string { return string(d) }

type memoryStore struct {
	mu      sync.Mutex
	rec     *Record
	loadErr error
	saveErr error
	loads   atomic.Int32
	gate    chan struct{}
}

func (m *memoryStore) SaveLicense(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.rec = &rec
	return nil
}

func (m *memoryStore) LoadLicense(_ context.Context) (*Record, error) {
	m.loads.Add(1)
	if m.gate != nil {
		<-m.gate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.rec == nil {
		return nil, storage.ErrNotFound
	}
	copied := *m.rec
	return &copied, nil
}

// =============================================================================
// Session suite
// =============================================================================

type SessionSuite struct {
	suite.Suite
	store   *memoryStore
	logs    *testutil.BufferedSlogHandler
	session *Session
	today   time.Time
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}

func (s *SessionSuite) SetupTest() {
	s.store = &memoryStore{}
	s.today = date(2024, 12, 31)

	var logger *slog.Logger
	logger, s.logs = testutil.NewTestLogger(nil)
	session, err := NewSession(NewVerifier(DefaultKey()), s.store, staticDevice("abc-123"),
		WithClock(func() time.Time { return s.today }),
		WithLogger(logger),
	)
	s.Require().NoError(err)
	s.session = session
}

func (s *SessionSuite) validKey() string {
	return Sign(DefaultKey(), "abc-123", date(2025, 1, 1), "n1").Encode()
}

func (s *SessionSuite) TestStartsUnlicensed() {
	s.False(s.session.Licensed())
	s.False(s.session.StartupChecked())
	s.Equal("abc-123", s.session.DeviceID())
}

func (s *SessionSuite) TestSubmitValid() {
	key := s.validKey()

	out, err := s.session.Submit(context.Background(), key)
	s.Require().NoError(err)
	s.True(out.Valid())
	s.True(s.session.Licensed())

	s.Require().NotNil(s.store.rec)
	s.Equal(key, s.store.rec.LicenseKey)
	s.Equal(date(2025, 1, 1), s.store.rec.ExpiresOn)
	s.Equal("abc-123", s.store.rec.DeviceID)

	s.today = date(2030, 1, 1)
	s.True(s.session.Licensed(), "state holds without re-verifying")
}

func (s *SessionSuite) TestSubmitRejectedKeepsState() {
	foreign := Sign(DefaultKey(), "xyz-999", date(2025, 1, 1), "n1").Encode()

	out, err := s.session.Submit(context.Background(), foreign)
	s.Require().NoError(err)
	s.Equal(ReasonDeviceMismatch, out.Reason)
	s.False(s.session.Licensed())
	s.Nil(s.store.rec, "rejected keys are never persisted")
}

func (s *SessionSuite) TestSubmitStoreFailure() {
	s.store.saveErr = errors.New("database is locked")

	out, err := s.session.Submit(context.Background(), s.validKey())
	s.ErrorIs(err, ErrStoreUnavailable)
	s.False(out.Valid(), "an aborted submit never reports acceptance")
	s.Equal(ReasonUnverified, out.Reason)
	s.False(s.session.Licensed(), "no state change without a persisted record")
}

func (s *SessionSuite) TestSubmitCancelled() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := s.session.Submit(ctx, s.validKey())
	s.ErrorIs(err, context.Canceled)
	s.False(out.Valid())
	s.Equal(ReasonUnverified, out.Reason)
	s.False(s.session.Licensed())
	s.Nil(s.store.rec, "nothing persisted for an aborted check")
}

func (s *SessionSuite) TestStartupNoRecord() {
	licensed, err := s.session.CheckOnStartup(context.Background())
	s.NoError(err)
	s.False(licensed)
	s.True(s.session.StartupChecked())
}

func (s *SessionSuite) TestStartupStoredValid() {
	s.store.rec = &Record{LicenseKey: s.validKey(), ExpiresOn: date(2025, 1, 1), DeviceID: "abc-123"}

	licensed, err := s.session.CheckOnStartup(context.Background())
	s.NoError(err)
	s.True(licensed)
	s.True(s.session.Licensed())
}

func (s *SessionSuite) TestStartupStoredExpired() {
	s.store.rec = &Record{LicenseKey: s.validKey(), ExpiresOn: date(2025, 1, 1), DeviceID: "abc-123"}
	s.today = date(2025, 1, 2)

	licensed, err := s.session.CheckOnStartup(context.Background())
	s.NoError(err)
	s.False(licensed)
}

func (s *SessionSuite) TestStartupStoredForOtherDevice() {
	key := Sign(DefaultKey(), "old-machine", date(2025, 1, 1), "n1").Encode()
	s.store.rec = &Record{LicenseKey: key, ExpiresOn: date(2025, 1, 1), DeviceID: "old-machine"}

	licensed, err := s.session.CheckOnStartup(context.Background())
	s.NoError(err)
	s.False(licensed, "stored key is re-verified against the current device")
}

func (s *SessionSuite) TestStartupStoreUnavailable() {
	s.store.loadErr = errors.New("timeout")

	licensed, err := s.session.CheckOnStartup(context.Background())
	s.ErrorIs(err, ErrStoreUnavailable)
	s.False(licensed)
}

func (s *SessionSuite) TestSecretsNeverLogged() {
	key := s.validKey()
	_, err := s.session.Submit(context.Background(), key)
	s.Require().NoError(err)
	_, err = s.session.Submit(context.Background(), "bm9wZQ==")
	s.Require().NoError(err)

	s.NotZero(s.logs.Count())
	testutil.AssertNotLogged(s.T(), s.logs, key, embeddedSecret)
	s.True(s.logs.ContainsText(MaskKey(key)))
}

func (s *SessionSuite) TestInfo() {
	info, err := s.session.Info(context.Background())
	s.Require().NoError(err)
	s.Equal(StatusNotActivated, info.Status)

	key := s.validKey()
	_, err = s.session.Submit(context.Background(), key)
	s.Require().NoError(err)

	info, err = s.session.Info(context.Background())
	s.Require().NoError(err)
	s.Equal(StatusCritical, info.Status)
	s.Equal(1, info.DaysRemaining)
	s.Equal("2025-01-01", info.ExpirationDate)
	s.Equal(key[:8]+"****", info.LicenseKey)
	s.Equal("abc-123", info.HWID)
	s.True(info.Licensed)
}

// =============================================================================
// Concurrency
// =============================================================================

func TestSession_StartupChecksCoalesce(t *testing.T) {
	store := &memoryStore{gate: make(chan struct{})}
	store.rec = &Record{
		LicenseKey: Sign(DefaultKey(), "abc-123", date(2025, 1, 1), "n1").Encode(),
		ExpiresOn:  date(2025, 1, 1),
		DeviceID:   "abc-123",
	}
	session, err := NewSession(NewVerifier(DefaultKey()), store, staticDevice("abc-123"),
		WithClock(func() time.Time { return date(2024, 6, 1) }))
	require.NoError(t, err)

	const callers = 16
	var (
		wg      sync.WaitGroup
		started sync.WaitGroup
		results = make([]bool, callers)
	)
	started.Add(callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Done()
			ok, err := session.CheckOnStartup(context.Background())
			assert.NoError(t, err)
			results[i] = ok
		}(i)
	}
	started.Wait()
	time.Sleep(20 * time.Millisecond)
	close(store.gate)
	wg.Wait()

	for _, ok := range results {
		assert.True(t, ok)
	}
	assert.LessOrEqual(t, store.loads.Load(), int32(callers))
	assert.True(t, session.Licensed())
}

func TestSession_ConcurrentSubmitAndRead(t *testing.T) {
	store := &memoryStore{}
	session, err := NewSession(NewVerifier(DefaultKey()), store, staticDevice("abc-123"),
		WithClock(func() time.Time { return date(2024, 6, 1) }))
	require.NoError(t, err)

	key := Sign(DefaultKey(), "abc-123", date(2025, 1, 1), "n1").Encode()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := session.Submit(context.Background(), key)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_ = session.Licensed()
		}()
	}
	wg.Wait()
	assert.True(t, session.Licensed())
}

// =============================================================================
// Metrics
// =============================================================================

func TestSession_Metrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	session, err := NewSession(NewVerifier(DefaultKey()), &memoryStore{}, staticDevice("abc-123"),
		WithClock(func() time.Time { return date(2024, 6, 1) }),
		WithMeter(provider.Meter(MeterName)),
	)
	require.NoError(t, err)

	_, err = session.Submit(context.Background(), "bm9wZQ==")
	require.NoError(t, err)
	_, err = session.Submit(context.Background(), Sign(DefaultKey(), "abc-123", date(2025, 1, 1), "n").Encode())
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	found := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			found[m.Name] = true
			if m.Name == "license.verifications" {
				sum, ok := m.Data.(metricdata.Sum[int64])
				require.True(t, ok)
				var total int64
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
				assert.Equal(t, int64(2), total)
			}
			if m.Name == "license.state.licensed" {
				gauge, ok := m.Data.(metricdata.Gauge[int64])
				require.True(t, ok)
				require.Len(t, gauge.DataPoints, 1)
				assert.Equal(t, int64(1), gauge.DataPoints[0].Value)
			}
		}
	}
	assert.True(t, found["license.verifications"])
	assert.True(t, found["license.verification.duration"])
	assert.True(t, found["license.state.licensed"])
}

// =============================================================================
// Status bands
// =============================================================================

func TestStatusFor(t *testing.T) {
	tests := []struct {
		days int
		want Status
	}{
		{-1, StatusExpired},
		{0, StatusCritical},
		{7, StatusCritical},
		{8, StatusWarning},
		{30, StatusWarning},
		{31, StatusActive},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.days), "days=%d", tt.days)
	}

	assert.Equal(t, 1, DaysBetween(date(2024, 12, 31), date(2025, 1, 1)))
	assert.Equal(t, -1, DaysBetween(date(2025, 1, 2), date(2025, 1, 1)))
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "****", MaskKey("short"))
	assert.Equal(t, "YWJjLTEy****", MaskKey("YWJjLTEyMzJ8MjAyNTAxMDE="))
	assert.Equal(t, "****", MaskKey("12345678"))
	assert.Equal(t, "12345678****", MaskKey("123456789"))

	masked := MaskKey("ключ-лицензии")
	assert.Equal(t, "ключ-лиц****", masked)
	assert.True(t, utf8.ValidString(masked))
	assert.Equal(t, "****", MaskKey("日本語のキー"))
}

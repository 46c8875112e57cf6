package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	apierrors "github.com/jonxmitchell/ark-asa-shop-config-generator/internal/errors"
	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/files"
	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/license"
	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/middleware"
	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/services"
	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/storage/bolt"
)

const testDevice = "3f0c2a8e-5d1b-5c77-9a0e-1f2b3c4d5e6f"

type staticDevice string

func (d staticDevice) DeviceID() string { return string(d) }

type RouterSuite struct {
	suite.Suite

	router    chi.Router
	store     *bolt.Store
	key       license.Key
	today     time.Time
	exportDir string
	arkPath   string
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	t := s.T()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()

	store, err := bolt.New(filepath.Join(dir, "data", "settings.db"), time.Second)
	s.Require().NoError(err)
	t.Cleanup(func() { _ = store.Close() })
	s.store = store

	s.key = license.DeriveKey([]byte("router-test-secret"))
	s.today = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	session, err := license.NewSession(license.NewVerifier(s.key), store, staticDevice(testDevice),
		license.WithClock(func() time.Time { return s.today }),
		license.WithLogger(logger),
	)
	s.Require().NoError(err)

	s.exportDir = filepath.Join(dir, "export")
	s.arkPath = filepath.Join(dir, "ark_data.json")
	fm := files.NewManager(s.exportDir, logger)

	licenseSvc := services.NewLicenseService(session, nil, logger)
	configSvc := services.NewConfigService(store, nil, logger)
	exportSvc := services.NewExportService(fm, store, nil, logger)
	arkSvc := services.NewArkDataService(fm, s.arkPath)
	healthSvc := services.NewHealthService("test", store, session, nil, logger)

	validator := middleware.NewValidator()
	errorHandler := apierrors.NewErrorHandler(logger)

	s.router = NewRouter(RouterConfig{
		License: NewLicenseHandler(licenseSvc, validator, errorHandler,
			middleware.NewRateLimiter(1000, 1000, logger).Handler, logger),
		Config:  NewConfigHandler(configSvc, validator, errorHandler, logger),
		Export:  NewExportHandler(exportSvc, arkSvc, validator, errorHandler, logger),
		Health:  NewHealthHandler(healthSvc),
		Metrics: NewMetricsHandler(nil),
		Gate:    middleware.NewLicenseGate(licenseSvc, nil, logger),
		Middleware: []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.Recoverer(logger),
		},
		RequestTimeout: 5 * time.Second,
	})
}

func (s *RouterSuite) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *RouterSuite) decode(rec *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s *RouterSuite) issue(device string, expiresOn time.Time) string {
	return license.Sign(s.key, device, expiresOn, "nonce-1").Encode()
}

func (s *RouterSuite) activate() {
	key := s.issue(testDevice, s.today.AddDate(0, 0, 90))
	rec := s.do(http.MethodPost, "/api/license/validate", `{"license_key":"`+key+`"}`)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
}

func (s *RouterSuite) TestDeviceID() {
	rec := s.do(http.MethodGet, "/api/license/device-id", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal(testDevice, s.decode(rec)["device_id"])
}

func (s *RouterSuite) TestValidate_Accepted() {
	rec := s.do(http.MethodGet, "/api/license/state", "")
	s.Equal(false, s.decode(rec)["licensed"])

	s.activate()

	rec = s.do(http.MethodGet, "/api/license/state", "")
	s.Equal(true, s.decode(rec)["licensed"])

	rec = s.do(http.MethodGet, "/api/license/info", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	info := s.decode(rec)
	s.Equal("Active", info["status"])
	s.Equal(float64(90), info["days_remaining"])
	s.Equal("2026-06-08", info["expiration_date"])
	s.True(strings.HasSuffix(info["license_key"].(string), "****"))
}

func (s *RouterSuite) TestValidate_TrimsPastedKey() {
	key := s.issue(testDevice, s.today.AddDate(0, 0, 90))
	rec := s.do(http.MethodPost, "/api/license/validate", `{"license_key":"  `+key+`\t\n"}`)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec2, err := s.store.LoadLicense(context.Background())
	s.Require().NoError(err)
	s.Equal(key, rec2.LicenseKey)
}

func (s *RouterSuite) TestValidate_Rejections() {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantReason string
		wantType   string
	}{
		{
			name:       "not base64",
			body:       `{"license_key":"%%%"}`,
			wantStatus: http.StatusBadRequest,
			wantReason: "malformed_encoding",
			wantType:   apierrors.TypeLicense,
		},
		{
			name:       "other device",
			body:       `{"license_key":"` + s.issue("someone-else", s.today.AddDate(0, 0, 30)) + `"}`,
			wantStatus: http.StatusForbidden,
			wantReason: "device_mismatch",
			wantType:   apierrors.TypeLicense,
		},
		{
			name:       "expired",
			body:       `{"license_key":"` + s.issue(testDevice, s.today.AddDate(0, 0, -1)) + `"}`,
			wantStatus: http.StatusForbidden,
			wantReason: "expired",
			wantType:   apierrors.TypeLicense,
		},
		{
			name:       "missing key",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			rec := s.do(http.MethodPost, "/api/license/validate", tt.body)
			s.Equal(tt.wantStatus, rec.Code)
			s.Equal("application/problem+json", rec.Header().Get("Content-Type"))
			body := s.decode(rec)
			s.Equal(tt.wantType, body["type"])
			if tt.wantReason != "" {
				s.Equal(tt.wantReason, body["reason"])
				s.NotEmpty(body["detail"])
			}
		})
	}

	rec := s.do(http.MethodGet, "/api/license/state", "")
	s.Equal(false, s.decode(rec)["licensed"])
}

func (s *RouterSuite) TestStartupCheck() {
	rec := s.do(http.MethodPost, "/api/license/startup-check", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal(false, s.decode(rec)["licensed"])

	rec = s.do(http.MethodGet, "/api/license/info", "")
	s.Equal("Not Activated", s.decode(rec)["status"])
}

func (s *RouterSuite) TestGate_BlocksUntilLicensed() {
	for _, path := range []string{"/api/settings", "/api/configs", "/api/ark-data"} {
		rec := s.do(http.MethodGet, path, "")
		s.Equal(http.StatusForbidden, rec.Code, path)
		s.Equal("LICENSE_REQUIRED", s.decode(rec)["error_code"], path)
	}
	rec := s.do(http.MethodPost, "/api/export", `{"config":{"a":1}}`)
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodGet, "/api/health", "")
	s.Equal(http.StatusOK, rec.Code)

	s.activate()
	rec = s.do(http.MethodGet, "/api/settings", "")
	s.Equal(http.StatusOK, rec.Code)
}

func (s *RouterSuite) TestSettings() {
	s.activate()

	rec := s.do(http.MethodGet, "/api/settings", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal(float64(5), s.decode(rec)["auto_save_interval"])
	s.Equal(true, s.decode(rec)["show_tooltips"])

	rec = s.do(http.MethodPut, "/api/settings", `{"output_path":" /srv/ark ","auto_save_enabled":true,"auto_save_interval":10,"show_tooltips":false}`)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	body := s.decode(rec)
	s.Equal("/srv/ark", body["output_path"])
	s.Equal(float64(10), body["auto_save_interval"])

	rec = s.do(http.MethodPut, "/api/settings", `{"auto_save_interval":500}`)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("VALIDATION_FAILED", s.decode(rec)["error_code"])
}

func (s *RouterSuite) TestConfigLifecycle() {
	s.activate()

	rec := s.do(http.MethodGet, "/api/configs", "")
	s.Equal("[]", strings.TrimSpace(rec.Body.String()))

	rec = s.do(http.MethodGet, "/api/configs/current", "")
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, "/api/configs", `{"name":"Main","config":{"Kits":{}}}`)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	created := s.decode(rec)
	s.Equal(`{"Kits":{}}`, created["config"])
	id := int(created["id"].(float64))

	rec = s.do(http.MethodPost, "/api/configs", `{"name":"Main","config":"{}"}`)
	s.Equal(http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/api/configs", `{"name":"Second","config":"{\"Kits\":{\"b\":{}}}"}`)
	s.Require().Equal(http.StatusCreated, rec.Code)
	s.Equal(`{"Kits":{"b":{}}}`, s.decode(rec)["config"])

	rec = s.do(http.MethodGet, "/api/configs/exists?name=Main", "")
	s.Equal(true, s.decode(rec)["exists"])
	rec = s.do(http.MethodGet, "/api/configs/exists", "")
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPut, "/api/configs/"+itoa(id), `{"name":"Second","config":{}}`)
	s.Equal(http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPut, "/api/configs/"+itoa(id), `{"name":"Renamed","config":{"Kits":{"a":{}}}}`)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Equal("Renamed", s.decode(rec)["name"])

	rec = s.do(http.MethodPut, "/api/configs/"+itoa(id)+"/export-paths", `{"paths":["/a"," ","/b"]}`)
	s.Equal(http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodGet, "/api/configs/"+itoa(id), "")
	s.Equal([]interface{}{"/a", "/b"}, s.decode(rec)["custom_export_paths"])

	rec = s.do(http.MethodGet, "/api/configs/current", "")
	s.Equal("Second", s.decode(rec)["name"])

	rec = s.do(http.MethodDelete, "/api/configs/"+itoa(id), "")
	s.Equal(http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodGet, "/api/configs/"+itoa(id), "")
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/api/configs/abc", "")
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("INVALID_ID", s.decode(rec)["error_code"])
}

func (s *RouterSuite) TestAutoSave() {
	s.activate()

	rec := s.do(http.MethodPost, "/api/configs/autosave", `{"config":{"v":1}}`)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Equal("Autosave", s.decode(rec)["name"])

	rec = s.do(http.MethodPost, "/api/configs/autosave", `{"config":null}`)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("EMPTY_CONFIG", s.decode(rec)["error_code"])
}

func (s *RouterSuite) TestExport() {
	s.activate()

	rec := s.do(http.MethodPost, "/api/export", `{"config":{"Kits":{}}}`)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	first := s.decode(rec)
	s.Equal(false, first["file_existed"])
	path := first["file_path"].(string)
	s.FileExists(path)

	rec = s.do(http.MethodPost, "/api/export", `{"config":{"Kits":{"x":{}}}}`)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal(true, s.decode(rec)["file_existed"])
	data, err := os.ReadFile(path)
	s.Require().NoError(err)
	s.NotContains(string(data), `"x"`)

	body, _ := json.Marshal(map[string]interface{}{"config": map[string]interface{}{"Kits": map[string]interface{}{"x": map[string]interface{}{}}}, "file_path": path})
	rec = s.do(http.MethodPost, "/api/export/force", string(body))
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	data, err = os.ReadFile(path)
	s.Require().NoError(err)
	s.Contains(string(data), `"x"`)

	rec = s.do(http.MethodPost, "/api/export", `{}`)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *RouterSuite) TestArkData() {
	s.activate()

	rec := s.do(http.MethodGet, "/api/ark-data", "")
	s.Equal(http.StatusNotFound, rec.Code)

	s.Require().NoError(os.WriteFile(s.arkPath, []byte(`{"Items":{"a":1}}`), 0o644))
	rec = s.do(http.MethodGet, "/api/ark-data", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	body := s.decode(rec)
	s.Contains(body, "Beacons")
	s.Contains(body, "Items")

	s.Require().NoError(os.WriteFile(s.arkPath, []byte(`[1,2]`), 0o644))
	rec = s.do(http.MethodGet, "/api/ark-data", "")
	s.Equal(http.StatusUnprocessableEntity, rec.Code)
}

func (s *RouterSuite) TestHealth() {
	rec := s.do(http.MethodGet, "/api/health", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("test", s.decode(rec)["version"])

	rec = s.do(http.MethodGet, "/api/health/ready", "")
	s.Equal(http.StatusServiceUnavailable, rec.Code)

	s.do(http.MethodPost, "/api/license/startup-check", "")
	rec = s.do(http.MethodGet, "/api/health/ready", "")
	s.Equal(http.StatusOK, rec.Code)
}

func (s *RouterSuite) TestMetricsDisabled() {
	rec := s.do(http.MethodGet, "/metrics", "")
	s.Equal(http.StatusNotFound, rec.Code)
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestConfigText(t *testing.T) {
	assert.Equal(t, `{"a":1}`, configText(json.RawMessage(`{"a":1}`)))
	assert.Equal(t, `{"a":1}`, configText(json.RawMessage(`"{\"a\":1}"`)))
	assert.Equal(t, `null`, configText(json.RawMessage(`null`)))
	assert.Equal(t, ``, configText(nil))
}

func TestMapError(t *testing.T) {
	var apiErr *apierrors.APIError
	require.ErrorAs(t, mapError(services.ErrArkDataInvalid, "ark data"), &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)

	require.ErrorAs(t, mapError(license.ErrStoreUnavailable, "license"), &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)

	assert.ErrorIs(t, mapError(context.Canceled, "x"), context.Canceled)
}

func TestRejection(t *testing.T) {
	tests := []struct {
		reason license.Reason
		status int
	}{
		{license.ReasonMalformedEncoding, http.StatusBadRequest},
		{license.ReasonWrongFieldCount, http.StatusBadRequest},
		{license.ReasonDeviceMismatch, http.StatusForbidden},
		{license.ReasonExpired, http.StatusForbidden},
		{license.ReasonBadSignature, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.reason.String(), func(t *testing.T) {
			var rej *apierrors.LicenseRejection
			require.ErrorAs(t, rejection(license.Outcome{Reason: tt.reason}), &rej)
			assert.Equal(t, tt.status, rej.StatusCode)
			assert.Equal(t, tt.reason.String(), rej.Reason)
		})
	}
}

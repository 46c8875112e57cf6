package http

import (
	"context"
	"encoding/json"

	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/license"
	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/services"
	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/storage"
)

// LicenseService is implemented by services.LicenseService
type LicenseService interface {
	DeviceID() string
	Validate(ctx context.Context, key string) (license.Outcome, error)
	Licensed() bool
	StartupCheck(ctx context.Context) (bool, error)
	Info(ctx context.Context) (license.Info, error)
}

// ConfigService is implemented by services.ConfigService
type ConfigService interface {
	LoadSettings(ctx context.Context) (storage.Settings, error)
	SaveSettings(ctx context.Context, settings storage.Settings) error
	ListConfigs(ctx context.Context) ([]*storage.SavedConfig, error)
	GetConfig(ctx context.Context, id uint64) (*storage.SavedConfig, error)
	CurrentConfig(ctx context.Context) (*storage.SavedConfig, error)
	SaveConfig(ctx context.Context, id *uint64, name, body string) (*storage.SavedConfig, error)
	DeleteConfig(ctx context.Context, id uint64) error
	NameExists(ctx context.Context, name string) (bool, error)
	UpdateExportPaths(ctx context.Context, id uint64, paths []string) error
	AutoSave(ctx context.Context, body string) (*storage.SavedConfig, error)
}

// ExportService is implemented by services.ExportService
type ExportService interface {
	Export(ctx context.Context, body json.RawMessage) (*services.ExportResult, error)
	ForceExport(ctx context.Context, body json.RawMessage, filePath string) (*services.ExportResult, error)
}

// ArkDataService is implemented by services.ArkDataService
type ArkDataService interface {
	Read(ctx context.Context) (map[string]json.RawMessage, error)
}

// HealthService is implemented by services.HealthService
type HealthService interface {
	Health(ctx context.Context) services.HealthStatus
	Ready(ctx context.Context) (services.HealthStatus, bool)
}

// Package storage defines the persisted records of the application and the
// interfaces the services use to reach them.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/config"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNameExists indicates a saved config with the same name already exists.
	ErrNameExists = errors.New("a configuration with this name already exists")
)

// Settings are the user preferences, stored as a single record
type Settings struct {
	OutputPath       string `json:"output_path"`
	AutoSaveEnabled  bool   `json:"auto_save_enabled"`
	AutoSaveInterval int    `json:"auto_save_interval"` // minutes
	ShowTooltips     bool   `json:"show_tooltips"`
}

// DefaultSettings returns the settings used before any are saved
func DefaultSettings() Settings {
	return Settings{
		AutoSaveEnabled:  false,
		AutoSaveInterval: config.DefaultAutoSaveInterval,
		ShowTooltips:     true,
	}
}

// SavedConfig is a named shop configuration document
type SavedConfig struct {
	ID                uint64    `json:"id"`
	Name              string    `json:"name"`
	Config            string    `json:"config"`
	CustomExportPaths []string  `json:"custom_export_paths"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// SettingsStore persists Settings
type SettingsStore interface {
	LoadSettings(ctx context.Context) (Settings, error)
	SaveSettings(ctx context.Context, s Settings) error
}

// ConfigStore persists saved configs. Names are unique.
type ConfigStore interface {
	ListConfigs(ctx context.Context) ([]*SavedConfig, error)
	GetConfig(ctx context.Context, id uint64) (*SavedConfig, error)
	CurrentConfig(ctx context.Context) (*SavedConfig, error)
	CreateConfig(ctx context.Context, name, config string) (*SavedConfig, error)
	UpdateConfig(ctx context.Context, id uint64, name, config string) (*SavedConfig, error)
	DeleteConfig(ctx context.Context, id uint64) error
	ConfigNameExists(ctx context.Context, name string) (bool, error)
	UpdateExportPaths(ctx context.Context, id uint64, paths []string) error
}

// Store is the full persistence layer
type Store interface {
	SettingsStore
	ConfigStore
	Ping(ctx context.Context) error
	Close() error
}

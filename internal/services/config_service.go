package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/config"
	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/storage"
)

// ConfigService manages settings and saved shop configs
type ConfigService struct {
	store  storage.Store
	events EventPublisher
	logger *slog.Logger
}

// NewConfigService creates a config service
func NewConfigService(store storage.Store, events EventPublisher, logger *slog.Logger) *ConfigService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfigService{
		store:  store,
		events: eventsOrDiscard(events),
		logger: logger.With(slog.String("service", "config")),
	}
}

// LoadSettings returns the stored settings or the defaults
func (s *ConfigService) LoadSettings(ctx context.Context) (storage.Settings, error) {
	return s.store.LoadSettings(ctx)
}

// SaveSettings validates and stores settings
func (s *ConfigService) SaveSettings(ctx context.Context, settings storage.Settings) error {
	if settings.AutoSaveInterval < config.MinAutoSaveInterval || settings.AutoSaveInterval > config.MaxAutoSaveInterval {
		return fmt.Errorf("%w: auto_save_interval must be between %d and %d minutes",
			ErrInvalidInput, config.MinAutoSaveInterval, config.MaxAutoSaveInterval)
	}
	settings.OutputPath = strings.TrimSpace(settings.OutputPath)
	if err := s.store.SaveSettings(ctx, settings); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "settings saved",
		slog.Bool("auto_save_enabled", settings.AutoSaveEnabled),
		slog.Int("auto_save_interval", settings.AutoSaveInterval),
	)
	return nil
}

// ListConfigs returns every saved config
func (s *ConfigService) ListConfigs(ctx context.Context) ([]*storage.SavedConfig, error) {
	return s.store.ListConfigs(ctx)
}

// GetConfig returns one saved config
func (s *ConfigService) GetConfig(ctx context.Context, id uint64) (*storage.SavedConfig, error) {
	return s.store.GetConfig(ctx, id)
}

// CurrentConfig returns the most recently created config
func (s *ConfigService) CurrentConfig(ctx context.Context) (*storage.SavedConfig, error) {
	return s.store.CurrentConfig(ctx)
}

// SaveConfig inserts a config when id is nil and updates it otherwise.
// Names must be unique; a clash returns storage.ErrNameExists.
func (s *ConfigService) SaveConfig(ctx context.Context, id *uint64, name, body string) (*storage.SavedConfig, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if err := checkConfigBody(body); err != nil {
		return nil, err
	}

	var (
		saved *storage.SavedConfig
		err   error
	)
	if id == nil {
		saved, err = s.store.CreateConfig(ctx, name, body)
	} else {
		saved, err = s.store.UpdateConfig(ctx, *id, name, body)
	}
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "config saved", slog.Uint64("id", saved.ID), slog.String("name", saved.Name))
	s.events.Broadcast(EventConfigSaved, map[string]interface{}{"id": saved.ID, "name": saved.Name})
	return saved, nil
}

// DeleteConfig removes a saved config
func (s *ConfigService) DeleteConfig(ctx context.Context, id uint64) error {
	if err := s.store.DeleteConfig(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "config deleted", slog.Uint64("id", id))
	return nil
}

// NameExists reports whether a config name is taken
func (s *ConfigService) NameExists(ctx context.Context, name string) (bool, error) {
	return s.store.ConfigNameExists(ctx, strings.TrimSpace(name))
}

// UpdateExportPaths replaces the extra export targets of a config
func (s *ConfigService) UpdateExportPaths(ctx context.Context, id uint64, paths []string) error {
	cleaned := make([]string, 0, len(paths))
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return s.store.UpdateExportPaths(ctx, id, cleaned)
}

// AutoSave writes body into the current config, creating the "Autosave"
// config when none exists yet.
func (s *ConfigService) AutoSave(ctx context.Context, body string) (*storage.SavedConfig, error) {
	if err := checkConfigBody(body); err != nil {
		return nil, err
	}

	current, err := s.store.CurrentConfig(ctx)
	var saved *storage.SavedConfig
	switch {
	case errors.Is(err, storage.ErrNotFound):
		saved, err = s.store.CreateConfig(ctx, config.AutosaveConfigName, body)
	case err != nil:
		return nil, err
	default:
		saved, err = s.store.UpdateConfig(ctx, current.ID, current.Name, body)
	}
	if err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "config autosaved", slog.Uint64("id", saved.ID))
	s.events.Broadcast(EventAutosave, map[string]interface{}{
		"id":       saved.ID,
		"name":     saved.Name,
		"saved_at": saved.UpdatedAt,
	})
	return saved, nil
}

func checkConfigBody(body string) error {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" || trimmed == "null" {
		return ErrEmptyConfig
	}
	if !json.Valid([]byte(trimmed)) {
		return ErrInvalidConfigJSON
	}
	return nil
}

package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/config"
	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/files"
	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/storage"
)

// ExportResult describes where a config was written
type ExportResult struct {
	FilePath    string `json:"file_path"`
	FileExisted bool   `json:"file_existed"`
}

// ExportService writes shop configs to the file the game server reads
type ExportService struct {
	files    *files.Manager
	settings storage.SettingsStore
	events   EventPublisher
	logger   *slog.Logger
}

// NewExportService creates an export service. fm is rooted at the default
// export directory, used when settings carry no output path.
func NewExportService(fm *files.Manager, settings storage.SettingsStore, events EventPublisher, logger *slog.Logger) *ExportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportService{
		files:    fm,
		settings: settings,
		events:   eventsOrDiscard(events),
		logger:   logger.With(slog.String("service", "export")),
	}
}

// Export writes body to the configured output directory. An existing file is
// not replaced; the result then reports FileExisted so the caller can ask the
// user and call ForceExport.
func (s *ExportService) Export(ctx context.Context, body json.RawMessage) (*ExportResult, error) {
	data, err := formatConfig(body)
	if err != nil {
		return nil, err
	}

	target, err := s.defaultTarget(ctx)
	if err != nil {
		return nil, err
	}

	written, err := s.files.WriteFileAtomic(target, data, false)
	if errors.Is(err, files.ErrFileExists) {
		s.logger.InfoContext(ctx, "export target exists, awaiting confirmation", slog.String("path", written))
		return &ExportResult{FilePath: written, FileExisted: true}, nil
	}
	if err != nil {
		return nil, err
	}

	s.published(written, false)
	return &ExportResult{FilePath: written}, nil
}

// ForceExport writes body to filePath, replacing any existing file. An empty
// filePath uses the default target.
func (s *ExportService) ForceExport(ctx context.Context, body json.RawMessage, filePath string) (*ExportResult, error) {
	data, err := formatConfig(body)
	if err != nil {
		return nil, err
	}

	target := strings.TrimSpace(filePath)
	if target == "" {
		if target, err = s.defaultTarget(ctx); err != nil {
			return nil, err
		}
	}
	if !strings.EqualFold(filepath.Ext(target), ".json") {
		return nil, fmt.Errorf("%w: export path must end in .json", ErrInvalidInput)
	}

	written, err := s.files.WriteFileAtomic(target, data, true)
	if err != nil {
		return nil, err
	}

	s.published(written, true)
	return &ExportResult{FilePath: written, FileExisted: true}, nil
}

func (s *ExportService) defaultTarget(ctx context.Context) (string, error) {
	settings, err := s.settings.LoadSettings(ctx)
	if err != nil {
		return "", err
	}
	dir := strings.TrimSpace(settings.OutputPath)
	if dir == "" {
		dir = s.files.BaseDir()
	}
	return filepath.Join(dir, config.ExportFileName), nil
}

func (s *ExportService) published(path string, overwritten bool) {
	s.events.Broadcast(EventExport, map[string]interface{}{
		"file_path":   path,
		"overwritten": overwritten,
	})
}

// formatConfig validates body and indents it for people editing the file by hand
func formatConfig(body json.RawMessage) ([]byte, error) {
	if err := checkConfigBody(string(body)); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(body), "", "  "); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfigJSON, err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

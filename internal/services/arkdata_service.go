package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/files"
)

// ArkDataService loads the bundled game data (items, dinos, beacons)
type ArkDataService struct {
	files *files.Manager
	path  string
}

// NewArkDataService creates a service reading path through fm
func NewArkDataService(fm *files.Manager, path string) *ArkDataService {
	return &ArkDataService{files: fm, path: path}
}

// Read returns the game data object with a "Beacons" key always present
func (s *ArkDataService) Read(ctx context.Context) (map[string]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := s.files.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrArkDataNotFound, s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ark data: %w", err)
	}

	var data map[string]json.RawMessage
	if err := json.Unmarshal(raw, &data); err != nil || data == nil {
		return nil, ErrArkDataInvalid
	}
	if _, ok := data["Beacons"]; !ok {
		data["Beacons"] = json.RawMessage(`{}`)
	}
	return data, nil
}

package files

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// ErrFileExists is returned by WriteFileAtomic when overwrite is false and
// the destination already exists.
var ErrFileExists = errors.New("file already exists")

// Manager provides file management operations
type Manager struct {
	baseDir string
	logger  *slog.Logger
}

// NewManager creates a new file manager rooted at baseDir
func NewManager(baseDir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		baseDir: baseDir,
		logger:  logger.With(slog.String("component", "files")),
	}
}

// BaseDir returns the directory relative paths resolve against
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// FileExists checks if a regular file exists at the given path
func (m *Manager) FileExists(path string) bool {
	info, err := os.Stat(m.Resolve(path))
	return err == nil && !info.IsDir()
}

// ReadFile reads the entire content of a file
func (m *Manager) ReadFile(path string) ([]byte, error) {
	fullPath := m.Resolve(path)
	m.logger.Debug("reading file", slog.String("path", fullPath))
	return os.ReadFile(fullPath)
}

// WriteFileAtomic writes data to path through a temp file and rename. With
// overwrite false an existing file is left untouched and ErrFileExists is
// returned. The resolved path is returned in both cases.
func (m *Manager) WriteFileAtomic(path string, data []byte, overwrite bool) (string, error) {
	fullPath := m.Resolve(path)

	if !overwrite && m.FileExists(fullPath) {
		return fullPath, ErrFileExists
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fullPath, fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(fullPath)+".*.tmp")
	if err != nil {
		return fullPath, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op after a successful rename
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fullPath, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fullPath, fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fullPath, fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fullPath, fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		return fullPath, fmt.Errorf("failed to move file into place: %w", err)
	}

	m.logger.Info("file written",
		slog.String("path", fullPath),
		slog.Int("size_bytes", len(data)),
		slog.Bool("overwrite", overwrite),
	)
	return fullPath, nil
}

// EnsureDirectory creates a directory if it doesn't exist
func (m *Manager) EnsureDirectory(path string) error {
	return os.MkdirAll(m.Resolve(path), 0o755)
}

// Resolve returns path unchanged when absolute, otherwise joined to the base
func (m *Manager) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(m.baseDir, path)
}

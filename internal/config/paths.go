package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// resolvePaths anchors every relative path at Paths.BaseDir. When BaseDir is
// unset it becomes the directory of the running executable, never the
// current working directory.
func (c *Config) resolvePaths() error {
	if c.Paths.BaseDir == "" {
		dir, err := executableDir()
		if err != nil {
			return err
		}
		c.Paths.BaseDir = dir
	}

	for _, p := range []*string{
		&c.Paths.DataDir,
		&c.Paths.DatabaseFile,
		&c.Paths.ArkDataFile,
		&c.Paths.ExportDir,
		&c.Paths.LogsDir,
		&c.Paths.CrashFile,
		&c.Logging.FilePath,
	} {
		*p = c.resolve(*p)
	}
	return nil
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Paths.BaseDir, p)
}

func executableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}

	// Resolve symlinks to get the actual executable location
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}

	return filepath.Dir(exe), nil
}

// EnsureDirectories creates the directories the application writes into
func (c *Config) EnsureDirectories() error {
	directories := []string{
		c.Paths.DataDir,
		filepath.Dir(c.Paths.DatabaseFile),
		c.Paths.ExportDir,
		c.Paths.LogsDir,
	}

	for _, dir := range directories {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// LogPathResolution logs the resolved paths at startup
func (c *Config) LogPathResolution(logger *slog.Logger) {
	logger.Info("Resolved application paths",
		slog.String("base_dir", c.Paths.BaseDir),
		slog.String("database_file", c.Paths.DatabaseFile),
		slog.String("ark_data_file", c.Paths.ArkDataFile),
		slog.String("export_dir", c.Paths.ExportDir),
		slog.String("logs_dir", c.Paths.LogsDir))
}

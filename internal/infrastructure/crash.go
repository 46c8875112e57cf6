package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/config"
)

// PanicError is returned by CrashReporter.Run when the wrapped function
// panicked. The process is expected to exit after receiving it.
type PanicError struct {
	Scope string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Scope, e.Value)
}

// CrashReporter is the process-level fault barrier. It converts a panic
// into a JSON crash record appended to a file and an ordinary error.
type CrashReporter struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewCrashReporter creates a reporter writing to path. A nil logger falls
// back to the global logger for the one-line notice.
func NewCrashReporter(path string, logger *slog.Logger) *CrashReporter {
	if logger == nil {
		logger = GetLogger()
	}
	return &CrashReporter{path: path, logger: logger}
}

// Run calls fn and recovers any panic it raises. The recovered panic is
// recorded and returned as *PanicError; fn is never re-entered.
func (c *CrashReporter) Run(scope string, fn func() error) (err error) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		perr := &PanicError{Scope: scope, Value: rec, Stack: debug.Stack()}
		if werr := c.write(perr); werr != nil {
			c.logger.Error("failed to write crash record",
				slog.String("path", c.path),
				slog.String("error", werr.Error()))
		}
		c.logger.Error("unexpected fault, shutting down",
			slog.String("scope", scope),
			slog.String("panic", fmt.Sprint(rec)),
			slog.String("crash_file", c.path))
		err = perr
	}()
	return fn()
}

func (c *CrashReporter) write(perr *PanicError) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.path == "" {
		return fmt.Errorf("no crash file configured")
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(c.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	record := NewJSONLogger(f, &slog.HandlerOptions{Level: slog.LevelError})
	record.LogAttrs(context.Background(), slog.LevelError, "panic",
		slog.String("scope", perr.Scope),
		slog.String("panic", fmt.Sprint(perr.Value)),
		slog.String("stack", string(perr.Stack)),
		slog.String("version", config.AppVersion),
		slog.String("os", runtime.GOOS),
		slog.String("arch", runtime.GOARCH),
		slog.Time("crashed_at", time.Now().UTC()),
	)
	return nil
}

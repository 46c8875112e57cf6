package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// StartupState reports license startup progress
type StartupState interface {
	StartupChecked() bool
	Licensed() bool
}

// ClientCounter reports connected websocket clients
type ClientCounter interface {
	ClientCount() int
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	store     Pinger
	license   StartupState
	hub       ClientCounter
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a new health service
func NewHealthService(version string, store Pinger, license StartupState, hub ClientCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		store:     store,
		license:   license,
		hub:       hub,
		startTime: time.Now(),
		logger:    logger.With(slog.String("service", "health")),
	}
}

// Health reports liveness and build information
func (s *HealthService) Health(ctx context.Context) HealthStatus {
	rt := map[string]interface{}{
		"uptime_seconds": time.Since(s.startTime).Seconds(),
		"go_version":     runtime.Version(),
		"os":             runtime.GOOS,
		"arch":           runtime.GOARCH,
		"goroutines":     runtime.NumGoroutine(),
	}
	if s.hub != nil {
		rt["websocket_clients"] = s.hub.ClientCount()
	}
	return HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   s.version,
		Runtime:   rt,
	}
}

// Ready reports whether the store is reachable and the startup license
// check has finished. ready is false when either is not the case.
func (s *HealthService) Ready(ctx context.Context) (HealthStatus, bool) {
	services := make(map[string]ServiceHealth, 2)
	ready := true

	if err := s.store.Ping(ctx); err != nil {
		ready = false
		services["store"] = ServiceHealth{Status: "unhealthy", Message: err.Error()}
		s.logger.WarnContext(ctx, "store not reachable", slog.String("error", err.Error()))
	} else {
		services["store"] = ServiceHealth{Status: "healthy"}
	}

	switch {
	case !s.license.StartupChecked():
		ready = false
		services["license"] = ServiceHealth{Status: "pending", Message: "startup check not finished"}
	case s.license.Licensed():
		services["license"] = ServiceHealth{Status: "healthy", Message: "licensed"}
	default:
		services["license"] = ServiceHealth{Status: "healthy", Message: "not activated"}
	}

	status := "ready"
	if !ready {
		status = "not_ready"
	}
	return HealthStatus{
		Status:    status,
		Timestamp: time.Now(),
		Version:   s.version,
		Services:  services,
	}, ready
}

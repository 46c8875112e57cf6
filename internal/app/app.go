package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/config"
	apierrors "github.com/jonxmitchell/ark-asa-shop-config-generator/internal/errors"
	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/files"
	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/infrastructure"
	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/license"
	customMiddleware "github.com/jonxmitchell/ark-asa-shop-config-generator/internal/middleware"
	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/security"
	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/services"
	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/storage/bolt"
	handlers "github.com/jonxmitchell/ark-asa-shop-config-generator/internal/transport/http"
	ws "github.com/jonxmitchell/ark-asa-shop-config-generator/internal/websocket"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	Router        chi.Router
	Server        *http.Server
	Store         *bolt.Store
	Session       *license.Session
	WebSocketHub  *ws.Hub
	OTelProviders *infrastructure.OTelProviders
	Services      *ServiceContainer
	Crash         *infrastructure.CrashReporter
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	License *services.LicenseService
	Config  *services.ConfigService
	Export  *services.ExportService
	ArkData *services.ArkDataService
	Health  *services.HealthService
}

type options struct {
	device license.DeviceSource
	clock  license.Clock
	key    *license.Key
}

// Option customises NewApplication
type Option func(*options)

// WithDeviceSource replaces the hardware fingerprint
func WithDeviceSource(d license.DeviceSource) Option {
	return func(o *options) { o.device = d }
}

// WithClock replaces the wall clock used for license expiry
func WithClock(c license.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithKey replaces the built-in verification key
func WithKey(k license.Key) Option {
	return func(o *options) { o.key = &k }
}

// NewApplication builds every component and runs the startup license check
// before returning, so the first request already sees the final state.
func NewApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Application, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	logger.InfoContext(ctx, "application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion))
	cfg.LogPathResolution(logger)

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	providers, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	store, err := bolt.New(cfg.Paths.DatabaseFile, config.DatabaseOpenTimeout)
	if err != nil {
		_ = providers.Shutdown(ctx)
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Logger:        logger,
		Store:         store,
		OTelProviders: providers,
		Crash:         infrastructure.NewCrashReporter(cfg.Paths.CrashFile, logger),
	}
	if err := a.initialize(ctx, o); err != nil {
		_ = store.Close()
		_ = providers.Shutdown(ctx)
		return nil, err
	}
	return a, nil
}

func (a *Application) initialize(ctx context.Context, o options) error {
	device := o.device
	if device == nil {
		device = security.NewFingerprintManager(a.Logger)
	}
	key := license.DefaultKey()
	if o.key != nil {
		key = *o.key
	}

	sessionOpts := []license.Option{
		license.WithLogger(a.Logger),
		license.WithTracer(a.OTelProviders.Tracer),
		license.WithMeter(a.OTelProviders.Meter),
	}
	if o.clock != nil {
		sessionOpts = append(sessionOpts, license.WithClock(o.clock))
	}
	session, err := license.NewSession(license.NewVerifier(key), a.Store, device, sessionOpts...)
	if err != nil {
		return fmt.Errorf("failed to create license session: %w", err)
	}
	a.Session = session

	a.WebSocketHub = ws.NewHub(a.Logger,
		ws.WithMeter(a.OTelProviders.Meter),
		ws.WithGreeting(func() interface{} {
			return map[string]interface{}{"licensed": session.Licensed()}
		}),
	)

	exportFiles := files.NewManager(a.Config.Paths.ExportDir, a.Logger)
	a.Services = &ServiceContainer{
		License: services.NewLicenseService(session, a.WebSocketHub, a.Logger),
		Config:  services.NewConfigService(a.Store, a.WebSocketHub, a.Logger),
		Export:  services.NewExportService(exportFiles, a.Store, a.WebSocketHub, a.Logger),
		ArkData: services.NewArkDataService(files.NewManager(a.Config.Paths.DataDir, a.Logger), a.Config.Paths.ArkDataFile),
		Health:  services.NewHealthService(config.AppVersion, a.Store, session, a.WebSocketHub, a.Logger),
	}

	licensed, err := a.Services.License.StartupCheck(ctx)
	if err != nil {
		// The app still serves so the user can see the error and re-enter a key
		a.Logger.ErrorContext(ctx, "startup license check failed", slog.String("error", err.Error()))
	}
	a.Logger.InfoContext(ctx, "startup license check finished", slog.Bool("licensed", licensed))

	if err := a.setupRouter(); err != nil {
		return err
	}
	a.createServer()
	return nil
}

// setupRouter configures all routes and middleware
func (a *Application) setupRouter() error {
	cfg := a.Config
	mws := []func(http.Handler) http.Handler{
		customMiddleware.RequestID,
		customMiddleware.RealIP,
	}

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
	if err != nil {
		return fmt.Errorf("failed to create telemetry middleware: %w", err)
	}
	mws = append(mws,
		otelMiddleware.Handler,
		customMiddleware.StructuredLogger(a.Logger),
		customMiddleware.Recoverer(a.Logger),
		customMiddleware.SecurityHeaders,
	)
	if cfg.Security.EnableCORS {
		mws = append(mws, customMiddleware.CORS(customMiddleware.CORSConfig{
			AllowedOrigins: cfg.Security.AllowedOrigins,
			ExposedHeaders: []string{"X-Request-ID"},
			Logger:         a.Logger,
		}))
	}
	if cfg.Security.RateLimit.Enabled {
		mws = append(mws, customMiddleware.NewRateLimiter(cfg.Security.RateLimit.RPS, cfg.Security.RateLimit.Burst, a.Logger).Handler)
	}

	var licenseLimiter func(http.Handler) http.Handler
	if rl := cfg.Security.LicenseRateLimit; rl.Enabled {
		licenseLimiter = customMiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.Logger).Handler
	}

	validator := customMiddleware.NewValidator()
	errorHandler := apierrors.NewErrorHandler(a.Logger)

	a.Router = handlers.NewRouter(handlers.RouterConfig{
		License:   handlers.NewLicenseHandler(a.Services.License, validator, errorHandler, licenseLimiter, a.Logger),
		Config:    handlers.NewConfigHandler(a.Services.Config, validator, errorHandler, a.Logger),
		Export:    handlers.NewExportHandler(a.Services.Export, a.Services.ArkData, validator, errorHandler, a.Logger),
		Health:    handlers.NewHealthHandler(a.Services.Health),
		Metrics:   handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP),
		WebSocket: ws.NewHandler(a.WebSocketHub, cfg.WebSocket, cfg.Security.AllowedOrigins, a.Logger),
		Gate:      customMiddleware.NewLicenseGate(a.Services.License, a.OTelProviders.Meter, a.Logger),

		Middleware:     mws,
		RequestTimeout: cfg.Server.RequestTimeout,
	})
	return nil
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Addr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(a.Logger.Handler(), slog.LevelWarn),
	}
}

// Run listens on the configured address and serves until ctx is cancelled
// or the process receives SIGINT/SIGTERM.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		_ = a.close(context.Background())
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve runs the hub and HTTP server on ln until ctx is cancelled, then
// shuts everything down within Server.ShutdownTimeout.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)
	// A panic in any of these goroutines is recorded and returned as an
	// error, which cancels gctx and shuts the rest down.
	run := func(scope string, fn func() error) {
		g.Go(func() error { return a.Crash.Run(scope, fn) })
	}

	run("websocket_hub", func() error {
		return a.WebSocketHub.Run(gctx)
	})

	run("http_server", func() error {
		a.Logger.InfoContext(gctx, "server listening", slog.String("address", "http://"+ln.Addr().String()))
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	run("shutdown", func() error {
		<-gctx.Done()
		return a.Stop(context.Background())
	})

	return g.Wait()
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}
	errs = append(errs, a.close(shutdownCtx))

	a.Logger.InfoContext(ctx, "application shutdown complete")
	return errors.Join(errs...)
}

func (a *Application) close(ctx context.Context) error {
	var errs []error
	a.WebSocketHub.Stop()
	if err := a.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store close: %w", err))
	}
	if err := a.OTelProviders.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
	}
	return errors.Join(errs...)
}

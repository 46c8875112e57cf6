package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "github.com/jonxmitchell/ark-asa-shop-config-generator/internal/errors"
	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/middleware"
)

// ValidateLicenseRequest is the body of POST /api/license/validate
type ValidateLicenseRequest struct {
	LicenseKey string `json:"license_key" validate:"required,max=4096"`
}

// LicenseHandler serves the license commands
type LicenseHandler struct {
	service      LicenseService
	validator    *middleware.Validator
	errorHandler *apierrors.ErrorHandler
	limiter      func(http.Handler) http.Handler
	logger       *slog.Logger
}

// NewLicenseHandler creates a license handler. limiter, when non-nil, wraps
// the validate route only.
func NewLicenseHandler(service LicenseService, validator *middleware.Validator, errorHandler *apierrors.ErrorHandler, limiter func(http.Handler) http.Handler, logger *slog.Logger) *LicenseHandler {
	return &LicenseHandler{
		service:      service,
		validator:    validator,
		errorHandler: errorHandler,
		limiter:      limiter,
		logger:       logger.With(slog.String("handler", "license")),
	}
}

// Routes returns the license router
func (h *LicenseHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/device-id", h.DeviceID)
	r.Get("/state", h.State)
	r.Get("/info", h.Info)
	r.Post("/startup-check", h.StartupCheck)
	r.Group(func(r chi.Router) {
		if h.limiter != nil {
			r.Use(h.limiter)
		}
		r.Post("/validate", h.Validate)
	})
	return r
}

// DeviceID handles GET /api/license/device-id
func (h *LicenseHandler) DeviceID(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"device_id": h.service.DeviceID()})
}

// Validate handles POST /api/license/validate
func (h *LicenseHandler) Validate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ValidateLicenseRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	// Keys are usually pasted; the token itself never carries whitespace.
	outcome, err := h.service.Validate(ctx, strings.TrimSpace(req.LicenseKey))
	if err != nil {
		h.errorHandler.HandleError(w, r, mapError(err, "license"))
		return
	}
	if !outcome.Valid() {
		h.errorHandler.HandleError(w, r, rejection(outcome))
		return
	}

	render.JSON(w, r, map[string]bool{"valid": true})
}

// State handles GET /api/license/state
func (h *LicenseHandler) State(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]bool{"licensed": h.service.Licensed()})
}

// StartupCheck handles POST /api/license/startup-check
func (h *LicenseHandler) StartupCheck(w http.ResponseWriter, r *http.Request) {
	licensed, err := h.service.StartupCheck(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, mapError(err, "license"))
		return
	}
	render.JSON(w, r, map[string]bool{"licensed": licensed})
}

// Info handles GET /api/license/info
func (h *LicenseHandler) Info(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Info(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, mapError(err, "license"))
		return
	}
	render.JSON(w, r, info)
}

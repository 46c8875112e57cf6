package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "github.com/jonxmitchell/ark-asa-shop-config-generator/internal/errors"
	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/middleware"
	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/storage"
)

// SettingsRequest is the body of PUT /api/settings
type SettingsRequest struct {
	OutputPath       string `json:"output_path" validate:"max=1024"`
	AutoSaveEnabled  bool   `json:"auto_save_enabled"`
	AutoSaveInterval int    `json:"auto_save_interval" validate:"min=1,max=120"`
	ShowTooltips     bool   `json:"show_tooltips"`
}

// SaveConfigRequest is the body of POST /api/configs and PUT /api/configs/{id}
type SaveConfigRequest struct {
	Name   string          `json:"name" validate:"required,max=100"`
	Config json.RawMessage `json:"config" validate:"required"`
}

// ConfigBodyRequest carries just a config document
type ConfigBodyRequest struct {
	Config json.RawMessage `json:"config"`
}

// ExportPathsRequest is the body of PUT /api/configs/{id}/export-paths
type ExportPathsRequest struct {
	Paths []string `json:"paths" validate:"max=32,dive,max=1024"`
}

// ConfigHandler serves settings and saved configs
type ConfigHandler struct {
	service      ConfigService
	validator    *middleware.Validator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewConfigHandler creates a config handler
func NewConfigHandler(service ConfigService, validator *middleware.Validator, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *ConfigHandler {
	return &ConfigHandler{
		service:      service,
		validator:    validator,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "config")),
	}
}

// SettingsRoutes returns the /api/settings router
func (h *ConfigHandler) SettingsRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetSettings)
	r.Put("/", h.PutSettings)
	return r
}

// Routes returns the /api/configs router
func (h *ConfigHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/current", h.Current)
	r.Get("/exists", h.Exists)
	r.Post("/autosave", h.AutoSave)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)
		r.Put("/export-paths", h.UpdateExportPaths)
	})
	return r
}

// GetSettings handles GET /api/settings
func (h *ConfigHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.LoadSettings(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, mapError(err, "settings"))
		return
	}
	render.JSON(w, r, settings)
}

// PutSettings handles PUT /api/settings
func (h *ConfigHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if err := h.service.SaveSettings(r.Context(), storage.Settings(req)); err != nil {
		h.errorHandler.HandleError(w, r, mapError(err, "settings"))
		return
	}
	h.GetSettings(w, r)
}

// List handles GET /api/configs
func (h *ConfigHandler) List(w http.ResponseWriter, r *http.Request) {
	configs, err := h.service.ListConfigs(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, mapError(err, "config"))
		return
	}
	if configs == nil {
		configs = []*storage.SavedConfig{}
	}
	render.JSON(w, r, configs)
}

// Get handles GET /api/configs/{id}
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	cfg, err := h.service.GetConfig(r.Context(), id)
	if err != nil {
		h.errorHandler.HandleError(w, r, mapError(err, "config"))
		return
	}
	render.JSON(w, r, cfg)
}

// Current handles GET /api/configs/current
func (h *ConfigHandler) Current(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.CurrentConfig(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, mapError(err, "config"))
		return
	}
	render.JSON(w, r, cfg)
}

// Create handles POST /api/configs
func (h *ConfigHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req SaveConfigRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	cfg, err := h.service.SaveConfig(r.Context(), nil, req.Name, configText(req.Config))
	if err != nil {
		h.errorHandler.HandleError(w, r, mapError(err, "config"))
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, cfg)
}

// Update handles PUT /api/configs/{id}
func (h *ConfigHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	var req SaveConfigRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	cfg, err := h.service.SaveConfig(r.Context(), &id, req.Name, configText(req.Config))
	if err != nil {
		h.errorHandler.HandleError(w, r, mapError(err, "config"))
		return
	}
	render.JSON(w, r, cfg)
}

// Delete handles DELETE /api/configs/{id}
func (h *ConfigHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if err := h.service.DeleteConfig(r.Context(), id); err != nil {
		h.errorHandler.HandleError(w, r, mapError(err, "config"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Exists handles GET /api/configs/exists?name=
func (h *ConfigHandler) Exists(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if strings.TrimSpace(name) == "" {
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(http.StatusBadRequest, "INVALID_REQUEST", "name query parameter is required", "name"))
		return
	}
	exists, err := h.service.NameExists(r.Context(), name)
	if err != nil {
		h.errorHandler.HandleError(w, r, mapError(err, "config"))
		return
	}
	render.JSON(w, r, map[string]bool{"exists": exists})
}

// UpdateExportPaths handles PUT /api/configs/{id}/export-paths
func (h *ConfigHandler) UpdateExportPaths(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	var req ExportPathsRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if err := h.service.UpdateExportPaths(r.Context(), id, req.Paths); err != nil {
		h.errorHandler.HandleError(w, r, mapError(err, "config"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AutoSave handles POST /api/configs/autosave
func (h *ConfigHandler) AutoSave(w http.ResponseWriter, r *http.Request) {
	var req ConfigBodyRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	cfg, err := h.service.AutoSave(r.Context(), configText(req.Config))
	if err != nil {
		h.errorHandler.HandleError(w, r, mapError(err, "config"))
		return
	}
	render.JSON(w, r, cfg)
}

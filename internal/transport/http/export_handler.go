package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "github.com/jonxmitchell/ark-asa-shop-config-generator/internal/errors"
	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/middleware"
)

// ForceExportRequest is the body of POST /api/export/force
type ForceExportRequest struct {
	Config   json.RawMessage `json:"config"`
	FilePath string          `json:"file_path" validate:"required,max=1024"`
}

// ExportHandler writes configs to disk and serves the game data file
type ExportHandler struct {
	exports      ExportService
	arkData      ArkDataService
	validator    *middleware.Validator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewExportHandler creates an export handler
func NewExportHandler(exports ExportService, arkData ArkDataService, validator *middleware.Validator, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{
		exports:      exports,
		arkData:      arkData,
		validator:    validator,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "export")),
	}
}

// Routes returns the /api/export router
func (h *ExportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Export)
	r.Post("/force", h.ForceExport)
	return r
}

// Export handles POST /api/export
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	var req ConfigBodyRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	result, err := h.exports.Export(r.Context(), json.RawMessage(configText(req.Config)))
	if err != nil {
		h.errorHandler.HandleError(w, r, mapError(err, "export"))
		return
	}
	render.JSON(w, r, result)
}

// ForceExport handles POST /api/export/force
func (h *ExportHandler) ForceExport(w http.ResponseWriter, r *http.Request) {
	var req ForceExportRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	result, err := h.exports.ForceExport(r.Context(), json.RawMessage(configText(req.Config)), req.FilePath)
	if err != nil {
		h.errorHandler.HandleError(w, r, mapError(err, "export"))
		return
	}
	render.JSON(w, r, result)
}

// ArkData handles GET /api/ark-data
func (h *ExportHandler) ArkData(w http.ResponseWriter, r *http.Request) {
	data, err := h.arkData.Read(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, mapError(err, "ark data"))
		return
	}
	render.JSON(w, r, data)
}

package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/jonxmitchell/ark-asa-shop-config-generator/internal/errors"
	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/license"
	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/services"
	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/storage"
)

// mapError translates domain errors into API errors. Unknown errors pass
// through and become a 500 (or 504 for deadlines) in the error handler.
func mapError(err error, resource string) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return apierrors.NotFoundError(resource)
	case errors.Is(err, storage.ErrNameExists):
		return apierrors.ConflictError("A configuration with this name already exists")
	case errors.Is(err, license.ErrStoreUnavailable):
		return apierrors.StoreUnavailableError(err)
	case errors.Is(err, services.ErrEmptyConfig):
		return apierrors.New(http.StatusBadRequest, "EMPTY_CONFIG", "No configuration provided")
	case errors.Is(err, services.ErrInvalidConfigJSON):
		return apierrors.New(http.StatusBadRequest, "INVALID_CONFIG", "Configuration is not valid JSON")
	case errors.Is(err, services.ErrInvalidInput):
		return apierrors.NewWithDetails(http.StatusBadRequest, "INVALID_INPUT", "Invalid input", err.Error())
	case errors.Is(err, services.ErrArkDataNotFound):
		return apierrors.NotFoundError("ark data file")
	case errors.Is(err, services.ErrArkDataInvalid):
		return apierrors.New(http.StatusUnprocessableEntity, "ARK_DATA_INVALID", "Ark data file is not a JSON object")
	}
	return err
}

// rejection converts a failed verification into the problem the user sees.
// Keys that cannot be parsed are a bad request; well-formed keys that are
// refused are forbidden.
func rejection(outcome license.Outcome) error {
	status := http.StatusForbidden
	switch outcome.Reason {
	case license.ReasonMalformedEncoding, license.ReasonWrongFieldCount:
		status = http.StatusBadRequest
	}
	return apierrors.LicenseRejected(status, outcome.Reason.String(), outcome.Message())
}

func idParam(r *http.Request) (uint64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apierrors.NewWithDetails(http.StatusBadRequest, "INVALID_ID", "Config id must be a positive integer", raw)
	}
	return id, nil
}

// configText accepts a config either as a JSON document or as a JSON string
// holding the document, and returns the document text.
func configText(raw json.RawMessage) string {
	var s string
	if len(raw) > 0 && raw[0] == '"' && json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}

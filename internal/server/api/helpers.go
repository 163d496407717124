package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/intelvis/intelvis/internal/server/services"
	"github.com/intelvis/intelvis/pkg/models"
	"github.com/rs/zerolog/hlog"
)

// maxBodyBytes caps request bodies; every request here is a few small fields.
const maxBodyBytes = 1 << 16

func writeJSON(w http.ResponseWriter, data interface{}) error {
	return json.NewEncoder(w).Encode(data)
}

func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, data)
}

func respondErrorJSON(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, models.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}

// respondServiceError maps a service error onto the HTTP error taxonomy.
// Anything unrecognized is logged and answered with a generic 500.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Msg("request failed")
		respondErrorJSON(w, status, "internal server error")
		return
	}
	respondErrorJSON(w, status, err.Error())
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidEmail),
		errors.Is(err, services.ErrInvalidPassword),
		errors.Is(err, services.ErrInvalidMAC),
		errors.Is(err, services.ErrInvalidAlias):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidSession):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNICNotFound),
		errors.Is(err, services.ErrDeviceNotFound),
		errors.Is(err, services.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrAlreadyClaimed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

// decodeAndValidate reads the body into v and runs struct validation. On
// failure it writes the 400 itself and returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := decodeJSON(w, r, v); err != nil {
		respondErrorJSON(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validateRequest(v); err != nil {
		respondErrorJSON(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ItIsGreg/Raki-sub002/pkg/api"
	"github.com/ItIsGreg/Raki-sub002/pkg/constants"
	"github.com/ItIsGreg/Raki-sub002/pkg/models"
	"github.com/ItIsGreg/Raki-sub002/pkg/store"
	"github.com/rs/zerolog"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	if payload == nil || status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

func respondError(w http.ResponseWriter, status int, message string, reasons ...string) {
	respondJSON(w, status, api.ErrorResponse{Detail: message, Reasons: reasons})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "Invalid request payload", err.Error())
		return false
	}
	return true
}

// respondStoreError maps the shared error vocabulary onto status codes.
func respondStoreError(w http.ResponseWriter, log zerolog.Logger, err error) {
	var (
		verr      *models.ValidationError
		integrity *store.IntegrityError
	)
	switch {
	case errors.As(err, &verr):
		respondError(w, http.StatusUnprocessableEntity, verr.Error(), verr.Reasons...)
	case errors.As(err, &integrity):
		respondError(w, http.StatusUnprocessableEntity, integrity.Error(), integrity.Reason)
	case errors.Is(err, constants.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, constants.ErrConflict):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, constants.ErrForbidden):
		respondError(w, http.StatusForbidden, "Not enough permissions")
	case errors.Is(err, constants.ErrStorageFull):
		respondError(w, http.StatusInsufficientStorage, "Storage is full")
	case errors.Is(err, constants.ErrReadOnly):
		respondError(w, http.StatusServiceUnavailable, "Server is in read-only maintenance mode")
	default:
		log.Error().Err(err).Msg("request failed")
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/benmeehan/qtracker/internal/models"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, errorResponse{Error: message})
}

// respondErr maps domain errors to HTTP statuses.
func (s *Server) respondErr(w http.ResponseWriter, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Message, Field: verr.Field})
	case errors.Is(err, models.ErrVenueNotFound):
		s.respondError(w, http.StatusNotFound, "Club not found")
	case errors.Is(err, models.ErrRefreshInProgress):
		s.respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrInvalidCredentials):
		s.respondError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, models.ErrLocationUnavailable):
		s.respondError(w, http.StatusServiceUnavailable, "Location unavailable")
	default:
		s.logger.Error().Err(err).Msg("Request failed")
		s.respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeJSON reads a size-limited JSON body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return models.NewValidationError("body", "Malformed JSON body")
	}
	return nil
}

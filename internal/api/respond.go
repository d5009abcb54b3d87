package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"office-action-orchestrator/internal/backend"
	"office-action-orchestrator/internal/domain"
)

const (
	genericErrorMessage   = "Internal server error! Please try again."
	sessionExpiredMessage = "Your session has expired. Please sign in again."
	maxJSONBodyBytes      = 1 << 20
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError is the one place errors become status codes. Server messages
// from 400 answers are passed through verbatim; everything unexpected gets
// the generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		reqErr   *backend.RequestError
		fieldErr *domain.FieldError
	)
	switch {
	case errors.Is(err, domain.ErrSessionInvalid):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: sessionExpiredMessage})
	case errors.As(err, &reqErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: reqErr.Message})
	case errors.As(err, &fieldErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fieldErr.Message, Field: fieldErr.Field})
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrUnknownField), errors.Is(err, domain.ErrUnsupportedUpload):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrGateLocked):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, domain.ErrMalformedPayload):
		log.Warn().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg("malformed backend payload")
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "unexpected response from server"})
	default:
		log.Error().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Str("path", r.URL.Path).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: genericErrorMessage})
	}
}

// decodeJSON rejects unknown fields and trailing data, then applies the
// struct's validate tags.
func decodeJSON(r *http.Request, out any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", domain.ErrInvalidInput, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: invalid json: %v", domain.ErrInvalidInput, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("%w: unexpected trailing data", domain.ErrInvalidInput)
	}
	return domain.ValidateInput(out)
}

package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ersonp/loremaster/internal/domain/entities"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// statusFor maps contract errors to HTTP statuses. Anything unrecognized is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, entities.ErrGameNotFound),
		errors.Is(err, entities.ErrCharacterNotFound),
		errors.Is(err, entities.ErrProposalNotFound):
		return http.StatusNotFound
	case errors.Is(err, entities.ErrNoContentToAccept),
		errors.Is(err, entities.ErrNoContentToEdit),
		errors.Is(err, entities.ErrContentPending),
		errors.Is(err, entities.ErrGenerationInProgress),
		errors.Is(err, entities.ErrProposalResolved),
		errors.Is(err, entities.ErrCharacterExists):
		return http.StatusConflict
	case errors.Is(err, entities.ErrEmptyContent),
		errors.Is(err, entities.ErrUnknownAction),
		errors.Is(err, entities.ErrInvalidPlaybackMode),
		errors.Is(err, entities.ErrInvalidView),
		errors.Is(err, entities.ErrCharacterRequired),
		errors.Is(err, entities.ErrInvalidDimension),
		errors.Is(err, entities.ErrInvalidOperator),
		errors.Is(err, entities.ErrDimensionOutOfRange),
		errors.Is(err, entities.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		a.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeJSONError(w, status, "internal error")
		return
	}
	writeJSONError(w, status, err.Error())
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: request body: %v", entities.ErrInvalidInput, err)
	}
	return nil
}

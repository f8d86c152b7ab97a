package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kdimtricp/budgetmanager/internal/ai"
	"github.com/kdimtricp/budgetmanager/internal/database"
	"github.com/kdimtricp/budgetmanager/internal/review"
	"github.com/kdimtricp/budgetmanager/internal/storage"
	"go.uber.org/zap"
)

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Success: false, Error: message})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var convErr *ai.ConversionError
	var extErr *ai.ExtractionError

	switch {
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, review.ErrSessionClosed):
		return http.StatusConflict
	case errors.Is(err, review.ErrMissingAssignment),
		errors.Is(err, review.ErrSupplierUnconfirmed),
		errors.Is(err, database.ErrProjectNotFound),
		errors.Is(err, database.ErrSupplierNotFound),
		errors.As(err, &convErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrUnsupportedType):
		return http.StatusBadRequest
	case errors.As(err, &extErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (app *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		app.Logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeError(w, status, err.Error())
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(dst)
}

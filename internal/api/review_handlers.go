package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kdimtricp/budgetmanager/internal/models"
	"github.com/kdimtricp/budgetmanager/internal/review"
)

type createSessionRequest struct {
	OCRProcessingID string                   `json:"ocrProcessingId"`
	ExtractedData   *models.ExtractedInvoice `json:"extractedData"`
}

func (app *App) CreateReviewSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.OCRProcessingID) == "" {
		writeError(w, http.StatusBadRequest, "ocrProcessingId is required")
		return
	}

	session, err := app.Reviews.CreateSession(r.Context(), req.OCRProcessingID, req.ExtractedData)
	if err != nil {
		app.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"sessionId": session.ID})
}

func (app *App) GetReviewSessionHandler(w http.ResponseWriter, r *http.Request) {
	session, err := app.Reviews.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		app.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (app *App) ApproveReviewSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req review.ApprovalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := app.Reviews.Approve(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		app.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (app *App) RejectReviewSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := app.Reviews.Reject(r.Context(), id); err != nil {
		app.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"sessionId": id, "status": string(models.ReviewRejected)})
}

func (app *App) CheckDuplicatesHandler(w http.ResponseWriter, r *http.Request) {
	var q review.DuplicateQuery
	if err := decodeJSON(r, &q); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, app.Reviews.CheckDuplicates(r.Context(), q))
}

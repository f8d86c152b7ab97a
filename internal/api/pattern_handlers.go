package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kdimtricp/budgetmanager/internal/patterns"
)

type analyzeRequest struct {
	// RawText may be any JSON value; non-strings are stringified.
	RawText json.RawMessage `json:"rawText"`
}

type analyzeResponse struct {
	Detected   patterns.DetectedPatterns  `json:"detected"`
	Candidates []patterns.ScoredCandidate `json:"candidates"`
}

type learnRequest struct {
	RawText     json.RawMessage      `json:"rawText"`
	Corrections patterns.Corrections `json:"corrections"`
}

func (app *App) GetSupplierPatternHandler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	pattern, err := app.Patterns.GetPattern(r.Context(), name)
	if err != nil {
		app.fail(w, r, err)
		return
	}
	if pattern == nil {
		writeError(w, http.StatusNotFound, "No pattern for supplier")
		return
	}
	writeJSON(w, http.StatusOK, pattern)
}

func (app *App) AnalyzePatternsHandler(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	detected := patterns.AnalyzeText(patterns.TextFromJSON(req.RawText))
	writeJSON(w, http.StatusOK, analyzeResponse{
		Detected:   detected,
		Candidates: patterns.RankCandidates(detected.SupplierNames),
	})
}

func (app *App) LearnPatternHandler(w http.ResponseWriter, r *http.Request) {
	var req learnRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	pattern, err := app.Patterns.Learn(r.Context(), patterns.TextFromJSON(req.RawText), req.Corrections)
	if err != nil {
		app.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"pattern": pattern,
		"stored":  pattern.ID != "",
	})
}

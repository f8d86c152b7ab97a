package api

import (
	"net/http"
	"time"
)

// CleanupTempHandler removes stale rasterizer output. maxAge may be passed as
// a query parameter, e.g. ?maxAge=6h.
func (app *App) CleanupTempHandler(w http.ResponseWriter, r *http.Request) {
	if app.TempCleaner == nil {
		writeError(w, http.StatusServiceUnavailable, "rasterizer not configured")
		return
	}
	maxAge := app.TempMaxAge
	if v := r.URL.Query().Get("maxAge"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "maxAge must be a positive duration")
			return
		}
		maxAge = d
	}

	removed, err := app.TempCleaner.CleanupTempFiles(maxAge)
	if err != nil {
		app.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed, "maxAge": maxAge.String()})
}

func (app *App) BudgetSyncHandler(w http.ResponseWriter, r *http.Request) {
	corrections := app.Budgets.SyncOnce(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"projects":    len(app.Budgets.Touched()),
		"corrections": corrections,
	})
}

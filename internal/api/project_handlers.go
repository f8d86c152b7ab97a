package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kdimtricp/budgetmanager/internal/database"
	"github.com/kdimtricp/budgetmanager/internal/export"
	"github.com/kdimtricp/budgetmanager/internal/models"
	"github.com/shopspring/decimal"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type createProjectRequest struct {
	Name          string          `json:"name"`
	PlannedBudget decimal.Decimal `json:"plannedBudget"`
}

func (app *App) CreateProjectHandler(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.PlannedBudget.IsNegative() {
		writeError(w, http.StatusBadRequest, "plannedBudget must not be negative")
		return
	}

	project := models.NewProject(name, req.PlannedBudget.Round(2))
	if err := app.Ledger.CreateProject(r.Context(), project); err != nil {
		app.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (app *App) ListProjectsHandler(w http.ResponseWriter, r *http.Request) {
	projects, err := app.Ledger.ListProjects(r.Context())
	if err != nil {
		app.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (app *App) GetProjectHandler(w http.ResponseWriter, r *http.Request) {
	project, ok := app.loadProject(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (app *App) ExportPositionsHandler(w http.ResponseWriter, r *http.Request) {
	project, ok := app.loadProject(w, r)
	if !ok {
		return
	}

	positions, err := app.Ledger.ProjectPositions(r.Context(), project.ID)
	if err != nil {
		app.fail(w, r, err)
		return
	}
	data, err := export.ProjectPositionsXLSX(project, positions)
	if err != nil {
		app.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="positions-%s.xlsx"`, project.ID))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (app *App) loadProject(w http.ResponseWriter, r *http.Request) (*models.Project, bool) {
	project, err := app.Ledger.GetProject(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, database.ErrProjectNotFound) {
		writeError(w, http.StatusNotFound, "Project not found")
		return nil, false
	}
	if err != nil {
		app.fail(w, r, err)
		return nil, false
	}
	return project, true
}

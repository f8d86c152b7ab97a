package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kdimtricp/budgetmanager/internal/budgetsync"
	"github.com/kdimtricp/budgetmanager/internal/database"
	"github.com/kdimtricp/budgetmanager/internal/patterns"
	"github.com/kdimtricp/budgetmanager/internal/processing"
	"github.com/kdimtricp/budgetmanager/internal/review"
	"github.com/kdimtricp/budgetmanager/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const uploadField = "invoice"

type Processor interface {
	Process(ctx context.Context, doc processing.Document) (*processing.Result, error)
}

type TempCleaner interface {
	CleanupTempFiles(maxAge time.Duration) (int, error)
}

type App struct {
	Storage       storage.Storage
	Pipeline      Processor
	Reviews       *review.Service
	Patterns      *patterns.Service
	Ledger        *database.LedgerRepo
	Budgets       *budgetsync.Service
	TempCleaner   TempCleaner
	Gatherer      prometheus.Gatherer
	MaxUploadSize int64
	TempMaxAge    time.Duration
	Logger        *zap.Logger
}

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

func (app *App) UploadHandler(w http.ResponseWriter, r *http.Request) {
	if app.Pipeline == nil {
		writeError(w, http.StatusServiceUnavailable, "invoice processing not configured")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, app.MaxUploadSize)

	if err := r.ParseMultipartForm(app.MaxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Expected a multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to get file")
		return
	}
	defer file.Close()

	filename, err := app.Storage.SaveFile(file, storage.FileInfo{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	})
	if err != nil {
		app.fail(w, r, err)
		return
	}

	path, err := app.Storage.GetFilePath(filename)
	if err != nil {
		app.fail(w, r, err)
		return
	}

	result, err := app.Pipeline.Process(r.Context(), processing.Document{Path: path, Filename: header.Filename})
	if err != nil {
		// no OCR record points at the file
		if rmErr := app.Storage.DeleteFile(filename); rmErr != nil {
			app.Logger.Warn("failed to remove upload", zap.String("file", filename), zap.Error(rmErr))
		}
		app.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

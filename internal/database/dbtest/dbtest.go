// Package dbtest opens migrated throwaway databases for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kdimtricp/budgetmanager/internal/database"
	"github.com/kdimtricp/budgetmanager/internal/models"
	"github.com/shopspring/decimal"
)

// NewSQLite returns a migrated sqlite database in the test's temp dir.
func NewSQLite(t testing.TB) *database.DB {
	t.Helper()

	db, err := database.NewDB(database.Config{
		Type:       database.TypeSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "budget_test.db"),
	})
	if err != nil {
		t.Fatalf("Failed to open sqlite database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := database.NewMigrator(db, nil).Run(context.Background()); err != nil {
		t.Fatalf("Failed to migrate sqlite database: %v", err)
	}
	return db
}

// SeedOCR inserts an OCR record so review sessions can reference it.
func SeedOCR(t testing.TB, db *database.DB, rawText string) *models.OCRProcessing {
	t.Helper()
	rec := &models.OCRProcessing{
		Filename: "invoice.pdf",
		RawText:  rawText,
		Engine:   "openai",
		Model:    "gpt-4o",
	}
	if err := database.NewOCRRepo(db).Create(context.Background(), rec); err != nil {
		t.Fatalf("Failed to seed ocr record: %v", err)
	}
	return rec
}

func SeedProject(t testing.TB, db *database.DB, name string, planned string) *models.Project {
	t.Helper()
	p := models.NewProject(name, decimal.RequireFromString(planned))
	if err := database.NewLedgerRepo(db).CreateProject(context.Background(), p); err != nil {
		t.Fatalf("Failed to seed project: %v", err)
	}
	return p
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kdimtricp/budgetmanager/internal/models"
)

type OCRRepo struct {
	db *DB
}

func NewOCRRepo(db *DB) *OCRRepo {
	return &OCRRepo{db: db}
}

const ocrColumns = `id, filename, raw_text, detected_supplier_name, confidence, engine, model,
	processing_time_ms, ai_analysis, created_at`

func (r *OCRRepo) Create(ctx context.Context, rec *models.OCRProcessing) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := r.db.Rebind(`INSERT INTO ocr_processing (` + ocrColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.db.conn.ExecContext(ctx, query,
		rec.ID,
		rec.Filename,
		rec.RawText,
		rec.DetectedSupplierName,
		rec.Confidence,
		rec.Engine,
		rec.Model,
		rec.ProcessingTimeMS,
		nullableText(rec.AIAnalysis),
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert ocr processing: %w", err)
	}
	return nil
}

func (r *OCRRepo) GetByID(ctx context.Context, id string) (*models.OCRProcessing, error) {
	query := r.db.Rebind(`SELECT ` + ocrColumns + ` FROM ocr_processing WHERE id = ?`)
	rec, err := scanOCR(r.db.conn.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ocr processing: %w", err)
	}
	return rec, nil
}

func (r *OCRRepo) ListRecent(ctx context.Context, limit int) ([]models.OCRProcessing, error) {
	if limit <= 0 {
		limit = 10
	}
	query := r.db.Rebind(`SELECT ` + ocrColumns + ` FROM ocr_processing ORDER BY created_at DESC LIMIT ?`)

	rows, err := r.db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ocr processing: %w", err)
	}
	defer rows.Close()

	var out []models.OCRProcessing
	for rows.Next() {
		rec, err := scanOCR(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ocr processing: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOCR(row rowScanner) (*models.OCRProcessing, error) {
	var rec models.OCRProcessing
	var analysis sql.NullString
	err := row.Scan(
		&rec.ID,
		&rec.Filename,
		&rec.RawText,
		&rec.DetectedSupplierName,
		&rec.Confidence,
		&rec.Engine,
		&rec.Model,
		&rec.ProcessingTimeMS,
		&analysis,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if analysis.Valid {
		rec.AIAnalysis = []byte(analysis.String)
	}
	return &rec, nil
}

func nullableText(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kdimtricp/budgetmanager/internal/models"
)

// PatternRepo stores supplier patterns. Several rows may exist for one
// supplier name; readers pick the one with the highest success rate.
type PatternRepo struct {
	db *DB
}

func NewPatternRepo(db *DB) *PatternRepo {
	return &PatternRepo{db: db}
}

const patternColumns = `id, supplier_name, confidence, strategies, custom_prompt,
	learning_sessions, success_rate, created_at, updated_at`

func (r *PatternRepo) SavePattern(ctx context.Context, p *models.SupplierPattern) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	strategies := p.Strategies
	if strategies == nil {
		strategies = []models.PositionStrategy{}
	}
	strategiesJSON, err := json.Marshal(strategies)
	if err != nil {
		return fmt.Errorf("failed to marshal strategies: %w", err)
	}

	query := r.db.Rebind(`INSERT INTO supplier_patterns (` + patternColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err = r.db.conn.ExecContext(ctx, query,
		p.ID,
		p.SupplierName,
		p.Confidence,
		string(strategiesJSON),
		p.CustomPrompt,
		p.LearningSessions,
		p.SuccessRate,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert supplier pattern: %w", err)
	}
	return nil
}

// GetBestPattern returns (nil, nil) when the supplier has no pattern.
func (r *PatternRepo) GetBestPattern(ctx context.Context, supplierName string) (*models.SupplierPattern, error) {
	query := r.db.Rebind(`SELECT ` + patternColumns + ` FROM supplier_patterns
		WHERE supplier_name = ?
		ORDER BY success_rate DESC, created_at DESC
		LIMIT 1`)

	p, err := scanPattern(r.db.conn.QueryRowContext(ctx, query, supplierName))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get supplier pattern: %w", err)
	}
	return p, nil
}

func (r *PatternRepo) UpdatePatternScore(ctx context.Context, id string, successRate float64, learningSessions int) error {
	query := r.db.Rebind(`UPDATE supplier_patterns
		SET success_rate = ?, learning_sessions = ?, updated_at = ?
		WHERE id = ?`)

	res, err := r.db.conn.ExecContext(ctx, query, successRate, learningSessions, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update supplier pattern: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PatternRepo) ListBySupplier(ctx context.Context, supplierName string) ([]models.SupplierPattern, error) {
	query := r.db.Rebind(`SELECT ` + patternColumns + ` FROM supplier_patterns
		WHERE supplier_name = ?
		ORDER BY success_rate DESC, created_at DESC`)

	rows, err := r.db.conn.QueryContext(ctx, query, supplierName)
	if err != nil {
		return nil, fmt.Errorf("failed to list supplier patterns: %w", err)
	}
	defer rows.Close()

	var out []models.SupplierPattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan supplier pattern: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func scanPattern(row rowScanner) (*models.SupplierPattern, error) {
	var p models.SupplierPattern
	var strategies string
	err := row.Scan(
		&p.ID,
		&p.SupplierName,
		&p.Confidence,
		&strategies,
		&p.CustomPrompt,
		&p.LearningSessions,
		&p.SuccessRate,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(strategies), &p.Strategies); err != nil {
		return nil, fmt.Errorf("failed to unmarshal strategies: %w", err)
	}
	return &p, nil
}

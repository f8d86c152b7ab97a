package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kdimtricp/budgetmanager/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ReviewRepo struct {
	db *DB
}

func NewReviewRepo(db *DB) *ReviewRepo {
	return &ReviewRepo{db: db}
}

func (r *ReviewRepo) Create(ctx context.Context, session *models.ReviewSession) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if session.Status == "" {
		session.Status = models.ReviewPending
	}
	// JSON columns are never NULL
	if len(session.ExtractedData) == 0 {
		session.ExtractedData = datatypes.JSON("{}")
	}
	if len(session.EditedData) == 0 {
		session.EditedData = datatypes.JSON("null")
	}
	if err := r.db.GORM().WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("failed to insert review session: %w", err)
	}
	return nil
}

func (r *ReviewRepo) GetByID(ctx context.Context, id string) (*models.ReviewSession, error) {
	var session models.ReviewSession
	err := r.db.GORM().WithContext(ctx).First(&session, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get review session: %w", err)
	}
	return &session, nil
}

// Reject closes a pending session without touching the ledger.
func (r *ReviewRepo) Reject(ctx context.Context, id string) error {
	res := r.db.GORM().WithContext(ctx).Model(&models.ReviewSession{}).
		Where("id = ? AND status = ?", id, models.ReviewPending).
		Updates(map[string]any{
			"status":     models.ReviewRejected,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to reject review session: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrSessionNotPending
}

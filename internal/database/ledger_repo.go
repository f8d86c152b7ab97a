package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kdimtricp/budgetmanager/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LedgerRepo owns projects, suppliers, invoices and their positions.
type LedgerRepo struct {
	db *DB
}

func NewLedgerRepo(db *DB) *LedgerRepo {
	return &LedgerRepo{db: db}
}

func (r *LedgerRepo) CreateProject(ctx context.Context, project *models.Project) error {
	if project.ID == "" {
		project.ID = uuid.New().String()
	}
	if err := r.db.GORM().WithContext(ctx).Create(project).Error; err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

func (r *LedgerRepo) GetProject(ctx context.Context, id string) (*models.Project, error) {
	var project models.Project
	err := r.db.GORM().WithContext(ctx).First(&project, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &project, nil
}

func (r *LedgerRepo) ListProjects(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	if err := r.db.GORM().WithContext(ctx).Order("name ASC").Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

func (r *LedgerRepo) GetSupplier(ctx context.Context, id string) (*models.Supplier, error) {
	var supplier models.Supplier
	err := r.db.GORM().WithContext(ctx).First(&supplier, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSupplierNotFound
		}
		return nil, fmt.Errorf("failed to get supplier: %w", err)
	}
	return &supplier, nil
}

func (r *LedgerRepo) CreateSupplier(ctx context.Context, supplier *models.Supplier) error {
	if supplier.ID == "" {
		supplier.ID = uuid.New().String()
	}
	if err := r.db.GORM().WithContext(ctx).Create(supplier).Error; err != nil {
		return fmt.Errorf("failed to insert supplier: %w", err)
	}
	return nil
}

// Approval is everything committed when a review session is approved.
type Approval struct {
	SessionID string
	// SupplierID selects an existing supplier. When empty Supplier.Name is
	// looked up case-insensitively and created if missing.
	SupplierID string
	Supplier   models.Supplier
	Invoice    models.Invoice
	Positions  []models.InvoicePosition
	EditedData []byte
}

// ApproveInvoice commits an approval in one transaction: the session is
// claimed, the invoice and its positions are inserted and each position's net
// amount is added to its project's consumed budget. Any failure rolls back
// all of it.
func (r *LedgerRepo) ApproveInvoice(ctx context.Context, approval Approval) (*models.Invoice, error) {
	invoice := approval.Invoice
	edited := approval.EditedData
	if len(edited) == 0 {
		edited = []byte("null")
	}
	positions := make([]models.InvoicePosition, len(approval.Positions))
	copy(positions, approval.Positions)

	err := r.db.GORM().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()

		supplier, err := resolveSupplier(tx, approval, now)
		if err != nil {
			return err
		}

		invoice.ID = uuid.New().String()
		invoice.SupplierID = supplier.ID
		invoice.SupplierName = supplier.Name
		invoice.ReviewSessionID = approval.SessionID
		invoice.CreatedAt = now
		if err := tx.Create(&invoice).Error; err != nil {
			return fmt.Errorf("failed to insert invoice: %w", err)
		}

		claimed := tx.Model(&models.ReviewSession{}).
			Where("id = ? AND status = ?", approval.SessionID, models.ReviewPending).
			Updates(map[string]any{
				"status":      models.ReviewApproved,
				"edited_data": datatypes.JSON(edited),
				"invoice_id":  invoice.ID,
				"approved_at": now,
				"updated_at":  now,
			})
		if claimed.Error != nil {
			return fmt.Errorf("failed to update review session: %w", claimed.Error)
		}
		if claimed.RowsAffected == 0 {
			return ErrSessionNotPending
		}

		for i := range positions {
			pos := &positions[i]

			updated := tx.Model(&models.Project{}).
				Where("id = ?", pos.ProjectID).
				UpdateColumns(map[string]any{
					// sqlite keeps NUMERIC as REAL; round back to cents
					"consumed_budget": gorm.Expr("ROUND(consumed_budget + ?, 2)", pos.NetAmount.Round(2)),
					"updated_at":      now,
				})
			if updated.Error != nil {
				return fmt.Errorf("failed to update project budget: %w", updated.Error)
			}
			if updated.RowsAffected == 0 {
				return fmt.Errorf("%w: %s", ErrProjectNotFound, pos.ProjectID)
			}

			pos.ID = uuid.New().String()
			pos.InvoiceID = invoice.ID
			pos.CreatedAt = now
			if err := tx.Create(pos).Error; err != nil {
				return fmt.Errorf("failed to insert invoice position %d: %w", pos.PositionIndex, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func resolveSupplier(tx *gorm.DB, approval Approval, now time.Time) (*models.Supplier, error) {
	var supplier models.Supplier

	if approval.SupplierID != "" {
		err := tx.First(&supplier, "id = ?", approval.SupplierID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSupplierNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get supplier: %w", err)
		}
		return &supplier, nil
	}

	name := strings.TrimSpace(approval.Supplier.Name)
	if name == "" {
		return nil, ErrSupplierNotFound
	}

	err := tx.Where("LOWER(name) = LOWER(?)", name).Order("created_at ASC").First(&supplier).Error
	if err == nil {
		return &supplier, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to find supplier: %w", err)
	}

	supplier = approval.Supplier
	supplier.ID = uuid.New().String()
	supplier.Name = name
	supplier.CreatedAt = now
	supplier.UpdatedAt = now
	if err := tx.Create(&supplier).Error; err != nil {
		return nil, fmt.Errorf("failed to insert supplier: %w", err)
	}
	return &supplier, nil
}

// FindInvoicesByNumber returns invoices of a supplier carrying the given
// number. Supplier names compare case-insensitively.
func (r *LedgerRepo) FindInvoicesByNumber(ctx context.Context, supplierName, number string) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.GORM().WithContext(ctx).
		Where("LOWER(supplier_name) = LOWER(?) AND invoice_number = ?", strings.TrimSpace(supplierName), strings.TrimSpace(number)).
		Order("created_at DESC").
		Find(&invoices).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find invoices: %w", err)
	}
	return invoices, nil
}

func (r *LedgerRepo) RecentInvoices(ctx context.Context, since time.Time, limit int) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.GORM().WithContext(ctx).
		Where("created_at >= ?", since.UTC()).
		Order("created_at DESC").
		Limit(limit).
		Find(&invoices).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent invoices: %w", err)
	}
	return invoices, nil
}

func (r *LedgerRepo) RecentPositions(ctx context.Context, since time.Time, limit int) ([]models.InvoicePosition, error) {
	var positions []models.InvoicePosition
	err := r.db.GORM().WithContext(ctx).
		Where("created_at >= ?", since.UTC()).
		Order("created_at DESC").
		Limit(limit).
		Find(&positions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent positions: %w", err)
	}
	return positions, nil
}

func (r *LedgerRepo) ProjectPositions(ctx context.Context, projectID string) ([]models.InvoicePosition, error) {
	var positions []models.InvoicePosition
	err := r.db.GORM().WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC, position_index ASC").
		Find(&positions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list project positions: %w", err)
	}
	return positions, nil
}

// BudgetCorrection reports a consumed budget that disagreed with the sum of
// the project's positions.
type BudgetCorrection struct {
	ProjectID string
	Before    decimal.Decimal
	After     decimal.Decimal
}

// RecomputeConsumedBudget sets consumed_budget to the sum of the project's
// position net amounts. It returns nil when nothing had to change.
func (r *LedgerRepo) RecomputeConsumedBudget(ctx context.Context, projectID string) (*BudgetCorrection, error) {
	var correction *BudgetCorrection

	err := r.db.GORM().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.First(&project, "id = ?", projectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProjectNotFound
			}
			return fmt.Errorf("failed to get project: %w", err)
		}

		var sum decimal.Decimal
		err := tx.Model(&models.InvoicePosition{}).
			Where("project_id = ?", projectID).
			Select("COALESCE(SUM(net_amount), 0)").
			Row().Scan(&sum)
		if err != nil {
			return fmt.Errorf("failed to sum positions: %w", err)
		}
		sum = sum.Round(2)

		if project.ConsumedBudget.Equal(sum) {
			return nil
		}

		err = tx.Model(&models.Project{}).Where("id = ?", projectID).
			UpdateColumns(map[string]any{"consumed_budget": sum, "updated_at": time.Now().UTC()}).Error
		if err != nil {
			return fmt.Errorf("failed to update consumed budget: %w", err)
		}
		correction = &BudgetCorrection{ProjectID: projectID, Before: project.ConsumedBudget, After: sum}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return correction, nil
}

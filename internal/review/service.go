// Package review runs the human approval step between AI extraction and the
// project ledger.
package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kdimtricp/budgetmanager/internal/database"
	"github.com/kdimtricp/budgetmanager/internal/metrics"
	"github.com/kdimtricp/budgetmanager/internal/models"
	"go.uber.org/zap"
)

var (
	ErrMissingAssignment   = errors.New("every position needs a project assignment")
	ErrSupplierUnconfirmed = errors.New("supplier is not confirmed")
	ErrSessionClosed       = errors.New("review session is no longer pending")
)

// OutcomeRecorder receives whether the reviewer had to correct the supplier.
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, supplierName string, corrected bool) error
}

// BudgetToucher is told which projects an approval changed.
type BudgetToucher interface {
	Touch(projectIDs ...string)
}

type ApprovalRequest struct {
	// EditedData replaces the extracted invoice when set.
	EditedData *models.ExtractedInvoice `json:"editedData"`
	// ProjectAssignments maps position index to project ID.
	ProjectAssignments map[int]string `json:"projectAssignments"`
	SupplierID         string         `json:"supplierId"`
	SupplierConfirmed  bool           `json:"supplierConfirmed"`
}

type ApprovalResult struct {
	Invoice    *models.Invoice `json:"invoice"`
	Duplicates DuplicateReport `json:"duplicates"`
}

type Service struct {
	ocr        *database.OCRRepo
	sessions   *database.ReviewRepo
	ledger     *database.LedgerRepo
	duplicates *DuplicateChecker
	outcomes   OutcomeRecorder
	budgets    BudgetToucher
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

type Config struct {
	Duplicates DuplicateConfig
}

func NewService(
	db *database.DB,
	outcomes OutcomeRecorder,
	budgets BudgetToucher,
	config Config,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	ledger := database.NewLedgerRepo(db)
	return &Service{
		ocr:        database.NewOCRRepo(db),
		sessions:   database.NewReviewRepo(db),
		ledger:     ledger,
		duplicates: NewDuplicateChecker(ledger, config.Duplicates, m, logger),
		outcomes:   outcomes,
		budgets:    budgets,
		metrics:    m,
		logger:     logger,
	}
}

// CreateSession opens a pending review for an OCR record. A nil extracted
// invoice falls back to the record's stored AI analysis.
func (s *Service) CreateSession(ctx context.Context, ocrProcessingID string, extracted *models.ExtractedInvoice) (*models.ReviewSession, error) {
	rec, err := s.ocr.GetByID(ctx, ocrProcessingID)
	if err != nil {
		return nil, fmt.Errorf("getting ocr record: %w", err)
	}

	var data []byte
	if extracted != nil {
		data, err = json.Marshal(extracted)
		if err != nil {
			return nil, fmt.Errorf("encoding extracted data: %w", err)
		}
	} else {
		data = rec.AIAnalysis
	}

	session := &models.ReviewSession{OCRProcessingID: rec.ID, ExtractedData: data}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("review session created",
		zap.String("session_id", session.ID),
		zap.String("ocr_processing_id", rec.ID))
	return session, nil
}

func (s *Service) GetSession(ctx context.Context, id string) (*models.ReviewSession, error) {
	return s.sessions.GetByID(ctx, id)
}

func (s *Service) Reject(ctx context.Context, id string) error {
	err := s.sessions.Reject(ctx, id)
	if errors.Is(err, database.ErrSessionNotPending) {
		return ErrSessionClosed
	}
	if err == nil {
		s.logger.Info("review session rejected", zap.String("session_id", id))
	}
	return err
}

// CheckDuplicates reports likely duplicates of q. It never fails.
func (s *Service) CheckDuplicates(ctx context.Context, q DuplicateQuery) DuplicateReport {
	return s.duplicates.Check(ctx, q)
}

// Approve validates the reviewed invoice, then commits the invoice, its
// positions and the project budget increments in one transaction. Duplicate
// findings are returned as warnings.
func (s *Service) Approve(ctx context.Context, sessionID string, req ApprovalRequest) (*ApprovalResult, error) {
	result, err := s.approve(ctx, sessionID, req)
	if err != nil {
		s.metrics.RecordApproval(metrics.StatusError)
		return nil, err
	}
	s.metrics.RecordApproval(metrics.StatusSuccess)
	return result, nil
}

func (s *Service) approve(ctx context.Context, sessionID string, req ApprovalRequest) (*ApprovalResult, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.ReviewPending {
		return nil, ErrSessionClosed
	}

	var extracted models.ExtractedInvoice
	if err := json.Unmarshal(session.ExtractedData, &extracted); err != nil {
		return nil, fmt.Errorf("decoding extracted data: %w", err)
	}

	invoice := &extracted
	if req.EditedData != nil {
		invoice = req.EditedData
	}

	if err := validate(invoice, req); err != nil {
		return nil, err
	}

	duplicates := s.duplicates.Check(ctx, QueryFromInvoice(invoice))
	if duplicates.HasWarnings() {
		s.logger.Warn("approving possible duplicate",
			zap.String("session_id", sessionID),
			zap.Int("exact", len(duplicates.Exact)),
			zap.Int("similar", len(duplicates.Similar)),
			zap.Int("positions", len(duplicates.Positions)))
	}

	var edited []byte
	if req.EditedData != nil {
		if edited, err = json.Marshal(req.EditedData); err != nil {
			return nil, fmt.Errorf("encoding edited data: %w", err)
		}
	}

	approval := buildApproval(session, invoice, req, edited)
	saved, err := s.ledger.ApproveInvoice(ctx, approval)
	if errors.Is(err, database.ErrSessionNotPending) {
		return nil, ErrSessionClosed
	}
	if err != nil {
		return nil, err
	}

	projectIDs := make([]string, 0, len(approval.Positions))
	for _, p := range approval.Positions {
		projectIDs = append(projectIDs, p.ProjectID)
	}
	if s.budgets != nil {
		s.budgets.Touch(projectIDs...)
	}

	s.recordOutcome(ctx, extracted.SupplierName(), saved.SupplierName)

	s.logger.Info("invoice approved",
		zap.String("session_id", sessionID),
		zap.String("invoice_id", saved.ID),
		zap.String("supplier", saved.SupplierName),
		zap.Int("positions", len(approval.Positions)))

	return &ApprovalResult{Invoice: saved, Duplicates: duplicates}, nil
}

func validate(invoice *models.ExtractedInvoice, req ApprovalRequest) error {
	if len(invoice.Positions) == 0 {
		return fmt.Errorf("%w: invoice has no positions", ErrMissingAssignment)
	}
	for i := range invoice.Positions {
		if strings.TrimSpace(req.ProjectAssignments[i]) == "" {
			return fmt.Errorf("%w: position %d", ErrMissingAssignment, i)
		}
	}

	if req.SupplierID != "" {
		return nil
	}
	if !req.SupplierConfirmed {
		return ErrSupplierUnconfirmed
	}
	if invoice.SupplierName() == "" {
		return fmt.Errorf("%w: supplier name is empty", ErrSupplierUnconfirmed)
	}
	return nil
}

func buildApproval(session *models.ReviewSession, inv *models.ExtractedInvoice, req ApprovalRequest, edited []byte) database.Approval {
	currency := inv.Invoice.Currency
	if currency == "" {
		currency = "EUR"
	}

	positions := make([]models.InvoicePosition, 0, len(inv.Positions))
	for i, line := range inv.Positions {
		positions = append(positions, models.InvoicePosition{
			ProjectID:     strings.TrimSpace(req.ProjectAssignments[i]),
			PositionIndex: i,
			Description:   line.Description,
			Quantity:      line.Quantity,
			UnitPrice:     line.UnitPrice,
			NetAmount:     line.NetAmount(),
			VATRate:       line.VATRate,
		})
	}

	return database.Approval{
		SessionID:  session.ID,
		SupplierID: req.SupplierID,
		Supplier: models.Supplier{
			Name:    inv.SupplierName(),
			Address: inv.Supplier.Address,
			TaxID:   inv.Supplier.TaxID,
			Email:   inv.Supplier.Email,
			Phone:   inv.Supplier.Phone,
		},
		Invoice: models.Invoice{
			InvoiceNumber:   strings.TrimSpace(inv.Invoice.Number),
			InvoiceDate:     inv.Invoice.Date,
			DueDate:         inv.Invoice.DueDate,
			NetAmount:       inv.NetTotal(),
			VATAmount:       inv.Totals.VAT,
			GrossAmount:     inv.Totals.Gross,
			Currency:        currency,
			OCRProcessingID: session.OCRProcessingID,
		},
		Positions:  positions,
		EditedData: edited,
	}
}

// recordOutcome scores the pattern of the originally extracted supplier.
// Failures only cost pattern accuracy and are logged.
func (s *Service) recordOutcome(ctx context.Context, extractedName, approvedName string) {
	if s.outcomes == nil || extractedName == "" {
		return
	}
	corrected := !strings.EqualFold(strings.TrimSpace(extractedName), strings.TrimSpace(approvedName))
	if err := s.outcomes.RecordOutcome(ctx, extractedName, corrected); err != nil {
		s.logger.Warn("failed to record pattern outcome",
			zap.String("supplier", extractedName),
			zap.Error(err))
	}
}

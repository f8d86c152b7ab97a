package review

import (
	"context"
	"strings"
	"time"

	"github.com/kdimtricp/budgetmanager/internal/database"
	"github.com/kdimtricp/budgetmanager/internal/metrics"
	"github.com/kdimtricp/budgetmanager/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const duplicateScanLimit = 500

type DuplicateQuery struct {
	SupplierName  string            `json:"supplierName"`
	InvoiceNumber string            `json:"invoiceNumber"`
	Amount        decimal.Decimal   `json:"amount"`
	Positions     []models.LineItem `json:"positions,omitempty"`
}

// QueryFromInvoice builds a duplicate query from extracted or edited data.
func QueryFromInvoice(inv *models.ExtractedInvoice) DuplicateQuery {
	return DuplicateQuery{
		SupplierName:  inv.SupplierName(),
		InvoiceNumber: strings.TrimSpace(inv.Invoice.Number),
		Amount:        inv.NetTotal(),
		Positions:     inv.Positions,
	}
}

type InvoiceMatch struct {
	InvoiceID     string          `json:"invoiceId"`
	InvoiceNumber string          `json:"invoiceNumber"`
	SupplierName  string          `json:"supplierName"`
	NetAmount     decimal.Decimal `json:"netAmount"`
	Similarity    float64         `json:"similarity"`
}

type PositionMatch struct {
	PositionIndex      int             `json:"positionIndex"`
	Description        string          `json:"description"`
	MatchedPositionID  string          `json:"matchedPositionId"`
	MatchedInvoiceID   string          `json:"matchedInvoiceId"`
	MatchedDescription string          `json:"matchedDescription"`
	MatchedNetAmount   decimal.Decimal `json:"matchedNetAmount"`
	Similarity         float64         `json:"similarity"`
}

// DuplicateReport lists possible duplicates. Checked is false when the check
// could not run; an empty unchecked report says nothing about duplicates.
type DuplicateReport struct {
	Checked   bool            `json:"checked"`
	Exact     []InvoiceMatch  `json:"exact"`
	Similar   []InvoiceMatch  `json:"similar"`
	Positions []PositionMatch `json:"positions"`
}

func (r DuplicateReport) HasWarnings() bool {
	return len(r.Exact)+len(r.Similar)+len(r.Positions) > 0
}

type DuplicateConfig struct {
	Lookback            time.Duration
	SimilarityThreshold float64
	AmountTolerance     float64
}

type DuplicateChecker struct {
	ledger  *database.LedgerRepo
	config  DuplicateConfig
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewDuplicateChecker(ledger *database.LedgerRepo, config DuplicateConfig, m *metrics.Metrics, logger *zap.Logger) *DuplicateChecker {
	if config.Lookback == 0 {
		config.Lookback = 365 * 24 * time.Hour
	}
	if config.SimilarityThreshold == 0 {
		config.SimilarityThreshold = 0.8
	}
	if config.AmountTolerance == 0 {
		config.AmountTolerance = 0.01
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DuplicateChecker{ledger: ledger, config: config, metrics: m, logger: logger}
}

// Check never fails. Lookup errors are logged and yield an unchecked report.
func (c *DuplicateChecker) Check(ctx context.Context, q DuplicateQuery) DuplicateReport {
	report, err := c.check(ctx, q)
	if err != nil {
		c.logger.Warn("duplicate check failed",
			zap.String("supplier", q.SupplierName),
			zap.String("invoice_number", q.InvoiceNumber),
			zap.Error(err))
		return DuplicateReport{Checked: false, Exact: []InvoiceMatch{}, Similar: []InvoiceMatch{}, Positions: []PositionMatch{}}
	}

	c.metrics.RecordDuplicateWarnings("exact", len(report.Exact))
	c.metrics.RecordDuplicateWarnings("similar", len(report.Similar))
	c.metrics.RecordDuplicateWarnings("position", len(report.Positions))
	return report
}

func (c *DuplicateChecker) check(ctx context.Context, q DuplicateQuery) (DuplicateReport, error) {
	report := DuplicateReport{Checked: true, Exact: []InvoiceMatch{}, Similar: []InvoiceMatch{}, Positions: []PositionMatch{}}
	exactIDs := map[string]bool{}

	if q.SupplierName != "" && q.InvoiceNumber != "" {
		exact, err := c.ledger.FindInvoicesByNumber(ctx, q.SupplierName, q.InvoiceNumber)
		if err != nil {
			return report, err
		}
		for _, inv := range exact {
			exactIDs[inv.ID] = true
			report.Exact = append(report.Exact, invoiceMatch(inv, 1))
		}
	}

	since := time.Now().Add(-c.config.Lookback)

	recent, err := c.ledger.RecentInvoices(ctx, since, duplicateScanLimit)
	if err != nil {
		return report, err
	}
	for _, inv := range recent {
		if exactIDs[inv.ID] {
			continue
		}
		score := InvoiceScore(q.SupplierName, q.InvoiceNumber, q.Amount,
			inv.SupplierName, inv.InvoiceNumber, inv.NetAmount, c.config.AmountTolerance)
		if score >= c.config.SimilarityThreshold {
			report.Similar = append(report.Similar, invoiceMatch(inv, score))
		}
	}

	if len(q.Positions) == 0 {
		return report, nil
	}
	positions, err := c.ledger.RecentPositions(ctx, since, duplicateScanLimit)
	if err != nil {
		return report, err
	}
	for i, line := range q.Positions {
		if m, ok := c.bestPositionMatch(line, positions); ok {
			m.PositionIndex = i
			report.Positions = append(report.Positions, m)
		}
	}
	return report, nil
}

// bestPositionMatch finds the most similar stored position with a close net
// amount.
func (c *DuplicateChecker) bestPositionMatch(line models.LineItem, existing []models.InvoicePosition) (PositionMatch, bool) {
	var best PositionMatch
	found := false
	net := line.NetAmount()

	for _, p := range existing {
		if !AmountsClose(net, p.NetAmount, c.config.AmountTolerance) {
			continue
		}
		sim := Similarity(line.Description, p.Description)
		if sim < c.config.SimilarityThreshold || (found && sim <= best.Similarity) {
			continue
		}
		best = PositionMatch{
			Description:        line.Description,
			MatchedPositionID:  p.ID,
			MatchedInvoiceID:   p.InvoiceID,
			MatchedDescription: p.Description,
			MatchedNetAmount:   p.NetAmount,
			Similarity:         sim,
		}
		found = true
	}
	return best, found
}

func invoiceMatch(inv models.Invoice, similarity float64) InvoiceMatch {
	return InvoiceMatch{
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		SupplierName:  inv.SupplierName,
		NetAmount:     inv.NetAmount,
		Similarity:    similarity,
	}
}

// Package export renders ledger data as spreadsheets.
package export

import (
	"fmt"

	"github.com/kdimtricp/budgetmanager/internal/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const positionsSheet = "Positionen"

var positionHeaders = []string{"Rechnung", "Position", "Beschreibung", "Menge", "Einzelpreis", "Netto", "MwSt %", "Erfasst"}

// ProjectPositionsXLSX lists a project's approved positions followed by a
// summary of planned, consumed and remaining budget.
func ProjectPositionsXLSX(project *models.Project, positions []models.InvoicePosition) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", positionsSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]any, len(positionHeaders))
	for i, h := range positionHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(positionsSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	sum := decimal.Zero
	for i, p := range positions {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []any{
			p.InvoiceID,
			p.PositionIndex + 1,
			p.Description,
			p.Quantity.InexactFloat64(),
			p.UnitPrice.InexactFloat64(),
			p.NetAmount.InexactFloat64(),
			p.VATRate.InexactFloat64(),
			p.CreatedAt.Format("2006-01-02"),
		}
		if err := f.SetSheetRow(positionsSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write position %d: %w", i, err)
		}
		sum = sum.Add(p.NetAmount)
	}

	summaryRow := len(positions) + 3
	summary := [][]any{
		{"Projekt", project.Name},
		{"Geplant", project.PlannedBudget.InexactFloat64()},
		{"Verbraucht", project.ConsumedBudget.InexactFloat64()},
		{"Summe Positionen", sum.InexactFloat64()},
		{"Verfügbar", project.PlannedBudget.Sub(project.ConsumedBudget).InexactFloat64()},
	}
	for i, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(5, summaryRow+i)
		if err := f.SetSheetRow(positionsSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write summary: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}
	return buf.Bytes(), nil
}

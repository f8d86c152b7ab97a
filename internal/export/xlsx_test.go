package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/kdimtricp/budgetmanager/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestProjectPositionsXLSX(t *testing.T) {
	project := models.NewProject("Dachausbau", decimal.RequireFromString("5000.00"))
	project.ConsumedBudget = decimal.RequireFromString("150.00")

	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	positions := []models.InvoicePosition{
		{InvoiceID: "inv-1", PositionIndex: 0, Description: "Logo Design", Quantity: decimal.NewFromInt(1),
			UnitPrice: decimal.NewFromInt(100), NetAmount: decimal.NewFromInt(100), VATRate: decimal.NewFromInt(20), CreatedAt: created},
		{InvoiceID: "inv-2", PositionIndex: 1, Description: "Druck", Quantity: decimal.NewFromInt(2),
			UnitPrice: decimal.NewFromInt(25), NetAmount: decimal.NewFromInt(50), VATRate: decimal.NewFromInt(20), CreatedAt: created},
	}

	data, err := ProjectPositionsXLSX(project, positions)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(positionsSheet)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 3)
	assert.Equal(t, positionHeaders, rows[0])
	assert.Equal(t, []string{"inv-1", "1", "Logo Design", "1", "100", "100", "20", "2024-03-01"}, rows[1])
	assert.Equal(t, "Druck", rows[2][2])

	name, err := f.GetCellValue(positionsSheet, "F5")
	require.NoError(t, err)
	assert.Equal(t, "Dachausbau", name)

	remaining, err := f.GetCellValue(positionsSheet, "F9")
	require.NoError(t, err)
	assert.Equal(t, "4850", remaining)

	total, err := f.GetCellValue(positionsSheet, "F8")
	require.NoError(t, err)
	assert.Equal(t, "150", total)
}

func TestProjectPositionsXLSX_Empty(t *testing.T) {
	project := models.NewProject("Leer", decimal.NewFromInt(10))
	data, err := ProjectPositionsXLSX(project, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(positionsSheet)
	require.NoError(t, err)
	assert.Equal(t, positionHeaders, rows[0])
}

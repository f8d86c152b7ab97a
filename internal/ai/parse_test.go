package ai

import (
	"errors"
	"testing"

	"github.com/kdimtricp/budgetmanager/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReply = `{
  "supplier": {"name": "DEFINE", "taxId": "ATU12345678"},
  "recipient": {"name": "Muster GmbH"},
  "invoice": {"number": "2024-001", "date": "2024-03-01", "currency": "EUR"},
  "positions": [
    {"description": "Logo Design", "quantity": 1, "unitPrice": 100, "totalPrice": 100, "vatRate": 20}
  ],
  "totals": {"netAmount": 100, "vatAmount": 20, "grossAmount": 120},
  "confidence": 87,
  "extractedFields": ["supplier", "invoice", "positions"]
}`

func TestParseExtraction(t *testing.T) {
	invoice, err := ParseExtraction(sampleReply)
	require.NoError(t, err)

	assert.Equal(t, "DEFINE", invoice.Supplier.Name)
	assert.Equal(t, "2024-001", invoice.Invoice.Number)
	require.Len(t, invoice.Positions, 1)
	assert.True(t, invoice.Positions[0].Total.Equal(decimal.NewFromInt(100)))
	assert.True(t, invoice.Totals.Gross.Equal(decimal.NewFromInt(120)))
	assert.Equal(t, 87.0, invoice.Confidence)
}

func TestParseExtraction_CodeFenceAndProse(t *testing.T) {
	fenced := "```json\n" + sampleReply + "\n```"
	invoice, err := ParseExtraction(fenced)
	require.NoError(t, err)
	assert.Equal(t, "DEFINE", invoice.Supplier.Name)

	prose := "Hier ist das Ergebnis:\n" + sampleReply + "\nIch hoffe das hilft."
	invoice, err = ParseExtraction(prose)
	require.NoError(t, err)
	assert.Equal(t, "2024-001", invoice.Invoice.Number)
}

func TestParseExtraction_GermanNumbers(t *testing.T) {
	reply := `{
	  "supplier": {"name": "Holzbau Huber GmbH"},
	  "invoice": {"number": "R-17"},
	  "positions": [
	    {"description": "Brettschichtholz", "quantity": "2,5", "unitPrice": "1.234,56", "totalPrice": "3.086,40", "vatRate": "20%"}
	  ],
	  "totals": {"netAmount": "3.086,40 €", "vatAmount": "617,28", "grossAmount": null},
	  "confidence": "90"
	}`

	invoice, err := ParseExtraction(reply)
	require.NoError(t, err)
	require.Len(t, invoice.Positions, 1)

	pos := invoice.Positions[0]
	assert.Equal(t, "2.5", pos.Quantity.String())
	assert.Equal(t, "1234.56", pos.UnitPrice.String())
	assert.Equal(t, "3086.4", pos.Total.String())
	assert.Equal(t, "20", pos.VATRate.String())
	assert.Equal(t, "3086.4", invoice.Totals.Net.String())
	assert.True(t, invoice.Totals.Gross.IsZero())
	assert.Equal(t, 90.0, invoice.Confidence)
}

func TestParseExtraction_NonStringText(t *testing.T) {
	tests := []struct {
		name    string
		content string
		check   func(t *testing.T, inv *models.ExtractedInvoice)
	}{
		{
			name:    "numeric invoice number",
			content: `{"invoice": {"number": 2024001}}`,
			check: func(t *testing.T, inv *models.ExtractedInvoice) {
				assert.Equal(t, "2024001", inv.Invoice.Number)
			},
		},
		{
			name:    "raw text as lines",
			content: `{"supplier": {"name": "DEFINE"}, "rawText": ["DEFINE", "ATU12345678"]}`,
			check: func(t *testing.T, inv *models.ExtractedInvoice) {
				assert.Equal(t, "DEFINE\nATU12345678", inv.RawText)
			},
		},
		{
			name:    "numeric phone",
			content: `{"supplier": {"name": "DEFINE", "phone": 4312345}}`,
			check: func(t *testing.T, inv *models.ExtractedInvoice) {
				assert.Equal(t, "4312345", inv.Supplier.Phone)
			},
		},
		{
			name:    "numeric tax id and description",
			content: `{"supplier": {"taxId": 12345678}, "positions": [{"description": 42, "totalPrice": "10,00"}]}`,
			check: func(t *testing.T, inv *models.ExtractedInvoice) {
				assert.Equal(t, "12345678", inv.Supplier.TaxID)
				require.Len(t, inv.Positions, 1)
				assert.Equal(t, "42", inv.Positions[0].Description)
				assert.Equal(t, "10", inv.Positions[0].Total.String())
			},
		},
		{
			name:    "null and boolean text",
			content: `{"supplier": {"name": null, "website": false}}`,
			check: func(t *testing.T, inv *models.ExtractedInvoice) {
				assert.Empty(t, inv.Supplier.Name)
				assert.Equal(t, "false", inv.Supplier.Website)
			},
		},
		{
			name:    "structured address",
			content: `{"supplier": {"address": {"street": "Straße 1"}}}`,
			check: func(t *testing.T, inv *models.ExtractedInvoice) {
				assert.Equal(t, `{"street":"Straße 1"}`, inv.Supplier.Address)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := ParseExtraction(tt.content)
			require.NoError(t, err)
			tt.check(t, inv)
		})
	}
}

func TestParseExtraction_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no json", "Ich konnte die Rechnung nicht lesen."},
		{"broken json", `{"supplier": {"name": "DEFINE"`},
		{"invalid amount", `{"positions": [{"totalPrice": "zwölf"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseExtraction(tt.content)
			require.Error(t, err)
			var xe *ExtractionError
			assert.True(t, errors.As(err, &xe))
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.234,56", "1234.56"},
		{"1234.56", "1234.56"},
		{"1,234.56", "1234.56"},
		{"12,5", "12.5"},
		{"1.234", "1234"},
		{"0.125", "0.125"},
		{"12.500.000", "12500000"},
		{"EUR 99,90", "99.9"},
		{"-15,00", "-15"},
		{"", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

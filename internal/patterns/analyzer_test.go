package patterns

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defineInvoice = "DEFINE\nStraße 1\n4658 Ort\nATU12345678\nVielen Dank\nIhr DEFINE Team"

func lineIndexes(matches []Match) []int {
	out := make([]int, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.LineIndex)
	}
	return out
}

func TestAnalyzeText_DefineInvoice(t *testing.T) {
	detected := AnalyzeText(defineInvoice)

	require.Equal(t, 6, detected.TotalLines)

	require.NotEmpty(t, detected.SupplierNames)
	assert.Equal(t, "DEFINE", detected.SupplierNames[0].Text)
	assert.Equal(t, 0, detected.SupplierNames[0].LineIndex)
	assert.Equal(t, "all_caps", detected.SupplierNames[0].Rule)
	assert.Equal(t, "Straße 1", detected.SupplierNames[0].Context.Next)

	assert.Contains(t, lineIndexes(detected.Addresses), 2)
	assert.Equal(t, []int{3}, lineIndexes(detected.TaxNumbers))

	assert.True(t, detected.LayoutPatterns.HasSignature)
	assert.True(t, detected.LayoutPatterns.SupplierInHeader)
	assert.False(t, detected.LayoutPatterns.HasLetterhead)
}

func TestAnalyzeText_Letterhead(t *testing.T) {
	text := "Muster Bau GmbH\nTel. +43 732 123456\noffice@musterbau.at\n\nRechnung Nr. 2024-17\nSumme 120,00"
	detected := AnalyzeText(text)

	assert.True(t, detected.LayoutPatterns.HasLetterhead)
	assert.False(t, detected.LayoutPatterns.HasSignature)
	require.NotEmpty(t, detected.SupplierNames)
	assert.Equal(t, "legal_form", detected.SupplierNames[0].Rule)
	assert.Equal(t, 5, detected.TotalLines, "blank lines are dropped")
}

func TestAnalyzeText_FooterFlag(t *testing.T) {
	lines := ""
	for i := 0; i < 25; i++ {
		lines += "position 1 x 10,00\n"
	}
	lines += "HOLZWERK"
	detected := AnalyzeText(lines)

	assert.True(t, detected.LayoutPatterns.SupplierInFooter)
	assert.False(t, detected.LayoutPatterns.SupplierInHeader)
	require.Len(t, detected.SupplierNames, 1)
	assert.Equal(t, 25, detected.SupplierNames[0].LineIndex)
}

func TestAnalyzeText_EmptyInput(t *testing.T) {
	detected := AnalyzeText("")

	assert.Equal(t, 0, detected.TotalLines)
	assert.Empty(t, detected.SupplierNames)
	assert.Empty(t, detected.Addresses)
	assert.Empty(t, detected.TaxNumbers)
	assert.Equal(t, LayoutPatterns{}, detected.LayoutPatterns)
}

func TestIsLikelyTaxNumber(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"UID: ATU12345678", true},
		{"ATU98765432", true},
		{"FN 123456a", true},
		{"IBAN AT61 1904 3002 3457 3201", true},
		{"Rechnung Nr. 12345678", false},
		{"ATU1234", false},
		{"Vielen Dank für Ihren Auftrag", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLikelyTaxNumber(tt.text))
		})
	}
}

func TestIsLikelySupplierName(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"DEFINE", true},
		{"Holzbau Huber GmbH", true},
		{"Maria Muster", true},
		{"Tischlerei", true},
		{"AB", false},
		{"4658 Ort", false},
		{"ATU12345678", false},
		{"Dies ist eine sehr lange Zeile ohne jeden Firmennamen darin GmbH Zusatz", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLikelySupplierName(tt.line))
		})
	}
}

func TestIsLikelyAddress(t *testing.T) {
	assert.True(t, IsLikelyAddress("4020 Linz"))
	assert.True(t, IsLikelyAddress("Hauptstraße 12"))
	assert.True(t, IsLikelyAddress("Landstr. 5/3, Österreich"))
	assert.False(t, IsLikelyAddress("Vielen Dank"))
	assert.False(t, IsLikelyAddress("12345 Berlin"))
}

func TestTextFromJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"string", `"DEFINE\nStraße 1"`, "DEFINE\nStraße 1"},
		{"number", `12345`, "12345"},
		{"bool", `true`, "true"},
		{"null", `null`, ""},
		{"empty", ``, ""},
		{"object", `{"a":1}`, `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TextFromJSON(json.RawMessage(tt.raw)))
		})
	}
}

package review

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"Straße", "Strasse", 2},
		{"2024-001", "2024-010", 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevenshteinDistance(tt.a, tt.b), "%q -> %q", tt.a, tt.b)
	}
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("DEFINE", " define "))
	assert.Equal(t, 1.0, Similarity("Logo  Design", "logo design"))
	assert.InDelta(t, 0.875, Similarity("2024-001", "2024-002"), 1e-9)
	assert.Zero(t, Similarity("", ""))
	assert.Zero(t, Similarity("abc", ""))
}

func TestAmountsClose(t *testing.T) {
	d := decimal.RequireFromString
	assert.True(t, AmountsClose(d("100.00"), d("100.50"), 0.01))
	assert.False(t, AmountsClose(d("100.00"), d("102.00"), 0.01))
	assert.True(t, AmountsClose(d("-50"), d("-50"), 0.01))
	assert.False(t, AmountsClose(decimal.Zero, decimal.Zero, 0.01))
}

func TestInvoiceScore(t *testing.T) {
	d := decimal.RequireFromString
	same := InvoiceScore("DEFINE", "2024-001", d("100"), "define", "2024-001", d("100"), 0.01)
	assert.InDelta(t, 1.0, same, 1e-9)

	typo := InvoiceScore("DEFINE", "2024-001", d("100"), "DEFINE", "2024-002", d("100"), 0.01)
	assert.InDelta(t, 0.95, typo, 1e-9)

	otherAmount := InvoiceScore("DEFINE", "2024-001", d("100"), "DEFINE", "2024-002", d("500"), 0.01)
	assert.InDelta(t, 0.75, otherAmount, 1e-9)

	unrelated := InvoiceScore("DEFINE", "2024-001", d("100"), "Bauhaus", "R-77812", d("9.99"), 0.01)
	assert.Less(t, unrelated, 0.5)
}

package review

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// LevenshteinDistance counts the single-rune edits turning a into b.
func LevenshteinDistance(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// Similarity is 1 minus the edit distance of the normalized strings over the
// longer length. Two empty strings are not similar.
func Similarity(a, b string) float64 {
	a, b = normalize(a), normalize(b)
	if a == "" || b == "" {
		return 0
	}
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	return 1 - float64(LevenshteinDistance(a, b))/float64(longest)
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// AmountsClose reports whether a and b differ by at most tolerance relative
// to the larger of the two. Zero amounts never match.
func AmountsClose(a, b decimal.Decimal, tolerance float64) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	larger := decimal.Max(a.Abs(), b.Abs())
	diff := a.Sub(b).Abs()
	return diff.LessThanOrEqual(larger.Mul(decimal.NewFromFloat(tolerance)))
}

var invoiceWeights = struct {
	supplier, number, amount float64
}{supplier: 0.4, number: 0.4, amount: 0.2}

// InvoiceScore weighs supplier and number similarity plus amount proximity
// into a 0..1 score.
func InvoiceScore(supplierA, numberA string, amountA decimal.Decimal, supplierB, numberB string, amountB decimal.Decimal, tolerance float64) float64 {
	score := invoiceWeights.supplier*Similarity(supplierA, supplierB) +
		invoiceWeights.number*Similarity(numberA, numberB)
	if AmountsClose(amountA, amountB, tolerance) {
		score += invoiceWeights.amount
	}
	return math.Min(score, 1.0)
}

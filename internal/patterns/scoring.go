package patterns

import (
	"sort"
	"unicode"
	"unicode/utf8"
)

const (
	baseSupplierScore = 50
	maxSupplierScore  = 100
)

// ScoreRule adds Weight to a candidate's confidence when Applies holds.
type ScoreRule struct {
	Name    string
	Weight  int
	Applies func(c Match) bool
}

// Footer outweighs header.
var supplierScoreRules = []ScoreRule{
	{Name: "header", Weight: 20, Applies: func(c Match) bool { return c.LineIndex < 5 }},
	{Name: "footer", Weight: 30, Applies: func(c Match) bool { return c.LineIndex > 20 }},
	{Name: "uppercase", Weight: 25, Applies: func(c Match) bool { return isAllUpper(c.Text) }},
	{Name: "short", Weight: 15, Applies: func(c Match) bool { return utf8.RuneCountInString(c.Text) < 10 }},
}

func CalculateSupplierConfidence(c Match) int {
	score := baseSupplierScore
	for _, r := range supplierScoreRules {
		if r.Applies(c) {
			score += r.Weight
		}
	}
	if score > maxSupplierScore {
		return maxSupplierScore
	}
	return score
}

type ScoredCandidate struct {
	Match
	Confidence int `json:"confidence"`
}

// RankCandidates scores and sorts candidates by descending confidence. Equal
// scores keep their original line order.
func RankCandidates(candidates []Match) []ScoredCandidate {
	scored := make([]ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, ScoredCandidate{Match: c, Confidence: CalculateSupplierConfidence(c)})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Confidence > scored[j].Confidence
	})
	return scored
}

func isAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

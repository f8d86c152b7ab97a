package patterns

import (
	"strings"
	"testing"

	"github.com/kdimtricp/budgetmanager/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateSupplierConfidence(t *testing.T) {
	tests := []struct {
		name      string
		candidate Match
		want      int
	}{
		{"footer uppercase short is capped", Match{Text: "DEFINE", LineIndex: 22}, 100},
		{"header uppercase short", Match{Text: "DEFINE", LineIndex: 0}, 100},
		{"header mixed case long", Match{Text: "Holzbau Huber GmbH", LineIndex: 1}, 70},
		{"middle mixed case short", Match{Text: "Tischler", LineIndex: 10}, 65},
		{"middle mixed case long", Match{Text: "Maria Musterfrau", LineIndex: 10}, 50},
		{"footer mixed case long", Match{Text: "Maria Musterfrau", LineIndex: 21}, 80},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateSupplierConfidence(tt.candidate))
		})
	}
}

func TestRankCandidates_StableOnTies(t *testing.T) {
	ranked := RankCandidates([]Match{
		{Text: "Maria Musterfrau", LineIndex: 10},
		{Text: "Erwin Mustermann", LineIndex: 11},
		{Text: "HOLZ", LineIndex: 12},
	})

	require.Len(t, ranked, 3)
	assert.Equal(t, "HOLZ", ranked[0].Text)
	assert.Equal(t, "Maria Musterfrau", ranked[1].Text)
	assert.Equal(t, "Erwin Mustermann", ranked[2].Text)
}

func TestCreatePositionStrategies(t *testing.T) {
	t.Run("footer only", func(t *testing.T) {
		strategies := CreatePositionStrategies(DetectedPatterns{
			LayoutPatterns: LayoutPatterns{SupplierInFooter: true},
		})
		require.Len(t, strategies, 1)
		assert.Equal(t, models.StrategyFooter, strategies[0].Type)
		assert.Equal(t, 1, strategies[0].Priority)
		assert.Equal(t, "last_5_lines", strategies[0].SearchArea)
	})

	t.Run("all flags keep header footer signature order", func(t *testing.T) {
		strategies := CreatePositionStrategies(DetectedPatterns{
			LayoutPatterns: LayoutPatterns{SupplierInHeader: true, SupplierInFooter: true, HasSignature: true},
		})
		require.Len(t, strategies, 3)
		assert.Equal(t, models.StrategyHeader, strategies[0].Type)
		assert.Equal(t, models.StrategyFooter, strategies[1].Type)
		assert.Equal(t, models.StrategySignature, strategies[2].Type)
		for i, s := range strategies {
			assert.Equal(t, i+1, s.Priority)
		}
	})

	t.Run("no flags", func(t *testing.T) {
		assert.Empty(t, CreatePositionStrategies(DetectedPatterns{}))
	})
}

func TestGenerateSupplierPattern(t *testing.T) {
	detected := AnalyzeText(defineInvoice)

	t.Run("detected supplier name wins", func(t *testing.T) {
		p := GenerateSupplierPattern(detected, Corrections{DetectedSupplierName: "DEFINE Werbeagentur OG"})
		assert.Equal(t, "DEFINE Werbeagentur OG", p.SupplierName)
		assert.Equal(t, 95, p.Confidence)
		assert.Equal(t, 1, p.LearningSessions)
	})

	t.Run("detected supplier name wins even without candidates", func(t *testing.T) {
		p := GenerateSupplierPattern(DetectedPatterns{}, Corrections{DetectedSupplierName: "Huber"})
		assert.Equal(t, 95, p.Confidence)
	})

	t.Run("heuristic candidate", func(t *testing.T) {
		p := GenerateSupplierPattern(detected, Corrections{})
		assert.Equal(t, "DEFINE", p.SupplierName)
		assert.Equal(t, 100, p.Confidence)
	})

	t.Run("unknown supplier", func(t *testing.T) {
		p := GenerateSupplierPattern(AnalyzeText("12,00\n13,00"), Corrections{})
		assert.Equal(t, models.UnknownSupplier, p.SupplierName)
		assert.Equal(t, 0, p.Confidence)
	})
}

func TestBuildCustomPrompt(t *testing.T) {
	detected := AnalyzeText(defineInvoice)
	p := GenerateSupplierPattern(detected, Corrections{})

	assert.True(t, strings.HasPrefix(p.CustomPrompt, "LIEFERANTEN-MUSTER: DEFINE\n"))
	assert.Contains(t, p.CustomPrompt, "1. HEADER (Suchbereich: first_5_lines, Priorität 1)")
	assert.Contains(t, p.CustomPrompt, "Fußzeile")
	assert.Contains(t, p.CustomPrompt, "2 Adressmuster erkannt")
	assert.Contains(t, p.CustomPrompt, "ATU + 8 Ziffern")
	assert.True(t, strings.HasSuffix(p.CustomPrompt, analysisPriorityFooter))

	again := BuildCustomPrompt(p.SupplierName, p.Strategies, detected)
	assert.Equal(t, p.CustomPrompt, again)
}

func TestGenerateOptimizedPrompt(t *testing.T) {
	t.Run("with stored pattern", func(t *testing.T) {
		pattern := &models.SupplierPattern{SupplierName: "DEFINE", CustomPrompt: "LIEFERANTEN-MUSTER: DEFINE\nX\n"}
		prompt := GenerateOptimizedPrompt("some text", pattern)

		assert.Contains(t, prompt, pattern.CustomPrompt)
		assert.NotContains(t, prompt, "LIEFERANTEN-ERKENNUNG:")
		assert.Contains(t, prompt, "ÖSTERREICHISCHE GESCHÄFTSREGELN")
		assert.Contains(t, prompt, "some text")
		assert.True(t, strings.HasSuffix(prompt, OutputSchema+"\n"))
	})

	t.Run("generic hints without pattern", func(t *testing.T) {
		prompt := GenerateOptimizedPrompt("", nil)

		assert.Contains(t, prompt, "Liebe Grüße")
		assert.Contains(t, prompt, "Ihr X Team")
		assert.Contains(t, prompt, "20%")
		assert.NotContains(t, prompt, "OCR-TEXT")
	})

	t.Run("empty custom prompt falls back", func(t *testing.T) {
		prompt := GenerateOptimizedPrompt("", &models.SupplierPattern{SupplierName: "X"})
		assert.Contains(t, prompt, "LIEFERANTEN-ERKENNUNG:")
	})
}

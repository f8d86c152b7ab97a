package patterns

import (
	"fmt"
	"strings"
	"time"

	"github.com/kdimtricp/budgetmanager/internal/models"
)

const (
	correctedSupplierConfidence = 95
	unknownSupplierConfidence   = 0
)

// Corrections carries externally confirmed facts about the document. A
// DetectedSupplierName from the OCR service overrides the heuristic scan.
type Corrections struct {
	DetectedSupplierName string `json:"detectedSupplierName,omitempty"`
}

var strategyAreas = map[models.StrategyType]struct {
	area        string
	description string
}{
	models.StrategyHeader:    {area: "first_5_lines", description: "Lieferantenname im Briefkopf (erste 5 Zeilen)"},
	models.StrategyFooter:    {area: "last_5_lines", description: "Lieferantenname in der Fußzeile (letzte 5 Zeilen)"},
	models.StrategySignature: {area: "closing_block", description: "Lieferantenname in der Grußformel (z.B. \"Ihr X Team\")"},
}

// CreatePositionStrategies returns header, footer and signature strategies in
// that order for every layout flag that is set. Priorities start at 1.
func CreatePositionStrategies(detected DetectedPatterns) []models.PositionStrategy {
	var types []models.StrategyType
	if detected.LayoutPatterns.SupplierInHeader {
		types = append(types, models.StrategyHeader)
	}
	if detected.LayoutPatterns.SupplierInFooter {
		types = append(types, models.StrategyFooter)
	}
	if detected.LayoutPatterns.HasSignature {
		types = append(types, models.StrategySignature)
	}

	strategies := make([]models.PositionStrategy, 0, len(types))
	for i, t := range types {
		strategies = append(strategies, models.PositionStrategy{
			Type:        t,
			SearchArea:  strategyAreas[t].area,
			Priority:    i + 1,
			Description: strategyAreas[t].description,
		})
	}
	return strategies
}

// GenerateSupplierPattern builds an unsaved pattern from a heuristic scan.
func GenerateSupplierPattern(detected DetectedPatterns, corrections Corrections) *models.SupplierPattern {
	name := models.UnknownSupplier
	confidence := unknownSupplierConfidence

	if detectedName := strings.TrimSpace(corrections.DetectedSupplierName); detectedName != "" {
		name = detectedName
		confidence = correctedSupplierConfidence
	} else if ranked := RankCandidates(detected.SupplierNames); len(ranked) > 0 {
		name = ranked[0].Text
		confidence = ranked[0].Confidence
	}

	strategies := CreatePositionStrategies(detected)
	now := time.Now()

	return &models.SupplierPattern{
		SupplierName:     name,
		Confidence:       confidence,
		Strategies:       strategies,
		CustomPrompt:     BuildCustomPrompt(name, strategies, detected),
		LearningSessions: 1,
		SuccessRate:      float64(confidence) / 100,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// BuildCustomPrompt is deterministic in its inputs; stored patterns rely on it.
func BuildCustomPrompt(supplierName string, strategies []models.PositionStrategy, detected DetectedPatterns) string {
	var b strings.Builder

	fmt.Fprintf(&b, "LIEFERANTEN-MUSTER: %s\n\n", supplierName)

	b.WriteString("POSITIONS-STRATEGIEN:\n")
	if len(strategies) == 0 {
		b.WriteString("- keine eindeutige Position erkannt, gesamtes Dokument durchsuchen\n")
	}
	for _, s := range strategies {
		fmt.Fprintf(&b, "%d. %s (Suchbereich: %s, Priorität %d): %s\n",
			s.Priority, strings.ToUpper(string(s.Type)), s.SearchArea, s.Priority, s.Description)
	}

	var hints []string
	if detected.LayoutPatterns.SupplierInFooter {
		hints = append(hints, fmt.Sprintf("Der Lieferantenname \"%s\" steht typischerweise in der Fußzeile oder Grußformel, nicht im Empfängerblock.", supplierName))
	}
	if detected.LayoutPatterns.HasLetterhead {
		hints = append(hints, "Die Rechnung hat einen Briefkopf mit Firmendaten (Rechtsform, Telefon, E-Mail, Web); die ersten Zeilen zuerst prüfen.")
	}
	if n := len(detected.Addresses); n > 0 {
		hints = append(hints, fmt.Sprintf("%d Adressmuster erkannt; die Lieferantenadresse steht meist direkt beim Lieferantennamen.", n))
	}
	if len(detected.TaxNumbers) > 0 {
		hints = append(hints, "Steuerliche Kennung vorhanden: österreichische UID-Nummer im Format ATU + 8 Ziffern (z.B. ATU12345678).")
	}
	if len(hints) > 0 {
		b.WriteString("\nSPEZIFISCHE HINWEISE:\n")
		for _, h := range hints {
			b.WriteString("- ")
			b.WriteString(h)
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(analysisPriorityFooter)
	return b.String()
}

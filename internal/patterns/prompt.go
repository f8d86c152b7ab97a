package patterns

import (
	"strings"
	"unicode/utf8"

	"github.com/kdimtricp/budgetmanager/internal/models"
)

const maxPromptTextRunes = 8000

const analysisPriorityFooter = `ANALYSE-PRIORITÄT:
1. Lieferant anhand der Strategien oben bestimmen
2. Rechnungsnummer, Rechnungsdatum und Fälligkeitsdatum
3. Positionen mit Beschreibung, Menge, Einzelpreis, Gesamtpreis und MwSt-Satz
4. Summen (netto, MwSt, brutto)
Antworte ausschließlich mit einem JSON-Objekt gemäß dem vorgegebenen Schema.
`

const promptIntro = "Du analysierst eine österreichische Eingangsrechnung und extrahierst strukturierte Daten.\n\n"

const genericSupplierHints = `LIEFERANTEN-ERKENNUNG:
- Lieferantennamen stehen oft als einzelnes Wort in Großbuchstaben in der Fußzeile (z.B. "DEFINE", "MUSTERMANN").
- Grußformeln wie "Liebe Grüße", "Vielen Dank" oder "Ihr X Team" nennen meist den Lieferanten (X).
- Der Rechnungsempfänger ist NICHT der Lieferant.
`

const austrianBusinessRules = `ÖSTERREICHISCHE GESCHÄFTSREGELN:
- UID-Nummern haben das Format ATU + 8 Ziffern (z.B. ATU12345678).
- Postleitzahlen sind vierstellig (z.B. 4020 Linz).
- Währung ist EUR, sofern nicht anders angegeben.
- Der Normalsteuersatz beträgt 20% (ermäßigt 10% bzw. 13%).
- Beträge wie 1.234,56 als Dezimalzahl 1234.56 ausgeben.
`

// OutputSchema is the JSON object the AI provider must populate.
const OutputSchema = `{
  "supplier": {"name": "", "address": "", "taxId": "", "email": "", "phone": "", "website": ""},
  "recipient": {"name": "", "address": ""},
  "invoice": {"number": "", "date": "YYYY-MM-DD", "dueDate": "YYYY-MM-DD", "currency": "EUR"},
  "positions": [
    {"description": "", "quantity": 0, "unitPrice": 0, "totalPrice": 0, "vatRate": 20}
  ],
  "totals": {"netAmount": 0, "vatAmount": 0, "grossAmount": 0},
  "confidence": 0,
  "extractedFields": [],
  "rawText": ""
}`

// GenerateOptimizedPrompt assembles the final extraction prompt. A stored
// pattern's custom prompt is embedded verbatim; without one generic supplier
// hints are used.
func GenerateOptimizedPrompt(rawText string, pattern *models.SupplierPattern) string {
	var b strings.Builder
	b.WriteString(promptIntro)

	if pattern != nil && pattern.CustomPrompt != "" {
		b.WriteString("BEKANNTER LIEFERANT - GELERNTES MUSTER:\n")
		b.WriteString(pattern.CustomPrompt)
		if !strings.HasSuffix(pattern.CustomPrompt, "\n") {
			b.WriteString("\n")
		}
	} else {
		b.WriteString(genericSupplierHints)
	}

	b.WriteString("\n")
	b.WriteString(austrianBusinessRules)

	if text := strings.TrimSpace(rawText); text != "" {
		b.WriteString("\nOCR-TEXT:\n\"\"\"\n")
		b.WriteString(truncateRunes(text, maxPromptTextRunes))
		b.WriteString("\n\"\"\"\n")
	}

	b.WriteString("\nAUSGABEFORMAT (nur JSON, keine Erklärungen):\n")
	b.WriteString(OutputSchema)
	b.WriteString("\n")
	return b.String()
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

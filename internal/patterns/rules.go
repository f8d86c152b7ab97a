// Package patterns learns per-supplier extraction patterns from raw OCR text
// and turns them into prompt text for the AI extraction step.
package patterns

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Rule is a named line classifier. Rules are evaluated in order and the first
// match names the classification.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
}

var supplierNameRules = []Rule{
	{Name: "legal_form", Pattern: regexp.MustCompile(`(?:^|[\s,])(?:GmbH|GesmbH|AG|OG|KG|KEG|e\.U\.)(?:$|[\s,.&])`)},
	{Name: "all_caps", Pattern: regexp.MustCompile(`^[A-ZÄÖÜ][A-ZÄÖÜ&.\- ]+$`)},
	{Name: "capitalized_word", Pattern: regexp.MustCompile(`^[A-ZÄÖÜ][a-zäöüß]+$`)},
	{Name: "person_name", Pattern: regexp.MustCompile(`^[A-ZÄÖÜ][a-zäöüß]+ [A-ZÄÖÜ][a-zäöüß]+$`)},
}

var addressRules = []Rule{
	{Name: "postal_locality", Pattern: regexp.MustCompile(`(?:^|[^\d])\d{4}\s+[A-ZÄÖÜ][a-zäöüß]+`)},
	{Name: "street_number", Pattern: regexp.MustCompile(`^[A-ZÄÖÜ][a-zäöüß]*(?:[\s\-][A-ZÄÖÜa-zäöüß]+)*\.?\s+\d{1,4}[a-z]?(?:/\d+)*(?:,?\s*Österreich)?$`)},
}

var taxNumberRules = []Rule{
	{Name: "vat_id", Pattern: regexp.MustCompile(`ATU\d{8}`)},
	{Name: "company_register", Pattern: regexp.MustCompile(`\bFN\s?\d{5,6}\s?[a-z]\b`)},
	{Name: "iban", Pattern: regexp.MustCompile(`\bAT\d{2}`)},
}

var (
	letterheadMarker = regexp.MustCompile(`(?i)(gmbh|\bag\b|\bog\b|\bkg\b|\btel\b|telefon|\+43|e-?mail|@|www\.|https?://)`)
	signatureMarker  = regexp.MustCompile(`(?i)(vielen dank|\bdanke\b|mit freundlichen grüßen|freundliche grüße|liebe grüße|beste grüße|\bmfg\b|\bihr\b.+\bteam\b)`)
)

const (
	minNameLength = 3
	maxNameLength = 49
)

func matchRule(rules []Rule, line string) (string, bool) {
	for _, r := range rules {
		if r.Pattern.MatchString(line) {
			return r.Name, true
		}
	}
	return "", false
}

func supplierNameRule(line string) (string, bool) {
	n := utf8.RuneCountInString(line)
	if n < minNameLength || n > maxNameLength {
		return "", false
	}
	return matchRule(supplierNameRules, line)
}

func IsLikelySupplierName(line string) bool {
	_, ok := supplierNameRule(strings.TrimSpace(line))
	return ok
}

func IsLikelyAddress(line string) bool {
	_, ok := matchRule(addressRules, strings.TrimSpace(line))
	return ok
}

// IsLikelyTaxNumber reports whether text carries an Austrian VAT ID, a company
// register number or an Austrian IBAN prefix.
func IsLikelyTaxNumber(text string) bool {
	_, ok := matchRule(taxNumberRules, text)
	return ok
}

func looksLikeLetterhead(lines []string) bool {
	for _, l := range lines {
		if letterheadMarker.MatchString(l) {
			return true
		}
	}
	return false
}

func looksLikeSignature(lines []string) bool {
	for _, l := range lines {
		if signatureMarker.MatchString(l) {
			return true
		}
	}
	return false
}

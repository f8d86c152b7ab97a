package patterns

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	headerLines     = 5
	footerLines     = 5
	letterheadLines = 3
	signatureLines  = 3
)

type LineContext struct {
	Previous string `json:"previous,omitempty"`
	Next     string `json:"next,omitempty"`
}

// Match is one heuristic hit in the OCR text.
type Match struct {
	Text      string      `json:"text"`
	LineIndex int         `json:"lineIndex"`
	Rule      string      `json:"rule"`
	Context   LineContext `json:"context"`
}

type LayoutPatterns struct {
	SupplierInHeader bool `json:"supplierInHeader"`
	SupplierInFooter bool `json:"supplierInFooter"`
	HasLetterhead    bool `json:"hasLetterhead"`
	HasSignature     bool `json:"hasSignature"`
}

type DetectedPatterns struct {
	SupplierNames  []Match        `json:"supplierNames"`
	Addresses      []Match        `json:"addresses"`
	TaxNumbers     []Match        `json:"taxNumbers"`
	LayoutPatterns LayoutPatterns `json:"layoutPatterns"`
	TotalLines     int            `json:"totalLines"`
}

func splitLines(raw string) []string {
	var lines []string
	for _, l := range strings.Split(raw, "\n") {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// AnalyzeText runs every line classifier over raw OCR text. Empty or
// unusable input yields empty candidate lists, never an error.
func AnalyzeText(raw string) DetectedPatterns {
	lines := splitLines(raw)
	detected := DetectedPatterns{
		SupplierNames: []Match{},
		Addresses:     []Match{},
		TaxNumbers:    []Match{},
		TotalLines:    len(lines),
	}

	for i, line := range lines {
		ctx := LineContext{}
		if i > 0 {
			ctx.Previous = lines[i-1]
		}
		if i < len(lines)-1 {
			ctx.Next = lines[i+1]
		}

		if rule, ok := supplierNameRule(line); ok {
			detected.SupplierNames = append(detected.SupplierNames, Match{Text: line, LineIndex: i, Rule: rule, Context: ctx})
		}
		if rule, ok := matchRule(addressRules, line); ok {
			detected.Addresses = append(detected.Addresses, Match{Text: line, LineIndex: i, Rule: rule, Context: ctx})
		}
		if rule, ok := matchRule(taxNumberRules, line); ok {
			detected.TaxNumbers = append(detected.TaxNumbers, Match{Text: line, LineIndex: i, Rule: rule, Context: ctx})
		}
	}

	for _, c := range detected.SupplierNames {
		if c.LineIndex < headerLines {
			detected.LayoutPatterns.SupplierInHeader = true
		}
		if c.LineIndex >= len(lines)-footerLines {
			detected.LayoutPatterns.SupplierInFooter = true
		}
	}

	detected.LayoutPatterns.HasLetterhead = looksLikeLetterhead(head(lines, letterheadLines))
	detected.LayoutPatterns.HasSignature = looksLikeSignature(tail(lines, signatureLines))

	return detected
}

// TextFromJSON coerces an arbitrary JSON value into OCR text. Strings are
// unquoted, null becomes empty, anything else is used in its literal form.
func TextFromJSON(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err == nil {
		if _, isMap := v.(map[string]interface{}); !isMap {
			if _, isSlice := v.([]interface{}); !isSlice {
				return fmt.Sprint(v)
			}
		}
	}
	return string(raw)
}

func head(lines []string, n int) []string {
	if len(lines) < n {
		return lines
	}
	return lines[:n]
}

func tail(lines []string, n int) []string {
	if len(lines) < n {
		return lines
	}
	return lines[len(lines)-n:]
}

package ai

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kdimtricp/budgetmanager/internal/models"
	"github.com/shopspring/decimal"
)

var errNoJSONObject = errors.New("no JSON object in provider reply")

// numericFields are schema keys whose values may arrive as German formatted
// strings such as "1.234,56" or "20%".
var numericFields = map[string]bool{
	"quantity":    true,
	"unitPrice":   true,
	"totalPrice":  true,
	"vatRate":     true,
	"netAmount":   true,
	"vatAmount":   true,
	"grossAmount": true,
	"confidence":  true,
}

// textFields are schema keys typed as strings. Models sometimes answer them
// with numbers, booleans or arrays; those are stringified.
var textFields = map[string]bool{
	"name":        true,
	"address":     true,
	"taxId":       true,
	"email":       true,
	"phone":       true,
	"website":     true,
	"number":      true,
	"date":        true,
	"dueDate":     true,
	"currency":    true,
	"description": true,
	"rawText":     true,
}

// ParseExtraction decodes a provider reply into an ExtractedInvoice. Code
// fences and prose around the JSON object are ignored.
func ParseExtraction(content string) (*models.ExtractedInvoice, error) {
	raw, err := jsonObject(content)
	if err != nil {
		return nil, &ExtractionError{Err: err}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, &ExtractionError{Err: fmt.Errorf("malformed JSON: %w", err)}
	}

	tree, err = normalizeNumbers(tree, "")
	if err != nil {
		return nil, &ExtractionError{Err: err}
	}

	normalized, err := json.Marshal(tree)
	if err != nil {
		return nil, &ExtractionError{Err: fmt.Errorf("re-encoding reply: %w", err)}
	}

	var invoice models.ExtractedInvoice
	if err := json.Unmarshal(normalized, &invoice); err != nil {
		return nil, &ExtractionError{Err: fmt.Errorf("reply does not match schema: %w", err)}
	}
	return &invoice, nil
}

func parseReply(provider, content string) (*models.ExtractedInvoice, error) {
	invoice, err := ParseExtraction(content)
	if err != nil {
		var xe *ExtractionError
		if errors.As(err, &xe) {
			xe.Provider = provider
		}
		return nil, err
	}
	return invoice, nil
}

func jsonObject(content string) ([]byte, error) {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return nil, errNoJSONObject
	}
	return []byte(s[start : end+1]), nil
}

func normalizeNumbers(v any, key string) (any, error) {
	if textFields[key] {
		return stringify(v, key), nil
	}
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			n, err := normalizeNumbers(child, k)
			if err != nil {
				return nil, err
			}
			t[k] = n
		}
		return t, nil
	case []any:
		for i, child := range t {
			n, err := normalizeNumbers(child, key)
			if err != nil {
				return nil, err
			}
			t[i] = n
		}
		return t, nil
	case string:
		if !numericFields[key] {
			return t, nil
		}
		d, err := ParseAmount(t)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		return json.Number(d.String()), nil
	case nil:
		if numericFields[key] {
			return json.Number("0"), nil
		}
		return nil, nil
	default:
		return t, nil
	}
}

// stringify coerces any JSON value to text. Arrays are joined line by line
// for rawText and with spaces elsewhere.
func stringify(v any, key string) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case []any:
		sep := " "
		if key == "rawText" {
			sep = "\n"
		}
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := stringify(item, key); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, sep)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// ParseAmount reads amounts in German ("1.234,56") or plain ("1234.56")
// notation. Currency markers and percent signs are ignored; an empty string
// is zero.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	for _, marker := range []string{"EUR", "€", "%", " ", " "} {
		s = strings.ReplaceAll(s, marker, "")
	}
	if s == "" || s == "-" {
		return decimal.Zero, nil
	}

	comma := strings.LastIndex(s, ",")
	dot := strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0:
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case comma >= 0:
		s = strings.ReplaceAll(s, ",", ".")
	case dot >= 0 && isThousandsDot(s):
		s = strings.ReplaceAll(s, ".", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}

// isThousandsDot reports whether dots in s group thousands, e.g. "1.234" or
// "12.500.000".
func isThousandsDot(s string) bool {
	s = strings.TrimPrefix(s, "-")
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return true
	}
	return len(parts[1]) == 3 && parts[0] != "" && parts[0] != "0"
}

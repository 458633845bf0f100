package textproc

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// FlexFloat decodes a JSON number that models sometimes emit as a string,
// possibly with currency symbols or thousands separators. Unparseable
// values decode to nil instead of failing the whole document.
type FlexFloat struct {
	Value *float64
}

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		f.Value = nil
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			f.Value = nil
			return nil
		}
		f.Value = ParseAmount(str)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		f.Value = nil
		return nil
	}
	f.Value = &n
	return nil
}

func (f FlexFloat) MarshalJSON() ([]byte, error) {
	if f.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*f.Value)
}

var amountStripRe = regexp.MustCompile(`[€$£\s]`)

// ParseAmount parses a money amount out of free text. It tolerates currency
// symbols, whitespace and both "1,234.56" and "1.234,56" separators.
func ParseAmount(s string) *float64 {
	s = amountStripRe.ReplaceAllString(s, "")
	if s == "" {
		return nil
	}
	// European style: comma is the decimal separator when it comes last.
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	if lastComma > lastDot {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &n
}

var (
	vatPrefixRe = regexp.MustCompile(`^(VATNUMBER|VATNO|USTID|VAT|BTW|TVA)`)
	nonAlnumRe  = regexp.MustCompile(`[^A-Z0-9]`)
)

// CleanVATNumber normalizes a VAT id to bare uppercase alphanumerics and
// strips label prefixes the model sometimes copies from the document.
func CleanVATNumber(s string) string {
	s = nonAlnumRe.ReplaceAllString(strings.ToUpper(s), "")
	s = vatPrefixRe.ReplaceAllString(s, "")
	if len(s) < 4 {
		return ""
	}
	return s
}

var currencySymbols = map[string]string{
	"€": "EUR",
	"$": "USD",
	"£": "GBP",
}

var iso4217Re = regexp.MustCompile(`^[A-Z]{3}$`)

// NormalizeCurrency maps symbols and sloppy casing to an ISO 4217 code.
// Returns "" when the input cannot be a currency.
func NormalizeCurrency(s string) string {
	s = strings.TrimSpace(s)
	for sym, code := range currencySymbols {
		if strings.Contains(s, sym) {
			return code
		}
	}
	s = strings.ToUpper(s)
	if iso4217Re.MatchString(s) {
		return s
	}
	return ""
}

// DetectCurrency scans raw document text for a currency marker. EUR wins
// ties because it is the home currency.
func DetectCurrency(text string) string {
	switch {
	case strings.Contains(text, "€") || strings.Contains(text, "EUR"):
		return "EUR"
	case strings.Contains(text, "$") || strings.Contains(text, "USD"):
		return "USD"
	case strings.Contains(text, "£") || strings.Contains(text, "GBP"):
		return "GBP"
	}
	return "EUR"
}

package textproc

import (
	"encoding/json"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1234.56", 1234.56, true},
		{"€ 1,234.56", 1234.56, true},
		{"1.234,56", 1234.56, true},
		{"$120", 120, true},
		{"£99,00", 99, true},
		{"", 0, false},
		{"n/a", 0, false},
	}
	for _, tc := range cases {
		got := ParseAmount(tc.in)
		if tc.ok != (got != nil) {
			t.Errorf("ParseAmount(%q): ok=%v, want %v", tc.in, got != nil, tc.ok)
			continue
		}
		if got != nil && *got != tc.want {
			t.Errorf("ParseAmount(%q) = %v, want %v", tc.in, *got, tc.want)
		}
	}
}

func TestFlexFloat(t *testing.T) {
	var doc struct {
		A FlexFloat `json:"a"`
		B FlexFloat `json:"b"`
		C FlexFloat `json:"c"`
		D FlexFloat `json:"d"`
	}
	raw := `{"a": 12.5, "b": "€ 1.234,00", "c": null, "d": "unknown"}`
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.A.Value == nil || *doc.A.Value != 12.5 {
		t.Errorf("a = %v", doc.A.Value)
	}
	if doc.B.Value == nil || *doc.B.Value != 1234 {
		t.Errorf("b = %v", doc.B.Value)
	}
	if doc.C.Value != nil {
		t.Errorf("c should be nil")
	}
	if doc.D.Value != nil {
		t.Errorf("d should be nil, got %v", *doc.D.Value)
	}
}

func TestCleanVATNumber(t *testing.T) {
	cases := map[string]string{
		"NL123456789B01":      "NL123456789B01",
		"vat no: nl 1234.56":  "NL123456",
		"BTW NL860123456B01":  "NL860123456B01",
		"DE 123 456 789":      "DE123456789",
		"x":                   "",
		"VAT":                 "",
	}
	for in, want := range cases {
		if got := CleanVATNumber(in); got != want {
			t.Errorf("CleanVATNumber(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeCurrency(t *testing.T) {
	cases := map[string]string{
		"eur":    "EUR",
		"€":      "EUR",
		"$":      "USD",
		"£ GBP":  "GBP",
		"USD":    "USD",
		"euros":  "",
		"":       "",
	}
	for in, want := range cases {
		if got := NormalizeCurrency(in); got != want {
			t.Errorf("NormalizeCurrency(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDetectCurrency(t *testing.T) {
	if got := DetectCurrency("Total due: $120.00"); got != "USD" {
		t.Errorf("got %q", got)
	}
	if got := DetectCurrency("Totaal € 121,00"); got != "EUR" {
		t.Errorf("got %q", got)
	}
	if got := DetectCurrency("no marker at all"); got != "EUR" {
		t.Errorf("default should be EUR, got %q", got)
	}
}

package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.APIPort != "8080" {
		t.Fatalf("APIPort = %q, want 8080", cfg.APIPort)
	}
	if cfg.NATSSubject != "imports.queued" {
		t.Fatalf("NATSSubject = %q", cfg.NATSSubject)
	}
	if cfg.HomeCurrency != "EUR" || cfg.HomeCountry != "NL" {
		t.Fatalf("home locale = %s/%s, want EUR/NL", cfg.HomeCurrency, cfg.HomeCountry)
	}
	if cfg.StandardTaxRate != 21 {
		t.Fatalf("StandardTaxRate = %v, want 21", cfg.StandardTaxRate)
	}
	if cfg.LLMMaxTokens != 4000 {
		t.Fatalf("LLMMaxTokens = %d, want 4000", cfg.LLMMaxTokens)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_PORT", "9999")
	t.Setenv("LLM_TEMPERATURE", "0.5")
	t.Setenv("LLM_MAX_TOKENS", "not-a-number")

	cfg := Load()

	if cfg.APIPort != "9999" {
		t.Fatalf("APIPort = %q, want 9999", cfg.APIPort)
	}
	if cfg.LLMTemperature != 0.5 {
		t.Fatalf("LLMTemperature = %v, want 0.5", cfg.LLMTemperature)
	}
	if cfg.LLMMaxTokens != 4000 {
		t.Fatalf("unparseable int should fall back, got %d", cfg.LLMMaxTokens)
	}
}

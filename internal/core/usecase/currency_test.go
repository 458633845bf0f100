package usecase

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/avanleeuwen/invoice-pipeline/internal/core/domain"
)

func TestConvertCurrency_Identity(t *testing.T) {
	cache := newFakeRateCache()
	primary := &fakeRateFeed{}
	uc := NewConvertCurrency(cache, primary, &fakeRateFeed{}, "EUR", testLogger())

	conv, err := uc.Execute(context.Background(), 121, "EUR", "2024-03-15")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if conv.Source != domain.RateSourceIdentity || conv.ExchangeRate != 1 || conv.HomeAmount != 121 {
		t.Errorf("conv = %+v", conv)
	}
	if primary.calls != 0 {
		t.Error("home currency must not hit the feed")
	}
}

func TestConvertCurrency_CacheHit(t *testing.T) {
	cache := newFakeRateCache()
	cache.rates[rateCacheKey{"USD", "EUR", "2024-03-15"}] = domain.ExchangeRate{
		CurrencyFrom: "USD", CurrencyTo: "EUR", Rate: 0.92, RateDate: "2024-03-15",
	}
	primary := &fakeRateFeed{}
	uc := NewConvertCurrency(cache, primary, &fakeRateFeed{}, "EUR", testLogger())

	conv, err := uc.Execute(context.Background(), 120, "USD", "2024-03-15")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if conv.Source != domain.RateSourceCache {
		t.Errorf("source = %q", conv.Source)
	}
	if conv.HomeAmount != 110.40 {
		t.Errorf("home amount = %v, want 110.40", conv.HomeAmount)
	}
	if primary.calls != 0 {
		t.Error("cache hit must not hit the feed")
	}
}

func TestConvertCurrency_PrimaryFeedInvertsAndCaches(t *testing.T) {
	cache := newFakeRateCache()
	// The feed quotes USD per EUR; the stored rate is EUR per USD.
	primary := &fakeRateFeed{quote: 1 / 0.92}
	uc := NewConvertCurrency(cache, primary, &fakeRateFeed{}, "EUR", testLogger())

	conv, err := uc.Execute(context.Background(), 120, "USD", "2024-03-15")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if conv.Source != domain.RateSourcePrimary {
		t.Errorf("source = %q", conv.Source)
	}
	if math.Abs(conv.ExchangeRate-0.92) > 1e-9 {
		t.Errorf("rate = %v, want ~0.92", conv.ExchangeRate)
	}
	if conv.HomeAmount != 110.40 {
		t.Errorf("home amount = %v, want 110.40", conv.HomeAmount)
	}
	if len(cache.upserted) != 1 {
		t.Fatalf("expected rate cached, got %d upserts", len(cache.upserted))
	}
	got := cache.upserted[0]
	if got.CurrencyFrom != "USD" || got.CurrencyTo != "EUR" || got.RateDate != "2024-03-15" {
		t.Errorf("cached = %+v", got)
	}
}

func TestConvertCurrency_FallbackFeed(t *testing.T) {
	cache := newFakeRateCache()
	primary := &fakeRateFeed{err: errors.New("feed down")}
	fallback := &fakeRateFeed{quote: 1.25}
	uc := NewConvertCurrency(cache, primary, fallback, "EUR", testLogger())

	conv, err := uc.Execute(context.Background(), 100, "USD", "2024-03-15")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if conv.Source != domain.RateSourceFallback {
		t.Errorf("source = %q", conv.Source)
	}
	if conv.HomeAmount != 80 {
		t.Errorf("home amount = %v, want 80", conv.HomeAmount)
	}
	if fallback.calls != 1 || primary.calls != 1 {
		t.Errorf("calls primary=%d fallback=%d", primary.calls, fallback.calls)
	}
}

func TestConvertCurrency_AllSourcesMiss(t *testing.T) {
	cache := newFakeRateCache()
	uc := NewConvertCurrency(cache,
		&fakeRateFeed{err: errors.New("down")},
		&fakeRateFeed{err: errors.New("also down")},
		"EUR", testLogger())

	conv, err := uc.Execute(context.Background(), 100, "USD", "2024-03-15")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if conv != nil {
		t.Errorf("expected nil conversion, got %+v", conv)
	}
}

func TestConvertCurrency_CacheReadFailureFallsThrough(t *testing.T) {
	cache := newFakeRateCache()
	cache.getErr = errors.New("db down")
	primary := &fakeRateFeed{quote: 2}
	uc := NewConvertCurrency(cache, primary, &fakeRateFeed{}, "EUR", testLogger())

	conv, err := uc.Execute(context.Background(), 100, "USD", "2024-03-15")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if conv == nil || conv.Source != domain.RateSourcePrimary {
		t.Errorf("conv = %+v", conv)
	}
	if conv.HomeAmount != 50 {
		t.Errorf("home amount = %v, want 50", conv.HomeAmount)
	}
}

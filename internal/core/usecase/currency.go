package usecase

import (
	"context"
	"log/slog"

	"github.com/avanleeuwen/invoice-pipeline/internal/core/domain"
	"github.com/avanleeuwen/invoice-pipeline/internal/core/ports"
)

// ConvertCurrency resolves an exchange rate for an invoice date and converts
// the total into the home currency. Resolution walks identity, cache,
// historical feed, latest-only feed; when every step misses the conversion
// is skipped rather than failed, the import still succeeds without a home
// amount.
type ConvertCurrency struct {
	cache        ports.ExchangeRateCache
	primary      ports.RateFeed
	fallback     ports.RateFeed
	homeCurrency string
	log          *slog.Logger
}

func NewConvertCurrency(cache ports.ExchangeRateCache, primary, fallback ports.RateFeed, homeCurrency string, log *slog.Logger) *ConvertCurrency {
	return &ConvertCurrency{
		cache:        cache,
		primary:      primary,
		fallback:     fallback,
		homeCurrency: homeCurrency,
		log:          log,
	}
}

func (uc *ConvertCurrency) Execute(ctx context.Context, amount float64, currency, rateDate string) (*domain.CurrencyConversion, error) {
	if currency == uc.homeCurrency {
		return &domain.CurrencyConversion{
			OriginalCurrency: currency,
			OriginalAmount:   amount,
			ExchangeRate:     1,
			HomeAmount:       amount,
			Source:           domain.RateSourceIdentity,
		}, nil
	}

	rate, err := uc.resolveRate(ctx, currency, rateDate)
	if err != nil {
		return nil, err
	}
	if rate == nil {
		uc.log.WarnContext(ctx, "no exchange rate available",
			"currency", currency, "rate_date", rateDate)
		return nil, nil
	}

	return &domain.CurrencyConversion{
		OriginalCurrency: currency,
		OriginalAmount:   amount,
		ExchangeRate:     rate.Rate,
		HomeAmount:       round2(amount * rate.Rate),
		Source:           rate.Source,
	}, nil
}

// resolveRate returns home units per one unit of currency. The feeds quote
// the other direction, foreign units per home unit, so feed quotes are
// inverted before caching.
func (uc *ConvertCurrency) resolveRate(ctx context.Context, currency, rateDate string) (*domain.ExchangeRate, error) {
	cached, err := uc.cache.Get(ctx, currency, uc.homeCurrency, rateDate)
	if err != nil {
		uc.log.WarnContext(ctx, "rate cache read failed", "error", err)
	} else if cached != nil {
		cached.Source = domain.RateSourceCache
		return cached, nil
	}

	if rate := uc.quoteFeed(ctx, uc.primary, domain.RateSourcePrimary, currency, rateDate); rate != nil {
		return rate, nil
	}
	if rate := uc.quoteFeed(ctx, uc.fallback, domain.RateSourceFallback, currency, rateDate); rate != nil {
		return rate, nil
	}
	return nil, nil
}

func (uc *ConvertCurrency) quoteFeed(ctx context.Context, feed ports.RateFeed, source domain.RateSource, currency, rateDate string) *domain.ExchangeRate {
	quote, err := feed.Quote(ctx, currency, rateDate)
	if err != nil || quote <= 0 {
		if err != nil {
			uc.log.WarnContext(ctx, "rate feed lookup failed",
				"source", string(source), "currency", currency, "error", err)
		}
		return nil
	}

	rate := &domain.ExchangeRate{
		CurrencyFrom: currency,
		CurrencyTo:   uc.homeCurrency,
		Rate:         1 / quote,
		RateDate:     rateDate,
		Source:       source,
	}
	if err := uc.cache.Upsert(ctx, *rate); err != nil {
		// Cache misses are recoverable, the rate itself is still good.
		uc.log.WarnContext(ctx, "rate cache write failed", "error", err)
	}
	return rate
}

package currency

import (
	"context"
	"log/slog"
	"math"
	"time"
)

// Conversion is the result of converting an amount between two currencies.
type Conversion struct {
	Amount             float64 `json:"amount"`
	ConvertedAmount    float64 `json:"converted_amount"`
	FromCurrency       string  `json:"from_currency"`
	ToCurrency         string  `json:"to_currency"`
	Rate               float64 `json:"rate"`
	Date               string  `json:"date"`
	IsHistorical       bool    `json:"is_historical"`
	UsedFallback       bool    `json:"used_fallback,omitempty"`
	FormattedOriginal  string  `json:"formatted_original"`
	FormattedConverted string  `json:"formatted_converted"`
}

// Converter converts amounts by triangulating through the base currency.
type Converter struct {
	cache *RateCache
	clock func() time.Time
}

// NewConverter creates a Converter backed by the given rate cache.
func NewConverter(cache *RateCache) *Converter {
	return NewConverterWithClock(cache, time.Now)
}

// NewConverterWithClock creates a Converter with a custom clock for testing.
func NewConverterWithClock(cache *RateCache, clock func() time.Time) *Converter {
	if clock == nil {
		clock = time.Now
	}
	return &Converter{cache: cache, clock: clock}
}

// Convert converts amount from one currency to another. When rates is nil
// the cache supplies them (current rates for an empty date, historical
// otherwise). Conversion never fails: on a provider error or a missing rate
// it retries against the static default table and sets UsedFallback.
func (c *Converter) Convert(ctx context.Context, amount float64, from, to string, rates Rates, date string) Conversion {
	conversionDate := date
	if conversionDate == "" {
		conversionDate = c.clock().Format("2006-01-02")
	}

	result := Conversion{
		Amount:       amount,
		FromCurrency: from,
		ToCurrency:   to,
		Date:         conversionDate,
		IsHistorical: date != "",
	}

	if from == to {
		result.ConvertedAmount = amount
		result.Rate = 1
		result.FormattedOriginal = FormatAmount(amount, from)
		result.FormattedConverted = FormatAmount(amount, to)
		return result
	}

	if rates == nil {
		fetched, err := c.cache.Rates(ctx, date)
		if err != nil {
			slog.Warn("Rate fetch failed, converting with default rates", "error", err)
			rates = DefaultRates
			result.UsedFallback = true
		} else {
			rates = fetched
		}
	}

	converted, rate, ok := triangulate(amount, from, to, rates)
	if !ok {
		slog.Warn("Missing rate, converting with default rates", "from", from, "to", to)
		converted, rate, _ = triangulate(amount, from, to, DefaultRates)
		result.UsedFallback = true
	}

	result.ConvertedAmount = round4(converted)
	result.Rate = rate
	result.FormattedOriginal = FormatAmount(amount, from)
	result.FormattedConverted = FormatAmount(result.ConvertedAmount, to)
	return result
}

// triangulate converts through the base currency: amount is first expressed
// in MAD, then in the target currency. The returned rate is the direct
// cross-rate consistent with the two legs. ok is false when a needed rate
// is absent or zero.
func triangulate(amount float64, from, to string, rates Rates) (converted, rate float64, ok bool) {
	fromRate, toRate := rates[from], rates[to]
	if (from != BaseCurrency && fromRate == 0) || (to != BaseCurrency && toRate == 0) {
		return 0, 0, false
	}

	amountInBase := amount
	if from != BaseCurrency {
		amountInBase = amount / fromRate
	}

	converted = amountInBase
	if to != BaseCurrency {
		converted = amountInBase * toRate
	}

	switch {
	case to == BaseCurrency:
		rate = 1 / fromRate
	case from == BaseCurrency:
		rate = toRate
	default:
		rate = toRate / fromRate
	}
	return converted, rate, true
}

func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}

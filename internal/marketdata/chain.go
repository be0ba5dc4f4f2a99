package marketdata

import (
	"context"
	"time"

	"marketfeed/internal/domain"
	"marketfeed/internal/ports"
)

// providerChain tries an ordered list of providers and returns the first
// usable result. A provider that errors or comes back empty is skipped.
// The greedy short-circuit bounds worst-case latency to the sum of the
// failing providers' individual timeouts, which is fine for the two or
// three providers a deployment realistically configures.
type providerChain struct {
	providers []ports.QuoteProvider
	logger    ports.Logger
}

func newProviderChain(logger ports.Logger, providers []ports.QuoteProvider) *providerChain {
	return &providerChain{providers: providers, logger: logger}
}

// Quote asks each provider in order for the latest price. If every
// provider fails, the last encountered error is returned, or ErrNoData
// when all failures were empty results rather than errors.
func (c *providerChain) Quote(ctx context.Context, symbol string) (*domain.Quote, error) {
	var lastErr error
	for _, p := range c.providers {
		q, err := p.GetQuote(ctx, symbol)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			lastErr = err
			c.logger.Debug(ctx, "provider quote failed, trying next", map[string]interface{}{
				"provider": p.Name(), "symbol": symbol, "error": err.Error(),
			})
			continue
		}
		if !q.IsValid() {
			c.logger.Debug(ctx, "provider returned no usable quote", map[string]interface{}{
				"provider": p.Name(), "symbol": symbol,
			})
			continue
		}
		return q, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ports.ErrNoData
}

// DailyCandles asks each provider in order for daily bars, with the same
// skip-on-failure semantics as Quote.
func (c *providerChain) DailyCandles(ctx context.Context, symbol string, start, end time.Time) (domain.CandleSeries, error) {
	var lastErr error
	for _, p := range c.providers {
		series, err := p.GetDailyCandles(ctx, symbol, start, end)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			lastErr = err
			c.logger.Debug(ctx, "provider candles failed, trying next", map[string]interface{}{
				"provider": p.Name(), "symbol": symbol, "error": err.Error(),
			})
			continue
		}
		if len(series) == 0 {
			c.logger.Debug(ctx, "provider returned empty series", map[string]interface{}{
				"provider": p.Name(), "symbol": symbol,
			})
			continue
		}
		return series, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ports.ErrNoData
}

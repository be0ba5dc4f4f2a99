package ports

import (
	"context"
	"time"

	"marketfeed/internal/domain"
)

// QuoteProvider is the outbound interface every market-data source
// implements. This abstraction decouples the resilience core from any
// concrete feed, so synthetic, free and paid sources are interchangeable.
type QuoteProvider interface {
	// Name identifies the provider in logs and warm-cache reports.
	Name() string

	// GetQuote retrieves the latest price for a normalized symbol.
	// Providers return ErrNoData when they answered but know nothing
	// about the symbol; a nil quote with a nil error is not allowed.
	GetQuote(ctx context.Context, symbol string) (*domain.Quote, error)

	// GetDailyCandles retrieves daily bars for [start, end], ascending
	// by date. An empty series with a nil error counts as no data.
	// Implementations must honor ctx cancellation and keep each call
	// bounded by their own transport timeout.
	GetDailyCandles(ctx context.Context, symbol string, start, end time.Time) (domain.CandleSeries, error)
}

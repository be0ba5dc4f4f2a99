package synthetic

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"marketfeed/internal/domain"
	"marketfeed/internal/ports"
)

// Provider generates deterministic offline market data: the same seed and
// symbol always yield the same price path. It needs no network and serves
// both as the last link of a provider chain and as a development fallback.
type Provider struct {
	seed int64
	now  func() time.Time
}

// Config holds configuration for the synthetic provider.
type Config struct {
	Seed int64            // Base seed; per-symbol seeds derive from it
	Now  func() time.Time // Test hook, defaults to time.Now
}

// New creates a synthetic provider.
func New(cfg Config) *Provider {
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Provider{seed: cfg.Seed, now: now}
}

func (p *Provider) Name() string { return "synthetic" }

// rng derives a stable per-symbol generator so different symbols get
// independent but reproducible paths.
func (p *Provider) rng(symbol string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(symbol))
	return rand.New(rand.NewSource(p.seed ^ int64(h.Sum64())))
}

// GetQuote derives the latest price from the tail of a short candle
// window ending today.
func (p *Provider) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	end := p.now().UTC()
	start := end.AddDate(0, 0, -7)
	series, err := p.GetDailyCandles(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, ports.ErrNoData
	}
	last := series[len(series)-1]
	return &domain.Quote{
		Symbol:     symbol,
		Price:      last.Close,
		ObservedAt: p.now().UTC(),
	}, nil
}

// GetDailyCandles generates a plausible random-walk OHLCV path over the
// business days in [start, end]: small positive drift, ~2% daily
// volatility, highs/lows spread around open and close.
func (p *Provider) GetDailyCandles(ctx context.Context, symbol string, start, end time.Time) (domain.CandleSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	days := businessDays(start, end)
	if len(days) == 0 {
		return domain.CandleSeries{}, nil
	}

	rng := p.rng(symbol)
	prevClose := 40 + rng.Float64()*140

	series := make(domain.CandleSeries, 0, len(days))
	for _, day := range days {
		ret := rng.NormFloat64()*0.02 + 0.0005
		closePx := prevClose * (1 + ret)
		openPx := prevClose * (1 + rng.NormFloat64()*0.002)
		spread := math.Abs(rng.NormFloat64()*0.004 + 0.01)
		series = append(series, domain.Candle{
			Date:   day,
			Open:   openPx,
			High:   math.Max(openPx, closePx) * (1 + spread),
			Low:    math.Min(openPx, closePx) * (1 - spread),
			Close:  closePx,
			Volume: float64(50_000 + rng.Intn(450_000)),
		})
		prevClose = closePx
	}
	return series, nil
}

// businessDays lists the weekdays in [start, end] at UTC midnight.
func businessDays(start, end time.Time) []time.Time {
	start = start.UTC().Truncate(24 * time.Hour)
	end = end.UTC().Truncate(24 * time.Hour)
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		days = append(days, d)
	}
	return days
}

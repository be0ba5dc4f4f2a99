package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketfeed/internal/domain"
	"marketfeed/internal/ports"
)

// Config bundles the service tunables. Zero values fall back to the
// defaults below, so tests and callers only set what they care about.
type Config struct {
	QuoteTTL   time.Duration // In-memory price TTL (default 5m)
	HistoryTTL time.Duration // In-memory candle-series TTL (default 60m)
	CacheDir   string        // Daily shard directory (default data/price_cache)

	MaxRetries        int           // Attempts per logical fetch (default 3)
	BackoffBase       time.Duration // First retry delay (default 300ms)
	BackoffMax        time.Duration // Retry delay cap (default 60s)
	Jitter            bool          // Randomize retry delays
	JitterRange       float64       // Symmetric jitter fraction (default 0.2)
	RetryOnPermission bool          // Retry 403-class failures (default off)

	MinRequestInterval time.Duration // Spacing between outbound calls (default 250ms)

	FailureThreshold int           // Circuit failures before opening (default 3)
	Cooldown         time.Duration // Open-circuit cooldown (default 60s)

	FlushBatchSize int           // Disk writes that force a flush (default 8)
	FlushInterval  time.Duration // Max age of unflushed disk writes (default 5s)

	// Test hooks. Production code leaves both nil.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

func (c *Config) applyDefaults() {
	if c.QuoteTTL <= 0 {
		c.QuoteTTL = 5 * time.Minute
	}
	if c.HistoryTTL <= 0 {
		c.HistoryTTL = 60 * time.Minute
	}
	if c.CacheDir == "" {
		c.CacheDir = "data/price_cache"
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 300 * time.Millisecond
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 60 * time.Second
	}
	if c.JitterRange <= 0 {
		c.JitterRange = 0.2
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 3
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 60 * time.Second
	}
	if c.FlushBatchSize <= 0 {
		c.FlushBatchSize = 8
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 5 * time.Second
	}
}

// Service is the resilient market-data access layer. It owns the memory
// and disk caches, the per-symbol circuit breakers, the process-wide rate
// limiter and the retry executor, and orchestrates them around an ordered
// provider chain. Construct one per process and share it; all methods are
// safe for concurrent use.
type Service struct {
	cfg     Config
	logger  ports.Logger
	chain   *providerChain
	quotes  *ttlCache[float64]
	history *ttlCache[domain.CandleSeries]
	disk    *dailyPriceCache
	breaker *circuitBreaker
	limiter *rateLimiter
	retry   *retryPolicy
}

// NewService creates the access layer around the given providers, tried in
// the order passed.
func NewService(cfg Config, logger ports.Logger, providers ...ports.QuoteProvider) (*Service, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for market data service")
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("at least one provider is required")
	}
	cfg.applyDefaults()

	disk, err := newDailyPriceCache(cfg.CacheDir, cfg.FlushBatchSize, cfg.FlushInterval, cfg.Now)
	if err != nil {
		return nil, err
	}

	return &Service{
		cfg:     cfg,
		logger:  logger,
		chain:   newProviderChain(logger, providers),
		quotes:  newTTLCache[float64](cfg.QuoteTTL, cfg.Now),
		history: newTTLCache[domain.CandleSeries](cfg.HistoryTTL, cfg.Now),
		disk:    disk,
		breaker: newCircuitBreaker(cfg.FailureThreshold, cfg.Cooldown, cfg.Now),
		limiter: newRateLimiter(cfg.MinRequestInterval, cfg.Now, cfg.Sleep),
		retry: newRetryPolicy(cfg.MaxRetries, cfg.BackoffBase, cfg.BackoffMax,
			cfg.Jitter, cfg.JitterRange, cfg.RetryOnPermission, cfg.Sleep),
	}, nil
}

// GetPrice returns the latest price for symbol. ok=false with a nil error
// means "no price available right now" (provider had nothing, or the
// circuit is open); callers degrade gracefully without special-casing.
// A non-nil error is either invalid input, a permission failure, or
// exhausted retries on a transient failure.
func (s *Service) GetPrice(ctx context.Context, symbol string) (float64, bool, error) {
	sym := domain.NormalizeSymbol(symbol)
	if sym == "" {
		return 0, false, fmt.Errorf("%w: %q", ports.ErrInvalidSymbol, symbol)
	}

	if price, ok := s.quotes.Get(sym); ok {
		s.logger.Debug(ctx, "memory cache hit", map[string]interface{}{"symbol": sym})
		return price, true, nil
	}

	if price, ok := s.disk.Get(sym); ok {
		s.logger.Debug(ctx, "disk cache hit", map[string]interface{}{"symbol": sym})
		s.quotes.Set(sym, price)
		return price, true, nil
	}

	if !s.breaker.Allow(sym) {
		s.logger.Warn(ctx, "circuit open, skipping fetch", map[string]interface{}{"symbol": sym})
		return 0, false, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return 0, false, err
	}

	var quote *domain.Quote
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		q, qerr := s.chain.Quote(ctx, sym)
		if qerr != nil {
			return qerr
		}
		quote = q
		return nil
	})
	if err != nil {
		return s.priceFailure(ctx, sym, err)
	}

	s.breaker.RecordSuccess(sym)
	s.quotes.Set(sym, quote.Price)
	if err := s.disk.Put(sym, quote.Price); err != nil {
		s.logger.Warn(ctx, "disk cache write failed", map[string]interface{}{
			"symbol": sym, "error": err.Error(),
		})
	}
	return quote.Price, true, nil
}

func (s *Service) priceFailure(ctx context.Context, sym string, err error) (float64, bool, error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false, err
	}
	if ports.IsNoData(err) {
		s.recordFailure(ctx, sym)
		return 0, false, nil
	}
	if ports.IsPermission(err) {
		// Authorization outcomes do not feed the breaker: the key is
		// broken for every symbol, not this one.
		s.logger.Error(ctx, err, "provider denied access", map[string]interface{}{"symbol": sym})
		return 0, false, err
	}
	s.recordFailure(ctx, sym)
	return 0, false, fmt.Errorf("%w: %w", ports.ErrDownloadFailed, err)
}

func (s *Service) recordFailure(ctx context.Context, sym string) {
	if opened := s.breaker.RecordFailure(sym); opened {
		s.logger.Error(ctx, ports.ErrCircuitOpen, "circuit opened", map[string]interface{}{"symbol": sym})
	}
}

// GetHistory returns daily candles for symbol in [start, end]. Cached
// series are extended, never replaced: freshly fetched candles merge into
// whatever was cached (dedup by date, newest wins), so widening a range
// keeps previously fetched points. An empty series with a nil error means
// no data is available right now.
func (s *Service) GetHistory(ctx context.Context, symbol string, start, end time.Time) (domain.CandleSeries, error) {
	sym := domain.NormalizeSymbol(symbol)
	if sym == "" {
		return nil, fmt.Errorf("%w: %q", ports.ErrInvalidSymbol, symbol)
	}
	if end.Before(start) {
		return domain.CandleSeries{}, nil
	}

	cached, haveCached := s.history.Get(sym)
	if haveCached && cached.Covers(start, end) {
		s.logger.Debug(ctx, "history cache hit", map[string]interface{}{"symbol": sym})
		return cached.Window(start, end), nil
	}

	if !s.breaker.Allow(sym) {
		s.logger.Warn(ctx, "circuit open, serving cached history only", map[string]interface{}{"symbol": sym})
		return cached.Window(start, end), nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	// Widen the fetch to the cached lower bound so the merged series
	// stays contiguous instead of accumulating gaps.
	fetchStart := start
	if haveCached && len(cached) > 0 && cached[0].Date.Before(fetchStart) {
		fetchStart = cached[0].Date
	}

	var fresh domain.CandleSeries
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		series, cerr := s.chain.DailyCandles(ctx, sym, fetchStart, end)
		if cerr != nil {
			return cerr
		}
		fresh = series
		return nil
	})
	if err != nil {
		return s.historyFailure(ctx, sym, cached, start, end, err)
	}

	s.breaker.RecordSuccess(sym)
	merged := domain.MergeSeries(cached, fresh)
	s.history.Set(sym, merged)
	return merged.Window(start, end), nil
}

func (s *Service) historyFailure(ctx context.Context, sym string, cached domain.CandleSeries, start, end time.Time, err error) (domain.CandleSeries, error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	if ports.IsNoData(err) {
		s.recordFailure(ctx, sym)
		// Partial cached coverage beats nothing.
		return cached.Window(start, end), nil
	}
	if ports.IsPermission(err) {
		s.logger.Error(ctx, err, "provider denied access", map[string]interface{}{"symbol": sym})
		return nil, err
	}
	s.recordFailure(ctx, sym)
	return nil, fmt.Errorf("%w: %w", ports.ErrDownloadFailed, err)
}

// WarmCache pre-populates the price caches for symbols, best-effort. The
// shared rate limiter paces the underlying fetches. The result maps each
// normalized symbol to whether a usable price ended up cached.
func (s *Service) WarmCache(ctx context.Context, symbols []string) map[string]bool {
	out := make(map[string]bool, len(symbols))
	for _, symbol := range symbols {
		sym := domain.NormalizeSymbol(symbol)
		if sym == "" {
			out[symbol] = false
			continue
		}
		_, ok, err := s.GetPrice(ctx, sym)
		out[sym] = ok && err == nil
	}
	return out
}

// Close flushes any buffered disk-cache writes.
func (s *Service) Close() error {
	return s.disk.Flush()
}

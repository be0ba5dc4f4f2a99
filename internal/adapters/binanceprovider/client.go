package binanceprovider

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"marketfeed/internal/domain"
	"marketfeed/internal/ports"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
)

// Client implements ports.QuoteProvider for Binance spot market data using
// the go-binance library. Market-data endpoints are public, so API keys
// are optional; when present they raise the request-weight allowance.
type Client struct {
	spot   *binance.Client
	logger ports.Logger
}

// Config holds configuration specific to the Binance adapter.
type Config struct {
	APIKey    string
	SecretKey string
	Logger    ports.Logger
}

// New creates a new Binance market-data adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	return &Client{
		spot:   binance.NewClient(cfg.APIKey, cfg.SecretKey),
		logger: cfg.Logger,
	}, nil
}

func (c *Client) Name() string { return "binance" }

// handleError translates Binance API errors into the layer's standard
// errors so the retry executor and circuit breaker classify on structure.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields := map[string]interface{}{
			"operation":       operation,
			"apiErrorCode":    apiErr.Code,
			"apiErrorMessage": apiErr.Message,
		}
		var mappedErr error
		switch apiErr.Code {
		case -1003: // Too many requests
			mappedErr = ports.ErrRateLimited
		case -2014, -2015: // API-key format invalid / key, IP or permissions
			mappedErr = ports.ErrPermissionDenied
		case -1121: // Invalid symbol
			mappedErr = ports.ErrNoData
		}
		if mappedErr != nil {
			c.logger.Warn(ctx, operation+" failed with API error", fields)
			return fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
		}
		c.logger.Error(ctx, err, operation+" failed with API error", fields)
		return fmt.Errorf("%s failed: %w", operation, err)
	}

	// Network-level failure; leave it transient so the executor retries.
	c.logger.Error(ctx, err, operation+" failed", map[string]interface{}{"operation": operation})
	return fmt.Errorf("%s failed: %w", operation, err)
}

// GetQuote retrieves the last ticker price for a symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	op := "GetQuote"
	prices, err := c.spot.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("%w: no ticker returned for %s", ports.ErrNoData, symbol)
	}

	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		parseErr := fmt.Errorf("could not parse price %q: %w", prices[0].Price, err)
		return nil, c.handleError(ctx, parseErr, op)
	}
	return &domain.Quote{
		Symbol:     symbol,
		Price:      price,
		ObservedAt: time.Now().UTC(),
	}, nil
}

// GetDailyCandles retrieves daily klines for [start, end].
func (c *Client) GetDailyCandles(ctx context.Context, symbol string, start, end time.Time) (domain.CandleSeries, error) {
	op := "GetDailyCandles"
	klines, err := c.spot.NewKlinesService().
		Symbol(symbol).
		Interval("1d").
		StartTime(start.UTC().UnixMilli()).
		EndTime(end.UTC().AddDate(0, 0, 1).UnixMilli()).
		Limit(1000).
		Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	series := make(domain.CandleSeries, 0, len(klines))
	for _, k := range klines {
		candle, convErr := toCandle(k)
		if convErr != nil {
			c.logger.Warn(ctx, "skipping unparsable kline", map[string]interface{}{
				"symbol": symbol, "error": convErr.Error(),
			})
			continue
		}
		series = append(series, candle)
	}
	return series, nil
}

func toCandle(k *binance.Kline) (domain.Candle, error) {
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return domain.Candle{}, fmt.Errorf("parse open %q: %w", k.Open, err)
	}
	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return domain.Candle{}, fmt.Errorf("parse high %q: %w", k.High, err)
	}
	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return domain.Candle{}, fmt.Errorf("parse low %q: %w", k.Low, err)
	}
	closePx, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return domain.Candle{}, fmt.Errorf("parse close %q: %w", k.Close, err)
	}
	volume, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return domain.Candle{}, fmt.Errorf("parse volume %q: %w", k.Volume, err)
	}
	return domain.Candle{
		Date:   time.UnixMilli(k.OpenTime).UTC(),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePx,
		Volume: volume,
	}, nil
}

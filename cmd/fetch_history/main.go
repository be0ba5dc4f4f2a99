package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketfeed/config"
	"marketfeed/internal/adapters/binanceprovider"
	"marketfeed/internal/adapters/finnhub"
	"marketfeed/internal/adapters/logger"
	"marketfeed/internal/adapters/synthetic"
	"marketfeed/internal/adapters/yahoo"
	"marketfeed/internal/marketdata"
	"marketfeed/internal/ports"
	"marketfeed/internal/utils"
)

// fetch_history pulls a daily candle series through the full access layer
// (cache, retries, provider fallback) and writes it to CSV for offline
// analysis.
func main() {
	symbol := flag.String("symbol", "", "Symbol to fetch (required)")
	days := flag.Int("days", 30, "Number of days of history, ending today")
	out := flag.String("out", "", "Output CSV path (default <symbol>_daily.csv)")
	flag.Parse()

	if *symbol == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *days <= 0 {
		log.Fatalf("FATAL: -days must be positive, got %d", *days)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	appLogger := logger.NewStdLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	providers, err := buildProviders(cfg, appLogger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize providers: %v", err)
	}

	svc, err := marketdata.NewService(marketdata.Config{
		QuoteTTL:           cfg.MemoryTTL,
		HistoryTTL:         cfg.HistoryTTL,
		CacheDir:           cfg.PriceCacheDir,
		MaxRetries:         cfg.MaxRetries,
		BackoffBase:        cfg.BackoffBase,
		BackoffMax:         cfg.BackoffMax,
		Jitter:             cfg.JitterEnabled,
		JitterRange:        cfg.JitterRange,
		RetryOnPermission:  cfg.RetryOnPermission,
		MinRequestInterval: cfg.MinRequestInterval,
		FailureThreshold:   cfg.CircuitFailureThreshold,
		Cooldown:           cfg.CircuitCooldown,
		FlushBatchSize:     cfg.DiskFlushBatchSize,
		FlushInterval:      cfg.DiskFlushInterval,
	}, appLogger, providers...)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize market data service: %v", err)
	}
	defer svc.Close()

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -*days)

	series, err := svc.GetHistory(ctx, *symbol, start, end)
	if err != nil {
		log.Fatalf("FATAL: Failed to fetch history for %s: %v", *symbol, err)
	}
	if len(series) == 0 {
		log.Fatalf("FATAL: No candles available for %s in the last %d days", *symbol, *days)
	}

	filename := *out
	if filename == "" {
		filename = fmt.Sprintf("%s_daily.csv", *symbol)
	}
	if err := utils.WriteCandlesToCSV(series, *symbol, filename); err != nil {
		log.Fatalf("FATAL: Failed to write CSV: %v", err)
	}

	fmt.Printf("Wrote %d candles for %s (%s to %s) to %s\n",
		len(series), *symbol,
		series[0].Date.Format(time.DateOnly),
		series[len(series)-1].Date.Format(time.DateOnly),
		filename)
}

func buildProviders(cfg *config.Config, appLogger ports.Logger) ([]ports.QuoteProvider, error) {
	var providers []ports.QuoteProvider
	for _, name := range cfg.Providers {
		switch name {
		case "finnhub":
			fh, err := finnhub.New(finnhub.Config{APIKey: cfg.FinnhubAPIKey, Timeout: cfg.RequestTimeout})
			if err != nil {
				return nil, err
			}
			providers = append(providers, fh)
		case "yahoo":
			providers = append(providers, yahoo.New(yahoo.Config{Timeout: cfg.RequestTimeout}))
		case "binance":
			bn, err := binanceprovider.New(binanceprovider.Config{
				APIKey:    cfg.BinanceAPIKey,
				SecretKey: cfg.BinanceSecret,
				Logger:    appLogger,
			})
			if err != nil {
				return nil, err
			}
			providers = append(providers, bn)
		case "synthetic":
			providers = append(providers, synthetic.New(synthetic.Config{}))
		default:
			return nil, fmt.Errorf("unknown provider %q in PROVIDERS", name)
		}
	}
	return providers, nil
}

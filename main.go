package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"marketfeed/config"
	"marketfeed/internal/adapters/binanceprovider"
	"marketfeed/internal/adapters/finnhub"
	"marketfeed/internal/adapters/logger"
	"marketfeed/internal/adapters/synthetic"
	"marketfeed/internal/adapters/yahoo"
	"marketfeed/internal/marketdata"
	"marketfeed/internal/ports"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Build the provider chain in configured order
	providers, err := buildProviders(cfg, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize providers")
		log.Fatalf("FATAL: Failed to initialize providers: %v", err)
	}

	// 4. Initialize the market data service
	svc, err := marketdata.NewService(serviceConfig(cfg), appLogger, providers...)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize market data service")
		log.Fatalf("FATAL: Failed to initialize market data service: %v", err)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			appLogger.Warn(ctx, "final cache flush failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	symbols := os.Args[1:]
	if len(symbols) == 0 {
		fmt.Fprintln(os.Stderr, "usage: marketfeed SYMBOL [SYMBOL ...]")
		os.Exit(2)
	}

	warmed := svc.WarmCache(ctx, symbols)
	ok := 0
	for _, w := range warmed {
		if w {
			ok++
		}
	}
	appLogger.Info(ctx, "cache warmed", map[string]interface{}{"requested": len(symbols), "warmed": ok})

	for _, symbol := range symbols {
		price, ok, err := svc.GetPrice(ctx, symbol)
		switch {
		case err != nil:
			fmt.Printf("%-10s error: %v\n", symbol, err)
		case !ok:
			fmt.Printf("%-10s unavailable\n", symbol)
		default:
			fmt.Printf("%-10s %.2f\n", symbol, price)
		}
	}
}

// buildProviders instantiates the concrete providers named in PROVIDERS,
// preserving the configured chain order.
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

// serviceConfig maps application configuration onto the service tunables.
func serviceConfig(cfg *config.Config) marketdata.Config {
	return marketdata.Config{
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
	}
}

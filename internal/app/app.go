// Package app wires configuration into the quote pipeline shared by the
// commands.
package app

import (
	"time"

	"stocksrealtime/internal/config"
	"stocksrealtime/internal/httpx"
	"stocksrealtime/internal/logger"
	"stocksrealtime/internal/provider"
	"stocksrealtime/internal/provider/alphavantage"
	"stocksrealtime/internal/provider/cache"
	"stocksrealtime/internal/provider/ratelimit"
	"stocksrealtime/internal/stocks"
)

// NewLogger builds the root logger at the configured level.
func NewLogger(cfg *config.Config) *logger.Logger {
	return logger.New(nil, "stocks-realtime", logger.ParseLevel(cfg.Server.LogLevel))
}

// NewProvider builds the throttled Alpha Vantage provider. The API key is
// read from cfg on every fetch, so rotating it needs no restart.
func NewProvider(cfg *config.Config) (provider.Provider, error) {
	httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)

	client, err := alphavantage.NewClient("",
		alphavantage.WithBaseURL(cfg.Stocks.BaseURL),
		alphavantage.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, err
	}

	var p provider.Provider = alphavantage.New(alphavantage.Config{
		Interval: cfg.Stocks.Interval,
		APIKey:   cfg.APIKey,
	}, client)
	return ratelimit.Wrap(p,
		cfg.Stocks.MaxRequestsPerMinute,
		cfg.Stocks.Burst,
		time.Duration(cfg.Stocks.MinRequestIntervalSec)*time.Second,
	), nil
}

// NewQuoteService builds the cached quote service over NewProvider.
func NewQuoteService(cfg *config.Config, log *logger.Logger) (*stocks.Service, error) {
	p, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	if cfg.APIKey() == "" {
		log.Warning("stocks api key not set; every lookup will fail until STOCKS_API_KEY is provided")
	}

	store := &cache.Store{
		TTL:      time.Duration(cfg.Stocks.CacheTTLSeconds) * time.Second,
		MaxItems: cfg.Stocks.CacheMaxItems,
	}
	return stocks.NewService(p, store, log.Named("stocks")), nil
}

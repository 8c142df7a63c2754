package alphavantage

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"stocksrealtime/internal/provider"
)

// Config controls the Alpha Vantage provider behavior.
type Config struct {
	Name     string // display name, default: AlphaVantage
	Interval string // intraday bar size, default: 15min
	// APIKey is consulted on every Fetch so key rotation needs no restart.
	APIKey func() string
}

// Provider turns intraday documents into quotes priced at the latest bar's high.
type Provider struct {
	cfg    Config
	client *Client
}

func New(cfg Config, client *Client) *Provider {
	if cfg.Name == "" {
		cfg.Name = "AlphaVantage"
	}
	if cfg.Interval == "" {
		cfg.Interval = DefaultInterval
	}
	return &Provider{cfg: cfg, client: client}
}

func (p *Provider) Name() string { return p.cfg.Name }

// Fetch returns the high of the first bar the provider lists for ticker.
// The first bar is taken as the latest; entries are not compared by timestamp.
func (p *Provider) Fetch(ctx context.Context, ticker string) (provider.Quote, error) {
	var key string
	if p.cfg.APIKey != nil {
		key = strings.TrimSpace(p.cfg.APIKey())
	}
	if key == "" {
		return provider.Quote{}, &provider.Error{Kind: provider.KindConfig, Ticker: ticker, Message: "api key is missing or blank"}
	}

	ts, err := p.client.GetIntradayTimeSeries(ctx, ticker, p.cfg.Interval, WithAPIKey(key))
	if err != nil {
		return provider.Quote{}, err
	}

	latest := ts.Entries[0]
	if latest.Values == nil {
		return provider.Quote{}, &provider.Error{Kind: provider.KindEntry, Ticker: ticker, Message: fmt.Sprintf("entry %q is null", latest.Timestamp)}
	}

	high, err := ParsePrice(latest.Values.High)
	if err != nil {
		return provider.Quote{}, &provider.Error{Kind: provider.KindNumber, Ticker: ticker, Message: latest.Values.High, Err: err}
	}
	return provider.Quote{Ticker: ticker, Price: high}, nil
}

// ParsePrice parses a decimal in invariant notation: '.' as the decimal
// point, ',' as an optional group separator, surrounding spaces, an optional
// sign and exponent.
func ParsePrice(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("empty price")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parsing price %q: %w", s, err)
	}
	return d, nil
}

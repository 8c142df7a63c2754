package provider

import (
	"context"

	"github.com/shopspring/decimal"
)

// Quote is the most recent known high price for a ticker.
// Values are never partially built: a Quote exists only after a full
// fetch-and-parse cycle succeeded.
type Quote struct {
	Ticker string          `json:"ticker"`
	Price  decimal.Decimal `json:"price"`
}

// Provider resolves a single ticker to a Quote.
//
//go:generate mockgen -package=stocks_test -destination=../stocks/mock_provider_test.go -source=provider.go Provider
type Provider interface {
	Name() string
	Fetch(ctx context.Context, ticker string) (Quote, error)
}

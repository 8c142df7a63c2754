// Package feed polls every watched ticker and pushes fresh quotes to the
// live subscribers.
package feed

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"stocksrealtime/internal/logger"
	"stocksrealtime/internal/provider"
)

// Tickers lists the symbols to poll. ticker.Registry satisfies it.
type Tickers interface {
	Snapshot() []string
}

// Quotes resolves one ticker. stocks.Service satisfies it.
type Quotes interface {
	GetQuote(ctx context.Context, ticker string) *provider.Quote
}

// Broadcaster delivers a quote to whoever watches its ticker.
// It must not block.
type Broadcaster interface {
	Broadcast(q provider.Quote)
}

type Updater struct {
	Tickers        Tickers
	Quotes         Quotes
	Out            Broadcaster
	Interval       time.Duration // default: 1m
	MaxConcurrency int           // default: 2
	Log            *logger.Logger
}

// UpdateOnce fetches a quote for every ticker currently watched and
// broadcasts the ones that resolved. It returns how many were sent.
func (u *Updater) UpdateOnce(ctx context.Context) int {
	tickers := u.Tickers.Snapshot()
	if len(tickers) == 0 {
		return 0
	}

	limit := u.MaxConcurrency
	if limit <= 0 {
		limit = 2
	}

	var sent atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, t := range tickers {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			q := u.Quotes.GetQuote(gctx, t)
			if q == nil {
				return nil
			}
			if u.Out != nil {
				u.Out.Broadcast(*q)
			}
			sent.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	u.log().Debug("update pass done: %d/%d tickers sent", sent.Load(), len(tickers))
	return int(sent.Load())
}

// Run calls UpdateOnce immediately and then every Interval until ctx ends.
func (u *Updater) Run(ctx context.Context) error {
	interval := u.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	u.log().Info("price updater started, interval %s", interval)

	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		u.UpdateOnce(ctx)
		select {
		case <-ctx.Done():
			u.log().Info("price updater stopped")
			return ctx.Err()
		case <-tick.C:
		}
	}
}

func (u *Updater) log() *logger.Logger {
	if u.Log == nil {
		return logger.Nop()
	}
	return u.Log
}

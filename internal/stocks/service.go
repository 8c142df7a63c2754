package stocks

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"

	"stocksrealtime/internal/logger"
	"stocksrealtime/internal/provider"
)

const cacheKeyPrefix = "stocks-"

// CacheKey is the cache key for ticker's quote.
func CacheKey(ticker string) string { return cacheKeyPrefix + ticker }

// Cache stores lookup results, including nil for "no quote", each with its
// own expiry. See cache.Store.
type Cache interface {
	Get(key string) (*provider.Quote, bool)
	Set(key string, q *provider.Quote)
}

// Service resolves tickers to quotes through a cache.
//
// Failures never reach the caller: every error is logged with its cause,
// counted, and turned into a nil quote. A failed lookup is cached as nil
// too, so the cache TTL is also the retry cadence.
type Service struct {
	provider provider.Provider
	cache    Cache
	log      *logger.Logger

	sf singleflight.Group

	mu       sync.Mutex
	failures map[provider.Kind]uint64
}

func NewService(p provider.Provider, c Cache, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		provider: p,
		cache:    c,
		log:      log,
		failures: make(map[provider.Kind]uint64),
	}
}

// GetQuote returns the latest quote for ticker, or nil when none is
// available right now.
func (s *Service) GetQuote(ctx context.Context, ticker string) *provider.Quote {
	s.log.Info("getting stock price information for %s", ticker)

	q := s.lookup(ctx, ticker)
	if q == nil {
		s.log.Warning("failed to get stock price information for %s", ticker)
		return nil
	}
	s.log.Info("completed getting stock price information for %s: %s", ticker, q.Price)
	return q
}

// lookup is cache-aside with concurrent misses for one key sharing a single
// upstream fetch. Each caller still stops waiting when its own ctx ends.
func (s *Service) lookup(ctx context.Context, ticker string) *provider.Quote {
	key := CacheKey(ticker)
	for {
		if q, ok := s.cache.Get(key); ok {
			return q
		}

		select {
		case res := <-s.fetch(ctx, key, ticker):
			if res.Err != nil && ctx.Err() == nil {
				// joined a flight whose own caller gave up; start another
				continue
			}
			q, _ := res.Val.(*provider.Quote)
			return q
		case <-ctx.Done():
			s.log.Warning("stopped waiting for %s: %v", ticker, ctx.Err())
			return nil
		}
	}
}

// fetch joins or starts the upstream call for key and caches its outcome.
func (s *Service) fetch(ctx context.Context, key, ticker string) <-chan singleflight.Result {
	return s.sf.DoChan(key, func() (any, error) {
		// a fetch that finished while we queued may already be cached
		if q, ok := s.cache.Get(key); ok {
			return q, nil
		}
		q, err := s.provider.Fetch(ctx, ticker)
		if err != nil {
			s.fail(ticker, err)
			if ctx.Err() != nil {
				// aborted by the caller: do not cache a result we never got
				return nil, ctx.Err()
			}
			s.cache.Set(key, nil)
			return (*provider.Quote)(nil), nil
		}
		s.cache.Set(key, &q)
		return &q, nil
	})
}

// fail logs err under its own reason and counts it.
func (s *Service) fail(ticker string, err error) {
	kind := provider.KindOf(err)
	s.mu.Lock()
	s.failures[kind]++
	s.mu.Unlock()

	var pe *provider.Error
	if !errors.As(err, &pe) {
		pe = &provider.Error{Kind: kind, Ticker: ticker, Err: err}
	}

	switch kind {
	case provider.KindConfig:
		s.log.Error("api key is missing or invalid, skipping %s", ticker)
	case provider.KindTransport:
		s.log.Error("http request error for %s: %v", ticker, pe.Err)
	case provider.KindTimeout:
		s.log.Error("http request timed out for %s: %v", ticker, pe.Err)
	case provider.KindCanceled:
		s.log.Warning("fetch canceled for %s", ticker)
	case provider.KindStatus:
		s.log.Warning("http error for %s: status %d", ticker, pe.StatusCode)
	case provider.KindUpstream:
		s.log.Warning("api error for %s: %s", ticker, pe.Message)
	case provider.KindDecode:
		s.log.Error("deserialization error for %s: %v", ticker, pe.Err)
	case provider.KindShape:
		s.log.Warning("no valid time series data for %s: %s", ticker, pe.Message)
	case provider.KindEntry:
		s.log.Warning("no valid time series entry for %s: %s", ticker, pe.Message)
	case provider.KindNumber:
		s.log.Warning("failed to parse high price for %s: %q", ticker, pe.Message)
	default:
		s.log.Error("unexpected error for %s: %v", ticker, err)
	}
}

// Failures returns failure counts by kind name.
func (s *Service) Failures() map[string]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]uint64, len(s.failures))
	for k, n := range s.failures {
		out[k.String()] = n
	}
	return out
}

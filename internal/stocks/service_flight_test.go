package stocks_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"stocksrealtime/internal/provider"
	"stocksrealtime/internal/provider/cache"
	"stocksrealtime/internal/stocks"
)

func TestGetQuote_ConcurrentMissesShareOneFetch(t *testing.T) {
	t.Parallel()

	// Arrange: the fetch blocks until every caller has been started
	ctrl := gomock.NewController(t)
	p := NewMockProvider(ctrl)
	release := make(chan struct{})
	p.EXPECT().
		Fetch(gomock.Any(), "AAPL").
		DoAndReturn(func(ctx context.Context, ticker string) (provider.Quote, error) {
			<-release
			return provider.Quote{Ticker: ticker, Price: decimal.RequireFromString("10.5")}, nil
		}).
		Times(1)

	svc := stocks.NewService(p, &cache.Store{}, nil)

	// Act
	const callers = 16
	var wg sync.WaitGroup
	results := make([]*provider.Quote, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = svc.GetQuote(t.Context(), "AAPL")
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	// Assert
	for _, q := range results {
		require.NotNil(t, q)
		require.Equal(t, "10.5", q.Price.String())
	}
}

func TestGetQuote_CanceledFetchIsNotCached(t *testing.T) {
	t.Parallel()

	// Arrange
	ctrl := gomock.NewController(t)
	p := NewMockProvider(ctrl)
	p.EXPECT().
		Fetch(gomock.Any(), "AAPL").
		DoAndReturn(func(ctx context.Context, ticker string) (provider.Quote, error) {
			if err := ctx.Err(); err != nil {
				return provider.Quote{}, err
			}
			return provider.Quote{Ticker: ticker, Price: decimal.NewFromInt(7)}, nil
		}).
		Times(2)

	svc := stocks.NewService(p, &cache.Store{}, nil)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	// Act
	first := svc.GetQuote(ctx, "AAPL")
	second := svc.GetQuote(t.Context(), "AAPL")

	// Assert
	require.Nil(t, first)
	require.NotNil(t, second)
	require.True(t, decimal.NewFromInt(7).Equal(second.Price))
	require.Equal(t, uint64(1), svc.Failures()["canceled"])
}

func TestGetQuote_EveryFailureKindIsCounted(t *testing.T) {
	t.Parallel()

	kinds := []provider.Kind{
		provider.KindConfig,
		provider.KindTransport,
		provider.KindTimeout,
		provider.KindStatus,
		provider.KindUpstream,
		provider.KindDecode,
		provider.KindShape,
		provider.KindEntry,
		provider.KindNumber,
	}

	ctrl := gomock.NewController(t)
	p := NewMockProvider(ctrl)
	svc := stocks.NewService(p, &cache.Store{}, nil)

	for i, kind := range kinds {
		ticker := kind.String()
		p.EXPECT().
			Fetch(gomock.Any(), ticker).
			Return(provider.Quote{}, &provider.Error{Kind: kind, Ticker: ticker, StatusCode: 400 + i}).
			Times(1)

		require.Nil(t, svc.GetQuote(t.Context(), ticker))
		// negative cache: the second lookup stays local
		require.Nil(t, svc.GetQuote(t.Context(), ticker))
	}

	failures := svc.Failures()
	require.Len(t, failures, len(kinds))
	for _, kind := range kinds {
		require.Equal(t, uint64(1), failures[kind.String()], kind.String())
	}
}

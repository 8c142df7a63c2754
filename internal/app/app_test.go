package app_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"stocksrealtime/internal/app"
	"stocksrealtime/internal/config"
	"stocksrealtime/internal/httpx"
	"stocksrealtime/internal/provider/ratelimit"
)

const document = `{
	"Meta Data": {"2. Symbol": "MSFT"},
	"Time Series (15min)": {"2024-01-01 16:00:00": {"2. high": "410.25"}}
}`

func TestNewQuoteService_EndToEnd(t *testing.T) {
	t.Parallel()

	// Arrange: a fake upstream checking what the pipeline sends
	var hits atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		require.Equal(t, "rotated", r.URL.Query().Get("apikey"))
		require.Equal(t, "5min", r.URL.Query().Get("interval"))
		require.Equal(t, httpx.DefaultUserAgent, r.Header.Get("User-Agent"))
		fmt.Fprint(w, document)
	}))
	defer upstream.Close()

	cfg := config.Default()
	cfg.Stocks.BaseURL = upstream.URL
	cfg.Stocks.Interval = "5min"
	cfg.Stocks.MaxRequestsPerMinute = 0

	svc, err := app.NewQuoteService(cfg, nil)
	require.NoError(t, err)

	// Act + Assert: no key yet, so no request goes out
	require.Nil(t, svc.GetQuote(t.Context(), "MSFT"))
	require.Zero(t, hits.Load())

	// Act + Assert: the key is read per call; a fresh ticker picks it up
	cfg.SetAPIKey("rotated")
	q := svc.GetQuote(t.Context(), "msft")
	require.NotNil(t, q)
	require.Equal(t, "410.25", q.Price.String())
	require.Equal(t, int32(1), hits.Load())
}

func TestNewProvider_Throttle(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Stocks.MaxRequestsPerMinute = 5
	p, err := app.NewProvider(cfg)
	require.NoError(t, err)
	require.IsType(t, &ratelimit.TokenBucketProvider{}, p)

	cfg.Stocks.MaxRequestsPerMinute = 0
	cfg.Stocks.MinRequestIntervalSec = 2
	p, err = app.NewProvider(cfg)
	require.NoError(t, err)
	require.IsType(t, &ratelimit.MinInterval{}, p)

	cfg.Stocks.MinRequestIntervalSec = 0
	p, err = app.NewProvider(cfg)
	require.NoError(t, err)
	require.Equal(t, "AlphaVantage", p.Name())
}

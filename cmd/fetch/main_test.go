package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"stocksrealtime/internal/provider"
)

type fakeQuotes map[string]string

func (f fakeQuotes) GetQuote(_ context.Context, t string) *provider.Quote {
	p, ok := f[t]
	if !ok {
		return nil
	}
	return &provider.Quote{Ticker: t, Price: decimal.RequireFromString(p)}
}

func TestPrintQuotes(t *testing.T) {
	var buf bytes.Buffer

	n := printQuotes(t.Context(), &buf, fakeQuotes{"AAPL": "123.45"}, []string{"AAPL", "NOPE"})
	require.Equal(t, 1, n)

	var out struct {
		Quotes []struct {
			Ticker string `json:"ticker"`
			Price  string `json:"price"`
		} `json:"quotes"`
		Missing []string `json:"missing"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out.Quotes, 1)
	require.Equal(t, "AAPL", out.Quotes[0].Ticker)
	require.Equal(t, "123.45", out.Quotes[0].Price)
	require.Equal(t, []string{"NOPE"}, out.Missing)
}

func TestPrintQuotes_NoneResolved(t *testing.T) {
	var buf bytes.Buffer

	require.Zero(t, printQuotes(t.Context(), &buf, fakeQuotes{}, []string{"NOPE"}))
	require.Contains(t, buf.String(), `"quotes": []`)
}

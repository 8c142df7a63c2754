package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"stocksrealtime/internal/app"
	"stocksrealtime/internal/config"
	"stocksrealtime/internal/provider"
)

// quoteGetter is the part of stocks.Service the command uses.
type quoteGetter interface {
	GetQuote(ctx context.Context, ticker string) *provider.Quote
}

func main() {
	var tickersCSV string
	var configPath string
	var timeout int

	flag.StringVar(&tickersCSV, "tickers", getenv("TICKERS", "AAPL"), "comma-separated ticker symbols")
	flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to config.json or config.yaml (optional)")
	flag.IntVar(&timeout, "timeout", 15, "overall timeout seconds")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	tickers := config.SplitCSV(tickersCSV)
	if len(tickers) == 0 {
		log.Fatal("no tickers provided")
	}

	svc, err := app.NewQuoteService(cfg, app.NewLogger(cfg))
	if err != nil {
		log.Fatalf("quote service: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
	defer cancel()

	if n := printQuotes(ctx, os.Stdout, svc, tickers); n == 0 {
		log.Fatal("no quotes received")
	}
}

// printQuotes writes every resolved quote as indented JSON and returns how
// many there were.
func printQuotes(ctx context.Context, w io.Writer, svc quoteGetter, tickers []string) int {
	out := struct {
		Quotes  []provider.Quote `json:"quotes"`
		Missing []string         `json:"missing,omitempty"`
	}{Quotes: []provider.Quote{}}

	for _, t := range tickers {
		if q := svc.GetQuote(ctx, t); q != nil {
			out.Quotes = append(out.Quotes, *q)
		} else {
			out.Missing = append(out.Missing, t)
		}
	}

	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Fprintln(w, string(b))
	return len(out.Quotes)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stocksrealtime/internal/app"
	"stocksrealtime/internal/config"
	"stocksrealtime/internal/feed"
	"stocksrealtime/internal/logger"
	"stocksrealtime/internal/server"
	"stocksrealtime/internal/ticker"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	root := app.NewLogger(cfg)

	quotes, err := app.NewQuoteService(cfg, root)
	if err != nil {
		log.Fatalf("quote service: %v", err)
	}

	tickers := ticker.NewRegistry()
	srv := server.New(server.Config{
		RequestTimeout: time.Duration(cfg.Server.RequestTimeoutSec) * time.Second,
		Debug:          logger.ParseLevel(cfg.Server.LogLevel) == logger.LevelDebug,
	}, tickers, quotes, root.Named("server"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go srv.Run(ctx)
	if cfg.Feed.Enabled {
		updater := &feed.Updater{
			Tickers:        tickers,
			Quotes:         quotes,
			Out:            srv,
			Interval:       time.Duration(cfg.Feed.UpdateIntervalSec) * time.Second,
			MaxConcurrency: cfg.Feed.MaxConcurrency,
			Log:            root.Named("feed"),
		}
		go updater.Run(ctx)
	}

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		root.Info("server listening on :%s", cfg.Server.Port)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	// graceful shutdown
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	root.Info("server stopped")
}

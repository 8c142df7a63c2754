// Package server exposes quotes over HTTP and pushes live prices to
// websocket subscribers.
package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"stocksrealtime/internal/logger"
	"stocksrealtime/internal/provider"
	"stocksrealtime/internal/ticker"
)

// QuoteService is the subset of stocks.Service the server needs.
type QuoteService interface {
	GetQuote(ctx context.Context, ticker string) *provider.Quote
	Failures() map[string]uint64
}

type Config struct {
	RequestTimeout time.Duration // per lookup, default: 10s
	Debug          bool          // gin debug mode and request logging
}

type Server struct {
	cfg     Config
	tickers *ticker.Registry
	quotes  QuoteService
	log     *logger.Logger
	engine  *gin.Engine
	hub     *hub
}

func New(cfg Config, tickers *ticker.Registry, quotes QuoteService, log *logger.Logger) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:     cfg,
		tickers: tickers,
		quotes:  quotes,
		log:     log,
		engine:  gin.New(),
		hub:     newHub(log),
	}
	s.engine.Use(gin.Recovery(), s.corsHeaders)
	if cfg.Debug {
		s.engine.Use(s.requestLog)
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", s.getHealth)
	s.engine.GET("/api/stocks/:ticker", s.getStock)
	s.engine.GET("/api/tickers", s.getTickers)
	s.engine.GET("/ws", s.handleWebSocket)
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler { return s.engine }

// Run drives websocket fan-out until ctx ends, then disconnects every
// client. Broadcasts sent before Run starts are dropped.
func (s *Server) Run(ctx context.Context) {
	s.hub.run(ctx)
}

// Broadcast queues q for the subscribers of its ticker without blocking.
func (s *Server) Broadcast(q provider.Quote) {
	s.hub.publish(q)
}

func (s *Server) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"tickers":  s.tickers.Len(),
		"clients":  s.hub.connected.Load(),
		"failures": s.quotes.Failures(),
	})
}

func (s *Server) getStock(c *gin.Context) {
	t := strings.TrimSpace(c.Param("ticker"))
	if t == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing ticker"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.RequestTimeout)
	defer cancel()
	q := s.quotes.GetQuote(ctx, t)
	if q == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no quote available for " + t})
		return
	}
	s.tickers.Add(t)
	c.JSON(http.StatusOK, q)
}

func (s *Server) getTickers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tickers": s.tickers.Snapshot()})
}

func (s *Server) corsHeaders(c *gin.Context) {
	h := c.Writer.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}
	c.Next()
}

func (s *Server) requestLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.log.Debug("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
}

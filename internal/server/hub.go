package server

import (
	"context"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"stocksrealtime/internal/logger"
	"stocksrealtime/internal/provider"
)

// PriceMessage is pushed to every subscriber of Ticker.
type PriceMessage struct {
	Type   string          `json:"type"`
	Ticker string          `json:"ticker"`
	Price  decimal.Decimal `json:"price"`
}

func newPriceMessage(q provider.Quote) PriceMessage {
	return PriceMessage{Type: "price", Ticker: q.Ticker, Price: q.Price}
}

type subscription struct {
	client *Client
	ticker string
	join   bool
}

type delivery struct {
	client *Client
	quote  provider.Quote
}

// hub owns the client set. Only run touches clients; everything else
// talks to it over channels.
type hub struct {
	log *logger.Logger

	register   chan *Client
	unregister chan *Client
	subscribe  chan subscription
	direct     chan delivery
	broadcast  chan provider.Quote
	done       chan struct{}

	clients   map[*Client]map[string]struct{}
	connected atomic.Int64
}

func newHub(log *logger.Logger) *hub {
	return &hub{
		log:        log,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		subscribe:  make(chan subscription),
		direct:     make(chan delivery, 64),
		broadcast:  make(chan provider.Quote, 256),
		done:       make(chan struct{}),
		clients:    make(map[*Client]map[string]struct{}),
	}
}

func (h *hub) run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return

		case c := <-h.register:
			h.clients[c] = make(map[string]struct{})
			h.connected.Add(1)

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
			}

		case s := <-h.subscribe:
			subs, ok := h.clients[s.client]
			if !ok {
				continue
			}
			if s.join {
				subs[s.ticker] = struct{}{}
			} else {
				delete(subs, s.ticker)
			}

		case d := <-h.direct:
			if subs, ok := h.clients[d.client]; ok {
				if _, ok := subs[d.quote.Ticker]; ok {
					h.send(d.client, newPriceMessage(d.quote))
				}
			}

		case q := <-h.broadcast:
			msg := newPriceMessage(q)
			for c, subs := range h.clients {
				if _, ok := subs[q.Ticker]; ok {
					h.send(c, msg)
				}
			}
		}
	}
}

// send never blocks the loop: a client whose buffer is full is dropped.
func (h *hub) send(c *Client, msg PriceMessage) {
	select {
	case c.send <- msg:
	default:
		h.log.Warning("client too slow, disconnecting")
		h.drop(c)
	}
}

func (h *hub) drop(c *Client) {
	delete(h.clients, c)
	close(c.send)
	h.connected.Add(-1)
}

func (h *hub) publish(q provider.Quote) {
	select {
	case h.broadcast <- q:
	default:
		h.log.Warning("broadcast queue full, dropping price for %s", q.Ticker)
	}
}

func (h *hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *hub) setSubscription(c *Client, ticker string, join bool) {
	select {
	case h.subscribe <- subscription{client: c, ticker: ticker, join: join}:
	case <-h.done:
	}
}

func (h *hub) deliver(c *Client, q provider.Quote) {
	select {
	case h.direct <- delivery{client: c, quote: q}:
	case <-h.done:
	}
}

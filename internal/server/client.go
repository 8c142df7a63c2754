package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 64
)

// Command is what a websocket client sends to follow or stop following
// a ticker: {"command":"join","ticker":"AAPL"}.
type Command struct {
	Command string `json:"command"`
	Ticker  string `json:"ticker"`
}

type Client struct {
	srv  *Server
	conn *websocket.Conn
	send chan PriceMessage

	ctx    context.Context
	cancel context.CancelFunc
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warning("failed to upgrade websocket: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		srv:    s,
		conn:   conn,
		send:   make(chan PriceMessage, sendBuffer),
		ctx:    ctx,
		cancel: cancel,
	}
	if !s.hub.join(client) {
		cancel()
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump reads commands until the connection fails.
func (c *Client) readPump() {
	defer func() {
		c.cancel()
		c.srv.hub.leave(c)
		c.conn.Close()
		c.srv.log.Debug("client disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.srv.log.Warning("websocket error: %v", err)
			}
			return
		}
		c.handleCommand(message)
	}
}

func (c *Client) handleCommand(message []byte) {
	var cmd Command
	if err := json.Unmarshal(message, &cmd); err != nil {
		c.srv.log.Warning("failed to parse client command: %v", err)
		return
	}
	t := strings.TrimSpace(cmd.Ticker)
	if t == "" {
		c.srv.log.Warning("client command %q without ticker", cmd.Command)
		return
	}

	switch cmd.Command {
	case "join":
		c.srv.tickers.Add(t)
		c.srv.hub.setSubscription(c, t, true)
		go c.pushCurrent(t)
	case "leave":
		c.srv.hub.setSubscription(c, t, false)
	default:
		c.srv.log.Warning("unknown client command %q", cmd.Command)
	}
}

// pushCurrent sends the latest known price right after a join so the
// client does not wait for the next update pass.
func (c *Client) pushCurrent(t string) {
	ctx, cancel := context.WithTimeout(c.ctx, c.srv.cfg.RequestTimeout)
	defer cancel()
	if q := c.srv.quotes.GetQuote(ctx, t); q != nil {
		c.srv.hub.deliver(c, *q)
	}
}

// writePump sends queued prices and keeps the connection alive with pings.
func (c *Client) writePump() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.srv.log.Warning("write error: %v", err)
				return
			}

		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

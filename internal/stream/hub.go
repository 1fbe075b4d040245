// Package stream pushes committed marketplace events to websocket clients.
package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/resalehub/internal/marketplace"
)

const (
	sendBuffer = 256
	writeWait  = 10 * time.Second
)

type wsEvent struct {
	Type string            `json:"type"`
	Data marketplace.Event `json:"data"`
}

type client struct {
	conn    *websocket.Conn
	send    chan []byte
	address string
	last    uint64
}

func (c *client) wants(ev marketplace.Event) bool {
	if ev.Seq <= c.last {
		return false
	}
	return c.address == "" || ev.Actor == c.address || ev.Counterparty == c.address
}

// ReplayFunc returns up to limit events with Seq > after.
type ReplayFunc func(after uint64, limit int) []marketplace.Event

// Hub fans events out to connected clients. It is an engine subscriber.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	replay  ReplayFunc
	logger  *slog.Logger
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// NewHub creates a hub. replay may be nil, in which case ?after= is ignored.
func NewHub(replay ReplayFunc, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		replay:  replay,
		logger:  logger,
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// HandleEvents broadcasts a batch. Clients that cannot keep up are dropped.
func (h *Hub) HandleEvents(_ context.Context, events []marketplace.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ev := range events {
		payload, err := encode(ev)
		if err != nil {
			return err
		}
		for c := range h.clients {
			if !c.wants(ev) {
				continue
			}
			h.deliver(c, ev.Seq, payload)
		}
	}
	return nil
}

// deliver must be called with h.mu held.
func (h *Hub) deliver(c *client, seq uint64, payload []byte) {
	select {
	case c.send <- payload:
		c.last = seq
	default:
		h.logger.Warn("stream client too slow, dropping", "address", c.address, "seq", seq)
		h.detachLocked(c)
	}
}

func encode(ev marketplace.Event) ([]byte, error) {
	return json.Marshal(wsEvent{Type: string(ev.Type), Data: ev})
}

// catchUp writes replayed events straight to the connection, a page at a
// time, until the remaining backlog fits in the send buffer. It runs before
// the client is registered, so nothing else writes to conn.
func (h *Hub) catchUp(c *client) error {
	for {
		page := h.replay(c.last, sendBuffer)
		for _, ev := range page {
			if c.wants(ev) {
				payload, err := encode(ev)
				if err != nil {
					return err
				}
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					return err
				}
			}
			c.last = ev.Seq
		}
		if len(page) < sendBuffer {
			return nil
		}
	}
}

// attach queues the replay tail and registers c under one lock, so no
// broadcast can slip between them. It reports false without registering
// when the tail would not fit in the send buffer.
func (h *Hub) attach(c *client, replay bool) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if replay && h.replay != nil {
		page := h.replay(c.last, sendBuffer)
		if len(page) >= sendBuffer {
			return false
		}
		for _, ev := range page {
			if c.wants(ev) {
				payload, err := encode(ev)
				if err != nil {
					continue
				}
				c.send <- payload
			}
			c.last = ev.Seq
		}
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) detach(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detachLocked(c)
}

func (h *Hub) detachLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// Serve upgrades the request to a websocket and streams events to it.
// ?address= limits the stream to events where the address is actor or
// counterparty; ?after= replays retained events with a greater Seq first.
func (h *Hub) Serve(c echo.Context) error {
	var (
		after  uint64
		replay bool
	)
	if raw := c.QueryParam("after"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "after must be a sequence number"})
		}
		after, replay = n, true
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	cl := &client{
		conn:    ws,
		send:    make(chan []byte, sendBuffer),
		address: c.QueryParam("address"),
		last:    after,
	}
	for !h.attach(cl, replay) {
		if err := h.catchUp(cl); err != nil {
			h.logger.Debug("stream replay failed", "address", cl.address, "err", err)
			_ = ws.Close()
			return nil
		}
	}
	h.logger.Debug("stream client connected", "address", cl.address, "after", after)

	go h.writePump(cl)

	// server push only; reads just detect the close
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			h.detach(cl)
			h.logger.Debug("stream client disconnected", "address", cl.address)
			return nil
		}
	}
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for payload := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.detach(c)
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

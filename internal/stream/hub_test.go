package stream

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/resalehub/internal/marketplace"
)

func newTestServer(t *testing.T, replay ReplayFunc) (*Hub, *httptest.Server) {
	t.Helper()
	h := NewHub(replay, slog.New(slog.NewTextHandler(io.Discard, nil)))
	e := echo.New()
	e.GET("/stream", h.Serve)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return h, srv
}

func dialNoWait(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func dial(t *testing.T, h *Hub, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	want := h.Len() + 1
	conn := dialNoWait(t, srv, query)

	deadline := time.Now().Add(2 * time.Second)
	for h.Len() < want {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) wsEvent {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev wsEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return ev
}

func TestBroadcastToAllClients(t *testing.T) {
	h, srv := newTestServer(t, nil)
	a := dial(t, h, srv, "")
	b := dial(t, h, srv, "")

	err := h.HandleEvents(context.Background(), []marketplace.Event{
		{Seq: 1, Type: marketplace.EventItemCreated, ItemID: "item-1", Actor: "0xseller"},
	})
	if err != nil {
		t.Fatalf("HandleEvents: %v", err)
	}
	for _, conn := range []*websocket.Conn{a, b} {
		ev := readEvent(t, conn)
		if ev.Type != "ItemCreated" || ev.Data.ItemID != "item-1" {
			t.Fatalf("got %+v", ev)
		}
	}
}

func TestAddressFilter(t *testing.T) {
	h, srv := newTestServer(t, nil)
	conn := dial(t, h, srv, "?address=0xbuyer")

	_ = h.HandleEvents(context.Background(), []marketplace.Event{
		{Seq: 1, Type: marketplace.EventItemCreated, Actor: "0xseller"},
		{Seq: 2, Type: marketplace.EventOfferCreated, Actor: "0xbuyer", Counterparty: "0xseller"},
		{Seq: 3, Type: marketplace.EventOfferAccepted, Actor: "0xseller", Counterparty: "0xbuyer"},
	})
	if ev := readEvent(t, conn); ev.Data.Seq != 2 {
		t.Fatalf("first seq = %d, want 2", ev.Data.Seq)
	}
	if ev := readEvent(t, conn); ev.Data.Seq != 3 {
		t.Fatalf("second seq = %d, want 3", ev.Data.Seq)
	}
}

func TestReplayThenLiveWithoutDuplicates(t *testing.T) {
	log := []marketplace.Event{
		{Seq: 1, Type: marketplace.EventItemCreated, Actor: "0xseller"},
		{Seq: 2, Type: marketplace.EventPriceUpdated, Actor: "0xseller"},
	}
	replay := func(after uint64, limit int) []marketplace.Event {
		var out []marketplace.Event
		for _, ev := range log {
			if ev.Seq > after {
				out = append(out, ev)
			}
		}
		return out
	}
	h, srv := newTestServer(t, replay)
	conn := dial(t, h, srv, "?after=1")

	if ev := readEvent(t, conn); ev.Data.Seq != 2 {
		t.Fatalf("replayed seq = %d, want 2", ev.Data.Seq)
	}
	// the engine may still deliver an event the client already replayed
	_ = h.HandleEvents(context.Background(), []marketplace.Event{
		log[1],
		{Seq: 3, Type: marketplace.EventItemCancelled, Actor: "0xseller"},
	})
	if ev := readEvent(t, conn); ev.Data.Seq != 3 {
		t.Fatalf("live seq = %d, want 3", ev.Data.Seq)
	}
}

func TestReplayLargerThanSendBuffer(t *testing.T) {
	const backlog = sendBuffer + 44
	var log []marketplace.Event
	for i := 1; i <= backlog; i++ {
		log = append(log, marketplace.Event{Seq: uint64(i), Type: marketplace.EventWalletTopUp, Actor: "0xbuyer"})
	}
	replay := func(after uint64, limit int) []marketplace.Event {
		var out []marketplace.Event
		for _, ev := range log {
			if ev.Seq > after && len(out) < limit {
				out = append(out, ev)
			}
		}
		return out
	}
	h, srv := newTestServer(t, replay)
	conn := dialNoWait(t, srv, "?after=0")

	for want := uint64(1); want <= backlog; want++ {
		if ev := readEvent(t, conn); ev.Data.Seq != want {
			t.Fatalf("replayed seq = %d, want %d", ev.Data.Seq, want)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for h.Len() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	_ = h.HandleEvents(context.Background(), []marketplace.Event{
		log[backlog-1],
		{Seq: backlog + 1, Type: marketplace.EventWalletTopUp, Actor: "0xbuyer"},
	})
	if ev := readEvent(t, conn); ev.Data.Seq != backlog+1 {
		t.Fatalf("live seq = %d, want %d", ev.Data.Seq, backlog+1)
	}
}

func TestBadAfterRejected(t *testing.T) {
	_, srv := newTestServer(t, nil)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream?after=x"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("dial succeeded")
	}
	if resp == nil || resp.StatusCode != 400 {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestDisconnectRemovesClient(t *testing.T) {
	h, srv := newTestServer(t, nil)
	conn := dial(t, h, srv, "")
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for h.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client not removed after close")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

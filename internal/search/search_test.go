package search

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/sudo-init-do/resalehub/internal/engine"
	"github.com/sudo-init-do/resalehub/internal/marketplace"
)

func TestTerms(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Vintage Leather Jacket", []string{"vintage", "leather", "jacket"}},
		{"  size-M, size L!  ", []string{"size"}},
		{"iPhone 12 iphone", []string{"iphone", "12"}},
		{"", []string{}},
		{"a b c", []string{}},
	}
	for _, tt := range tests {
		got := Terms(tt.in)
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Terms(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMatch(t *testing.T) {
	it := marketplace.Item{
		Title:       "Road bike",
		Description: "Carbon frame, 56cm",
		Category:    "Sports",
		Tags:        []string{"cycling"},
	}
	tests := []struct {
		q    string
		want bool
	}{
		{"road", true},
		{"ROAD carbon", true},
		{"sports cycling 56cm", true},
		{"road steel", false},
		{"mountain", false},
	}
	for _, tt := range tests {
		if got := Match(it, Terms(tt.q)); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.q, got, tt.want)
		}
	}
}

func TestSortNewest(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	items := []marketplace.Item{
		{ID: "b", CreatedAt: base},
		{ID: "c", CreatedAt: base.Add(time.Hour)},
		{ID: "a", CreatedAt: base},
	}
	SortNewest(items)
	var ids []string
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	if !reflect.DeepEqual(ids, []string{"c", "a", "b"}) {
		t.Fatalf("order = %v", ids)
	}
}

func TestMirrorRetriesFailedIndex(t *testing.T) {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.New(nil, nil, engine.WithLogger(quiet))
	m := NewMirror(nil, eng.Item, quiet)

	var (
		mu      sync.Mutex
		calls   int
		indexed = map[string]bool{}
	)
	m.index = func(_ context.Context, it marketplace.Item) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return errors.New("connection refused")
		}
		indexed[it.ID] = true
		return nil
	}

	eng.Subscribe("search", m, 0, 0)
	eng.Start(context.Background())
	defer eng.Stop()

	it, err := eng.CreateItem("0xseller", marketplace.NewItem{Title: "Road bike", Description: "carbon", Price: 5})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		mu.Lock()
		done := indexed[it.ID]
		mu.Unlock()
		if done {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("item was never indexed after the failed attempt")
		}
		time.Sleep(10 * time.Millisecond)
	}

	st := eng.Subscribers()
	if len(st) != 1 || st[0].Failures < 1 {
		t.Fatalf("unexpected status %+v", st)
	}
}

// TestMirrorRedis needs a running Redis; set REDIS_ADDR to enable it.
func TestMirrorRedis(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	items := map[string]marketplace.Item{}
	m := NewMirror(client, func(id string) (marketplace.Item, bool) {
		it, ok := items[id]
		return it, ok
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	m.prefix = "test:" + time.Now().Format("150405.000000") + ":"
	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, m.prefix+"*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
	})

	now := time.Now().UTC()
	items["i1"] = marketplace.Item{ID: "i1", Title: "Road bike", Description: "carbon", Status: marketplace.ItemActive, CreatedAt: now}
	items["i2"] = marketplace.Item{ID: "i2", Title: "Mountain bike", Description: "steel", Status: marketplace.ItemActive, CreatedAt: now.Add(time.Second)}
	err := m.HandleEvents(ctx, []marketplace.Event{
		{Seq: 1, Type: marketplace.EventItemCreated, ItemID: "i1"},
		{Seq: 2, Type: marketplace.EventItemCreated, ItemID: "i2"},
	})
	if err != nil {
		t.Fatalf("HandleEvents: %v", err)
	}

	got, err := m.Query(ctx, "bike", 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 || got[0].ID != "i2" {
		t.Fatalf("bike results = %+v", got)
	}

	it := items["i1"]
	it.Status = marketplace.ItemSold
	items["i1"] = it
	_ = m.HandleEvents(ctx, []marketplace.Event{{Seq: 3, Type: marketplace.EventItemMarkedSold, ItemID: "i1"}})

	got, _ = m.Query(ctx, "bike", 0)
	if len(got) != 1 || got[0].ID != "i2" {
		t.Fatalf("after sale results = %+v", got)
	}
	if got, _ := m.Query(ctx, "road", 0); len(got) != 0 {
		t.Fatalf("sold item still searchable: %+v", got)
	}
}

// Package search keeps a keyword index of listings in Redis. It is fed by the
// engine's event stream and answers AND-of-keywords queries over active items.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/go-redis/redis/v8"

	"github.com/sudo-init-do/resalehub/internal/marketplace"
)

// LookupFunc resolves an item id against the live registry.
type LookupFunc func(id string) (marketplace.Item, bool)

// Mirror is an engine subscriber that indexes items in Redis.
type Mirror struct {
	client *redis.Client
	lookup LookupFunc
	prefix string
	index  func(context.Context, marketplace.Item) error
	logger *slog.Logger
}

// NewMirror creates a mirror that resolves item state through lookup.
func NewMirror(client *redis.Client, lookup LookupFunc, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Mirror{client: client, lookup: lookup, prefix: "search:", logger: logger}
	m.index = m.Index
	return m
}

func (m *Mirror) itemKey(id string) string   { return m.prefix + "item:" + id }
func (m *Mirror) termsKey(id string) string  { return m.prefix + "item:" + id + ":terms" }
func (m *Mirror) termKey(term string) string { return m.prefix + "term:" + term }
func (m *Mirror) activeKey() string          { return m.prefix + "active" }

func touchesItem(t marketplace.EventType) bool {
	switch t {
	case marketplace.EventItemCreated,
		marketplace.EventPriceUpdated,
		marketplace.EventItemCancelled,
		marketplace.EventItemMarkedSold,
		marketplace.EventItemSold:
		return true
	}
	return false
}

// HandleEvents reindexes every item the batch touched. The first Redis
// failure is returned so the engine redelivers the batch from the same
// cursor; reindexing is idempotent.
func (m *Mirror) HandleEvents(ctx context.Context, events []marketplace.Event) error {
	done := make(map[string]bool)
	for _, ev := range events {
		if ev.ItemID == "" || !touchesItem(ev.Type) || done[ev.ItemID] {
			continue
		}
		done[ev.ItemID] = true
		it, ok := m.lookup(ev.ItemID)
		if !ok {
			continue
		}
		if err := m.index(ctx, it); err != nil {
			return fmt.Errorf("index item %s at seq %d: %w", it.ID, ev.Seq, err)
		}
	}
	return nil
}

// Reindex indexes items in bulk, e.g. after a restore.
func (m *Mirror) Reindex(ctx context.Context, items []marketplace.Item) error {
	for _, it := range items {
		if err := m.Index(ctx, it); err != nil {
			return err
		}
	}
	m.logger.Info("search index rebuilt", "items", len(items))
	return nil
}

// Index writes the current state of it, replacing the terms it had before.
func (m *Mirror) Index(ctx context.Context, it marketplace.Item) error {
	old, err := m.client.SMembers(ctx, m.termsKey(it.ID)).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("read old terms for %s: %w", it.ID, err)
	}
	terms := ItemTerms(it)

	pipe := m.client.TxPipeline()
	for _, t := range old {
		pipe.SRem(ctx, m.termKey(t), it.ID)
	}
	pipe.Del(ctx, m.termsKey(it.ID))
	pipe.HSet(ctx, m.itemKey(it.ID),
		"title", it.Title,
		"category", it.Category,
		"seller", it.Seller,
		"price", strconv.FormatInt(it.Price, 10),
		"status", string(it.Status),
	)
	for _, t := range terms {
		pipe.SAdd(ctx, m.termKey(t), it.ID)
		pipe.SAdd(ctx, m.termsKey(it.ID), t)
	}
	if it.Status == marketplace.ItemActive {
		pipe.SAdd(ctx, m.activeKey(), it.ID)
	} else {
		pipe.SRem(ctx, m.activeKey(), it.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("index %s: %w", it.ID, err)
	}
	return nil
}

// Query returns active items matching every keyword in q, newest first.
// An empty query matches nothing.
func (m *Mirror) Query(ctx context.Context, q string, limit int) ([]marketplace.Item, error) {
	terms := Terms(q)
	if len(terms) == 0 {
		return []marketplace.Item{}, nil
	}
	keys := []string{m.activeKey()}
	for _, t := range terms {
		keys = append(keys, m.termKey(t))
	}
	ids, err := m.client.SInter(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", q, err)
	}

	out := make([]marketplace.Item, 0, len(ids))
	for _, id := range ids {
		// the registry is authoritative; the mirror may lag
		it, ok := m.lookup(id)
		if !ok || it.Status != marketplace.ItemActive || !Match(it, terms) {
			continue
		}
		out = append(out, it)
	}
	SortNewest(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SortNewest orders items by CreatedAt descending, then by id.
func SortNewest(items []marketplace.Item) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
}

// Package journal projects committed marketplace state into Postgres and
// reads it back on boot.
package journal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sudo-init-do/resalehub/internal/marketplace"
)

// Source is the read side of the engine the writer snapshots records from.
type Source interface {
	Item(id string) (marketplace.Item, bool)
	Offer(id string) (marketplace.Offer, bool)
	Escrow(id string) (marketplace.Escrow, bool)
	Balance(addr string) int64
}

// Metrics tracks writer performance.
type Metrics struct {
	Events    int64 `json:"events"`
	Conflicts int64 `json:"conflicts"`
	Flushes   int64 `json:"flushes"`
	Errors    int64 `json:"errors"`
}

// Writer is an engine subscriber. For each batch it writes the events and
// upserts the current state of every record and balance they touch, all in
// one transaction. Replaying a batch is harmless.
type Writer struct {
	pool   *pgxpool.Pool
	src    Source
	logger *slog.Logger

	mu      sync.Mutex
	metrics Metrics
}

// NewWriter creates a journal writer.
func NewWriter(pool *pgxpool.Pool, src Source, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{pool: pool, src: src, logger: logger}
}

// Metrics returns a copy of the current counters.
func (w *Writer) Metrics() Metrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.metrics
}

// HandleEvents implements engine.Handler.
func (w *Writer) HandleEvents(ctx context.Context, events []marketplace.Event) error {
	start := time.Now()
	conflicts, err := w.write(ctx, events)

	w.mu.Lock()
	if err != nil {
		w.metrics.Errors++
	} else {
		w.metrics.Events += int64(len(events) - conflicts)
		w.metrics.Conflicts += int64(conflicts)
		w.metrics.Flushes++
	}
	w.mu.Unlock()

	if err != nil {
		return fmt.Errorf("journal seq %d-%d: %w", events[0].Seq, events[len(events)-1].Seq, err)
	}
	w.logger.Debug("journal flushed",
		"count", len(events),
		"conflicts", conflicts,
		"last_seq", events[len(events)-1].Seq,
		"duration", time.Since(start),
	)
	return nil
}

func (w *Writer) write(ctx context.Context, events []marketplace.Event) (int, error) {
	batch := &pgx.Batch{}
	for _, ev := range events {
		batch.Queue(`
			INSERT INTO events (seq, id, type, item_id, offer_id, escrow_id, actor, counterparty, amount, old_price, new_price, category, ts)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (seq) DO NOTHING
		`, int64(ev.Seq), ev.ID, string(ev.Type), ev.ItemID, ev.OfferID, ev.EscrowID,
			ev.Actor, ev.Counterparty, ev.Amount, ev.OldPrice, ev.NewPrice, ev.Category, ev.Timestamp)
	}
	eventCount := batch.Len()

	touched := collect(events)
	for _, id := range touched.items {
		if it, ok := w.src.Item(id); ok {
			queueItem(batch, it)
		}
	}
	for _, id := range touched.offers {
		if o, ok := w.src.Offer(id); ok {
			queueOffer(batch, o)
		}
	}
	for _, id := range touched.escrows {
		if e, ok := w.src.Escrow(id); ok {
			queueEscrow(batch, e)
		}
	}
	for _, addr := range touched.addrs {
		batch.Queue(`
			INSERT INTO balances (address, balance, updated_at) VALUES ($1, $2, NOW())
			ON CONFLICT (address) DO UPDATE SET balance = EXCLUDED.balance, updated_at = NOW()
		`, addr, w.src.Balance(addr))
	}

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	results := tx.SendBatch(ctx, batch)
	conflicts := 0
	for i := 0; i < batch.Len(); i++ {
		ct, err := results.Exec()
		if err != nil {
			results.Close()
			return 0, err
		}
		if i < eventCount && ct.RowsAffected() == 0 {
			conflicts++
		}
	}
	if err := results.Close(); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return conflicts, nil
}

type touchedSet struct {
	items, offers, escrows, addrs []string
}

// collect lists ids in first-seen order so parents are written before
// the rows that reference them.
func collect(events []marketplace.Event) touchedSet {
	var t touchedSet
	seen := make(map[string]bool)
	add := func(list *[]string, kind, id string) {
		if id == "" || seen[kind+id] {
			return
		}
		seen[kind+id] = true
		*list = append(*list, id)
	}
	for _, ev := range events {
		add(&t.items, "i", ev.ItemID)
		add(&t.offers, "o", ev.OfferID)
		add(&t.escrows, "e", ev.EscrowID)
		add(&t.addrs, "a", ev.Actor)
		add(&t.addrs, "a", ev.Counterparty)
	}
	return t
}

func queueItem(b *pgx.Batch, it marketplace.Item) {
	b.Queue(`
		INSERT INTO items (id, seller, title, description, price, category, tags, image_refs, attributes, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET price = EXCLUDED.price, status = EXCLUDED.status
	`, it.ID, it.Seller, it.Title, it.Description, it.Price, it.Category,
		nonNil(it.Tags), nonNil(it.ImageRefs), it.Attributes, string(it.Status), it.CreatedAt)
}

func queueOffer(b *pgx.Batch, o marketplace.Offer) {
	b.Queue(`
		INSERT INTO offers (id, item_id, buyer, seller, amount, message, status, countered, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET amount = EXCLUDED.amount, message = EXCLUDED.message,
			status = EXCLUDED.status, countered = EXCLUDED.countered
	`, o.ID, o.ItemID, o.Buyer, o.Seller, o.Amount, o.Message, string(o.Status), o.Countered, o.ExpiresAt, o.CreatedAt)
}

func queueEscrow(b *pgx.Batch, e marketplace.Escrow) {
	b.Queue(`
		INSERT INTO escrows (id, offer_id, item_id, buyer, seller, amount, held, status, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET held = EXCLUDED.held, status = EXCLUDED.status,
			completed_at = EXCLUDED.completed_at
	`, e.ID, e.OfferID, e.ItemID, e.Buyer, e.Seller, e.Amount, e.Held, string(e.Status), e.CreatedAt, e.CompletedAt)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

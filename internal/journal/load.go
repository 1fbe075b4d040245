package journal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sudo-init-do/resalehub/internal/marketplace"
)

// Load reads the whole projection back for Engine.Restore.
func Load(ctx context.Context, pool *pgxpool.Pool) (marketplace.Snapshot, map[string]int64, error) {
	var (
		snap marketplace.Snapshot
		err  error
	)
	if snap.Items, err = loadItems(ctx, pool); err != nil {
		return snap, nil, fmt.Errorf("load items: %w", err)
	}
	if snap.Offers, err = loadOffers(ctx, pool); err != nil {
		return snap, nil, fmt.Errorf("load offers: %w", err)
	}
	if snap.Escrows, err = loadEscrows(ctx, pool); err != nil {
		return snap, nil, fmt.Errorf("load escrows: %w", err)
	}
	if snap.Events, err = loadEvents(ctx, pool); err != nil {
		return snap, nil, fmt.Errorf("load events: %w", err)
	}
	balances, err := loadBalances(ctx, pool)
	if err != nil {
		return snap, nil, fmt.Errorf("load balances: %w", err)
	}
	return snap, balances, nil
}

func loadItems(ctx context.Context, pool *pgxpool.Pool) ([]marketplace.Item, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, seller, title, description, price, category, tags, image_refs, attributes, status, created_at
		FROM items`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (marketplace.Item, error) {
		var (
			it     marketplace.Item
			status string
		)
		err := row.Scan(&it.ID, &it.Seller, &it.Title, &it.Description, &it.Price, &it.Category,
			&it.Tags, &it.ImageRefs, &it.Attributes, &status, &it.CreatedAt)
		it.Status = marketplace.ItemStatus(status)
		return it, err
	})
}

func loadOffers(ctx context.Context, pool *pgxpool.Pool) ([]marketplace.Offer, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, item_id, buyer, seller, amount, message, status, countered, expires_at, created_at
		FROM offers`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (marketplace.Offer, error) {
		var (
			o      marketplace.Offer
			status string
		)
		err := row.Scan(&o.ID, &o.ItemID, &o.Buyer, &o.Seller, &o.Amount, &o.Message,
			&status, &o.Countered, &o.ExpiresAt, &o.CreatedAt)
		o.Status = marketplace.OfferStatus(status)
		return o, err
	})
}

func loadEscrows(ctx context.Context, pool *pgxpool.Pool) ([]marketplace.Escrow, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, offer_id, item_id, buyer, seller, amount, held, status, created_at, completed_at
		FROM escrows`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (marketplace.Escrow, error) {
		var (
			e      marketplace.Escrow
			status string
		)
		err := row.Scan(&e.ID, &e.OfferID, &e.ItemID, &e.Buyer, &e.Seller, &e.Amount, &e.Held,
			&status, &e.CreatedAt, &e.CompletedAt)
		e.Status = marketplace.EscrowStatus(status)
		return e, err
	})
}

func loadEvents(ctx context.Context, pool *pgxpool.Pool) ([]marketplace.Event, error) {
	rows, err := pool.Query(ctx, `
		SELECT seq, id, type, item_id, offer_id, escrow_id, actor, counterparty, amount, old_price, new_price, category, ts
		FROM events ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (marketplace.Event, error) {
		var (
			ev  marketplace.Event
			seq int64
			typ string
		)
		err := row.Scan(&seq, &ev.ID, &typ, &ev.ItemID, &ev.OfferID, &ev.EscrowID, &ev.Actor,
			&ev.Counterparty, &ev.Amount, &ev.OldPrice, &ev.NewPrice, &ev.Category, &ev.Timestamp)
		ev.Seq = uint64(seq)
		ev.Type = marketplace.EventType(typ)
		return ev, err
	})
}

func loadBalances(ctx context.Context, pool *pgxpool.Pool) (map[string]int64, error) {
	rows, err := pool.Query(ctx, `SELECT address, balance FROM balances`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var (
			addr string
			bal  int64
		)
		if err := rows.Scan(&addr, &bal); err != nil {
			return nil, err
		}
		out[addr] = bal
	}
	return out, rows.Err()
}

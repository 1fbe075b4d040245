package db

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sudo-init-do/resalehub/internal/config"
)

// BuildConnString builds a PostgreSQL connection string from config.
func BuildConnString(cfg config.DBConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = config.DefaultDBSSLMode
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(cfg.User),
		url.QueryEscape(cfg.Password),
		cfg.Host,
		cfg.Port,
		cfg.Name,
		sslMode,
	)
}

// Connect opens a pool, pings it and makes sure the journal tables exist.
func Connect(ctx context.Context, cfg config.DBConfig, log *slog.Logger) (*pgxpool.Pool, error) {
	if log == nil {
		log = slog.Default()
	}
	poolCfg, err := pgxpool.ParseConfig(BuildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	log.Info("connected to postgres", "host", cfg.Host, "db", cfg.Name)

	if err := EnsureSchema(ctx, pool, log); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// EnsureSchema creates the journal tables if they are missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) error {
	steps := []struct {
		table string
		fn    func(context.Context, *pgxpool.Pool) error
	}{
		{"items", ensureItemsTable},
		{"offers", ensureOffersTable},
		{"escrows", ensureEscrowsTable},
		{"balances", ensureBalancesTable},
		{"events", ensureEventsTable},
	}
	for _, s := range steps {
		if err := s.fn(ctx, pool); err != nil {
			return fmt.Errorf("ensure %s table: %w", s.table, err)
		}
		log.Debug("table ensured", "table", s.table)
	}
	return nil
}

func tableExists(ctx context.Context, pool *pgxpool.Pool, table string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1
		)`, table).Scan(&exists)
	return exists, err
}

// ensureItemsTable creates items; tags and image refs are stored verbatim.
func ensureItemsTable(ctx context.Context, pool *pgxpool.Pool) error {
	if ok, err := tableExists(ctx, pool, "items"); err != nil || ok {
		return err
	}
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY,
			seller TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			price BIGINT NOT NULL CHECK (price > 0),
			category TEXT NOT NULL DEFAULT '',
			tags TEXT[] NOT NULL DEFAULT '{}',
			image_refs TEXT[] NOT NULL DEFAULT '{}',
			attributes JSONB NOT NULL DEFAULT '{}',
			status TEXT NOT NULL CHECK (status IN ('active','sold','cancelled')),
			created_at TIMESTAMP WITH TIME ZONE NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_items_seller ON items(seller);
		CREATE INDEX IF NOT EXISTS idx_items_status ON items(status);
	`)
	return err
}

func ensureOffersTable(ctx context.Context, pool *pgxpool.Pool) error {
	if ok, err := tableExists(ctx, pool, "offers"); err != nil || ok {
		return err
	}
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS offers (
			id TEXT PRIMARY KEY,
			item_id TEXT NOT NULL REFERENCES items(id),
			buyer TEXT NOT NULL,
			seller TEXT NOT NULL,
			amount BIGINT NOT NULL CHECK (amount > 0),
			message TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL CHECK (status IN ('pending','countered','accepted','rejected','cancelled')),
			countered BOOLEAN NOT NULL DEFAULT FALSE,
			expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_offers_item ON offers(item_id);
		CREATE INDEX IF NOT EXISTS idx_offers_buyer ON offers(buyer);
	`)
	return err
}

func ensureEscrowsTable(ctx context.Context, pool *pgxpool.Pool) error {
	if ok, err := tableExists(ctx, pool, "escrows"); err != nil || ok {
		return err
	}
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS escrows (
			id TEXT PRIMARY KEY,
			offer_id TEXT NOT NULL UNIQUE REFERENCES offers(id),
			item_id TEXT NOT NULL REFERENCES items(id),
			buyer TEXT NOT NULL,
			seller TEXT NOT NULL,
			amount BIGINT NOT NULL CHECK (amount > 0),
			held BIGINT NOT NULL CHECK (held = 0 OR held = amount),
			status TEXT NOT NULL CHECK (status IN ('active','completed','disputed','refunded')),
			created_at TIMESTAMP WITH TIME ZONE NOT NULL,
			completed_at TIMESTAMP WITH TIME ZONE NULL
		);
		CREATE INDEX IF NOT EXISTS idx_escrows_status ON escrows(status);
	`)
	return err
}

func ensureBalancesTable(ctx context.Context, pool *pgxpool.Pool) error {
	if ok, err := tableExists(ctx, pool, "balances"); err != nil || ok {
		return err
	}
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS balances (
			address TEXT PRIMARY KEY,
			balance BIGINT NOT NULL CHECK (balance >= 0),
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}

// ensureEventsTable creates the append-only log mirror keyed by seq.
func ensureEventsTable(ctx context.Context, pool *pgxpool.Pool) error {
	if ok, err := tableExists(ctx, pool, "events"); err != nil || ok {
		return err
	}
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS events (
			seq BIGINT PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			type TEXT NOT NULL,
			item_id TEXT NOT NULL DEFAULT '',
			offer_id TEXT NOT NULL DEFAULT '',
			escrow_id TEXT NOT NULL DEFAULT '',
			actor TEXT NOT NULL,
			counterparty TEXT NOT NULL DEFAULT '',
			amount BIGINT NOT NULL DEFAULT 0,
			old_price BIGINT NOT NULL DEFAULT 0,
			new_price BIGINT NOT NULL DEFAULT 0,
			category TEXT NOT NULL DEFAULT '',
			ts TIMESTAMP WITH TIME ZONE NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_events_actor ON events(actor);
	`)
	return err
}

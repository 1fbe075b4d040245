package journal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sudo-init-do/resalehub/internal/db"
	"github.com/sudo-init-do/resalehub/internal/engine"
	"github.com/sudo-init-do/resalehub/internal/marketplace"
)

func TestCollectOrdersAndDedupes(t *testing.T) {
	evs := []marketplace.Event{
		{Seq: 1, Type: marketplace.EventItemCreated, ItemID: "i1", Actor: "0xs"},
		{Seq: 2, Type: marketplace.EventOfferCreated, ItemID: "i1", OfferID: "o1", Actor: "0xb", Counterparty: "0xs"},
		{Seq: 3, Type: marketplace.EventOfferAccepted, ItemID: "i1", OfferID: "o1", EscrowID: "e1", Actor: "0xs", Counterparty: "0xb"},
	}
	got := collect(evs)
	if fmt.Sprint(got.items) != "[i1]" || fmt.Sprint(got.offers) != "[o1]" || fmt.Sprint(got.escrows) != "[e1]" {
		t.Fatalf("unexpected ids %+v", got)
	}
	if fmt.Sprint(got.addrs) != "[0xs 0xb]" {
		t.Fatalf("addrs = %v", got.addrs)
	}
}

// testPool connects to DATABASE_URL inside a throwaway schema.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	schema := fmt.Sprintf("journal_test_%d", time.Now().UnixNano())

	admin, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := admin.Exec(ctx, "CREATE SCHEMA "+schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		_, _ = admin.Exec(context.Background(), "DROP SCHEMA "+schema+" CASCADE")
		admin.Close()
	})

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("connect schema pool: %v", err)
	}
	t.Cleanup(pool.Close)

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := db.EnsureSchema(ctx, pool, quiet); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return pool
}

func TestWriteAndLoadRoundTrip(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	src := engine.New(nil, nil, engine.WithLogger(quiet))
	w := NewWriter(pool, src, quiet)

	if _, err := src.TopUp("0xbuyer", 10); err != nil {
		t.Fatal(err)
	}
	it, err := src.CreateItem("0xseller", marketplace.NewItem{
		Title: "Desk lamp", Description: "Brass", Price: 5,
		Tags: []string{"brass"}, Attributes: marketplace.Attributes{Condition: "used"},
	})
	if err != nil {
		t.Fatal(err)
	}
	o, err := src.CreateOffer("0xbuyer", it.ID, 8, "", 24)
	if err != nil {
		t.Fatal(err)
	}
	esc, err := src.AcceptOffer("0xseller", o.ID, it.ID, 8)
	if err != nil {
		t.Fatal(err)
	}

	evs := src.Events(0, 0)
	if err := w.HandleEvents(ctx, evs); err != nil {
		t.Fatalf("HandleEvents: %v", err)
	}
	// replay is a no-op
	if err := w.HandleEvents(ctx, evs); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if m := w.Metrics(); m.Conflicts != int64(len(evs)) {
		t.Fatalf("metrics = %+v", m)
	}

	snap, balances, err := Load(ctx, pool)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snap.Events) != len(evs) || len(snap.Items) != 1 || len(snap.Offers) != 1 || len(snap.Escrows) != 1 {
		t.Fatalf("unexpected snapshot sizes: %d events %d items %d offers %d escrows",
			len(snap.Events), len(snap.Items), len(snap.Offers), len(snap.Escrows))
	}
	if snap.Items[0].Attributes.Condition != "used" || snap.Items[0].Tags[0] != "brass" {
		t.Fatalf("item = %+v", snap.Items[0])
	}
	if snap.Escrows[0].ID != esc.ID || snap.Escrows[0].Held != 8 {
		t.Fatalf("escrow = %+v", snap.Escrows[0])
	}
	if balances["0xbuyer"] != 2 {
		t.Fatalf("balances = %v", balances)
	}

	dst := engine.New(nil, nil, engine.WithLogger(quiet))
	if err := dst.Restore(snap, balances); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if _, err := dst.ConfirmDelivery("0xbuyer", esc.ID, it.ID); err != nil {
		t.Fatalf("ConfirmDelivery after restore: %v", err)
	}
	if dst.Balance("0xseller") != 8 {
		t.Fatalf("seller balance = %d", dst.Balance("0xseller"))
	}
}

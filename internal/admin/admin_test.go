package admin

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/resalehub/internal/engine"
	"github.com/sudo-init-do/resalehub/internal/marketplace"
)

func newTestAdmin(t *testing.T) (*echo.Echo, *engine.Engine) {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.New(marketplace.NewRegistry(marketplace.WithArbiters("0xarbiter")), nil, engine.WithLogger(quiet))
	e := echo.New()
	g := e.Group("/admin", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user_id", c.Request().Header.Get("X-Caller"))
			return next(c)
		}
	})
	NewHandler(eng, func() any { return echo.Map{"events": 0} }).Register(g)
	return e, eng
}

func request(e *echo.Echo, method, path, as string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("X-Caller", as)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func disputedEscrow(t *testing.T, eng *engine.Engine) marketplace.Escrow {
	t.Helper()
	if _, err := eng.TopUp("0xbuyer", 100); err != nil {
		t.Fatalf("TopUp: %v", err)
	}
	it, err := eng.CreateItem("0xseller", marketplace.NewItem{Title: "Lamp", Description: "Brass", Price: 100})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	o, err := eng.CreateOffer("0xbuyer", it.ID, 100, "", 24)
	if err != nil {
		t.Fatalf("CreateOffer: %v", err)
	}
	esc, err := eng.AcceptOffer("0xseller", o.ID, it.ID, 100)
	if err != nil {
		t.Fatalf("AcceptOffer: %v", err)
	}
	esc, err = eng.DisputeEscrow("0xbuyer", esc.ID)
	if err != nil {
		t.Fatalf("DisputeEscrow: %v", err)
	}
	return esc
}

func TestDisputesAndResolve(t *testing.T) {
	e, eng := newTestAdmin(t)
	esc := disputedEscrow(t, eng)

	rec := request(e, http.MethodGet, "/admin/disputes", "0xarbiter")
	var list struct {
		Disputes []marketplace.Escrow `json:"disputes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Disputes) != 1 || list.Disputes[0].ID != esc.ID {
		t.Fatalf("disputes = %+v", list.Disputes)
	}

	rec = request(e, http.MethodPost, "/admin/disputes/"+esc.ID+"/resolve", "0xarbiter")
	if rec.Code != http.StatusOK {
		t.Fatalf("resolve status = %d: %s", rec.Code, rec.Body.String())
	}
	if eng.Balance("0xbuyer") != 100 {
		t.Fatalf("buyer balance = %d", eng.Balance("0xbuyer"))
	}

	rec = request(e, http.MethodPost, "/admin/disputes/"+esc.ID+"/resolve", "0xarbiter")
	if rec.Code != http.StatusConflict {
		t.Fatalf("second resolve status = %d", rec.Code)
	}
	rec = request(e, http.MethodPost, "/admin/disputes/missing/resolve", "0xarbiter")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing escrow status = %d", rec.Code)
	}
}

func TestStatsAndWallets(t *testing.T) {
	e, eng := newTestAdmin(t)
	disputedEscrow(t, eng)

	rec := request(e, http.MethodGet, "/admin/stats", "0xarbiter")
	var stats struct {
		Counters marketplace.Counters `json:"counters"`
		LastSeq  uint64               `json:"last_seq"`
		Journal  map[string]int       `json:"journal"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Counters.Items != 1 || stats.Counters.Escrows != 1 || stats.LastSeq != stats.Counters.Events {
		t.Fatalf("stats = %+v", stats)
	}
	if _, ok := stats.Journal["events"]; !ok {
		t.Fatal("journal metrics missing")
	}

	rec = request(e, http.MethodGet, "/admin/wallets", "0xarbiter")
	var w struct {
		Wallets []struct {
			Address string `json:"address"`
			Balance int64  `json:"balance"`
		} `json:"wallets"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &w); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// buyer's funds sit in escrow, so no wallet holds a balance
	if len(w.Wallets) != 0 {
		t.Fatalf("wallets = %+v", w.Wallets)
	}
}

package wallet

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

type ledgerService struct{ l *Ledger }

func (s ledgerService) Balance(addr string) int64 { return s.l.Balance(addr) }

func (s ledgerService) TopUp(addr string, amount int64) (int64, error) {
	if err := s.l.Credit(addr, amount); err != nil {
		return 0, err
	}
	return s.l.Balance(addr), nil
}

func (s ledgerService) Transactions(addr string, limit int) []Transaction {
	if s.l.Balance(addr) == 0 {
		return nil
	}
	return []Transaction{{Seq: 1, Kind: TxTopUp, Amount: s.l.Balance(addr)}}
}

func call(h echo.HandlerFunc, method, body, user string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if user != "" {
		c.Set("user_id", user)
	}
	_ = h(c)
	return rec
}

func TestTopUpAndBalance(t *testing.T) {
	h := NewHandler(ledgerService{NewLedger()}, true, 1000)

	rec := call(h.TopUp, http.MethodPost, `{"amount":250}`, "0xa")
	if rec.Code != http.StatusOK {
		t.Fatalf("topup status = %d body=%s", rec.Code, rec.Body.String())
	}
	var tr TopupResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &tr); err != nil {
		t.Fatal(err)
	}
	if tr.Balance != 250 {
		t.Fatalf("balance = %d", tr.Balance)
	}

	rec = call(h.Balance, http.MethodGet, "", "0xa")
	var w Wallet
	if err := json.Unmarshal(rec.Body.Bytes(), &w); err != nil {
		t.Fatal(err)
	}
	if w.Address != "0xa" || w.Balance != 250 {
		t.Fatalf("unexpected wallet %+v", w)
	}
}

func TestTopUpRejections(t *testing.T) {
	cases := []struct {
		name   string
		faucet bool
		body   string
		user   string
		want   int
	}{
		{"faucet off", false, `{"amount":1}`, "0xa", http.StatusForbidden},
		{"anonymous", true, `{"amount":1}`, "", http.StatusUnauthorized},
		{"zero amount", true, `{"amount":0}`, "0xa", http.StatusBadRequest},
		{"over limit", true, `{"amount":1001}`, "0xa", http.StatusBadRequest},
		{"bad json", true, `{`, "0xa", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHandler(ledgerService{NewLedger()}, tc.faucet, 1000)
			rec := call(h.TopUp, http.MethodPost, tc.body, tc.user)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestTransactions(t *testing.T) {
	l := NewLedger()
	_ = l.Credit("0xa", 40)
	h := NewHandler(ledgerService{l}, true, 1000)

	rec := call(h.Transactions, http.MethodGet, "", "0xa")
	var body struct {
		Transactions []Transaction `json:"transactions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Transactions) != 1 || body.Transactions[0].Amount != 40 {
		t.Fatalf("transactions = %+v", body.Transactions)
	}

	rec = call(h.Transactions, http.MethodGet, "", "0xempty")
	if !strings.Contains(rec.Body.String(), `"transactions":[]`) {
		t.Fatalf("empty history body = %s", rec.Body.String())
	}
	if rec = call(h.Transactions, http.MethodGet, "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d", rec.Code)
	}
}

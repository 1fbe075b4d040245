// Package engine serializes marketplace operations against one Registry and
// moves funds through the wallet ledger. Committed events are delivered to
// subscribers (journal, alerts, stream, search) from the registry's log.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sudo-init-do/resalehub/internal/marketplace"
	"github.com/sudo-init-do/resalehub/internal/wallet"
)

// Engine owns the registry and the ledger. All mutating calls hold the write
// lock for their whole duration, so they are totally ordered.
type Engine struct {
	mu      sync.RWMutex
	reg     *marketplace.Registry
	ledger  *wallet.Ledger
	now     func() time.Time
	log     *slog.Logger
	changed chan struct{}

	subMu   sync.Mutex
	subs    []*subscription
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// New wraps reg and ledger. Either may be nil, in which case an empty one is
// created.
func New(reg *marketplace.Registry, ledger *wallet.Ledger, opts ...Option) *Engine {
	if reg == nil {
		reg = marketplace.NewRegistry()
	}
	if ledger == nil {
		ledger = wallet.NewLedger()
	}
	e := &Engine{
		reg:     reg,
		ledger:  ledger,
		now:     func() time.Time { return time.Now().UTC() },
		log:     slog.Default(),
		changed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Restore loads persisted state. It must run before any operation.
func (e *Engine) Restore(s marketplace.Snapshot, balances map[string]int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.reg.Restore(s); err != nil {
		return fmt.Errorf("restore registry: %w", err)
	}
	e.ledger.Restore(balances)
	e.log.Info("state restored",
		"items", len(s.Items),
		"offers", len(s.Offers),
		"escrows", len(s.Escrows),
		"last_seq", e.reg.LastSeq(),
		"wallets", len(balances),
	)
	return nil
}

// apply runs fn under the write lock and wakes subscribers when it appended
// events.
func (e *Engine) apply(op string, fn func(now time.Time) error) error {
	e.mu.Lock()
	before := e.reg.LastSeq()
	err := fn(e.now())
	after := e.reg.LastSeq()
	if after != before {
		close(e.changed)
		e.changed = make(chan struct{})
	}
	e.mu.Unlock()

	if err != nil {
		e.log.Debug("operation rejected", "op", op, "kind", marketplace.KindOf(err).String(), "err", err)
		return err
	}
	e.log.Debug("operation applied", "op", op, "seq", after)
	return nil
}

func (e *Engine) CreateItem(caller string, in marketplace.NewItem) (marketplace.Item, error) {
	var it marketplace.Item
	err := e.apply("CreateItem", func(now time.Time) (err error) {
		it, err = e.reg.CreateItem(now, caller, in)
		return err
	})
	return it, err
}

func (e *Engine) UpdatePrice(caller, itemID string, price int64) (marketplace.Item, error) {
	var it marketplace.Item
	err := e.apply("UpdatePrice", func(now time.Time) (err error) {
		it, err = e.reg.UpdatePrice(now, caller, itemID, price)
		return err
	})
	return it, err
}

func (e *Engine) CancelItem(caller, itemID string) (marketplace.Item, error) {
	var it marketplace.Item
	err := e.apply("Cancel", func(now time.Time) (err error) {
		it, err = e.reg.Cancel(now, caller, itemID)
		return err
	})
	return it, err
}

func (e *Engine) CreateOffer(caller, itemID string, amount int64, message string, hours int) (marketplace.Offer, error) {
	var o marketplace.Offer
	err := e.apply("CreateOffer", func(now time.Time) (err error) {
		o, err = e.reg.CreateOffer(now, caller, itemID, amount, message, hours)
		return err
	})
	return o, err
}

func (e *Engine) CounterOffer(caller, offerID string, amount int64, message string) (marketplace.Offer, error) {
	var o marketplace.Offer
	err := e.apply("CounterOffer", func(now time.Time) (err error) {
		o, err = e.reg.CounterOffer(now, caller, offerID, amount, message)
		return err
	})
	return o, err
}

func (e *Engine) AcceptCounterOffer(caller, offerID string) (marketplace.Offer, error) {
	var o marketplace.Offer
	err := e.apply("AcceptCounterOffer", func(now time.Time) (err error) {
		o, err = e.reg.AcceptCounterOffer(now, caller, offerID)
		return err
	})
	return o, err
}

func (e *Engine) CancelOffer(caller, offerID string) (marketplace.Offer, error) {
	var o marketplace.Offer
	err := e.apply("CancelOffer", func(now time.Time) (err error) {
		o, err = e.reg.CancelOffer(now, caller, offerID)
		return err
	})
	return o, err
}

func (e *Engine) RejectOffer(caller, offerID string) (marketplace.Offer, error) {
	var o marketplace.Offer
	err := e.apply("RejectOffer", func(now time.Time) (err error) {
		o, err = e.reg.RejectOffer(now, caller, offerID)
		return err
	})
	return o, err
}

// AcceptOffer draws payment from the offer's buyer and locks it in a new
// escrow. Nothing is withdrawn unless every precondition holds, and the coin
// is returned to the buyer if the escrow cannot be opened.
func (e *Engine) AcceptOffer(caller, offerID, itemID string, payment int64) (marketplace.Escrow, error) {
	var esc marketplace.Escrow
	err := e.apply("AcceptOffer", func(now time.Time) error {
		o, err := e.reg.CheckAcceptOffer(now, caller, offerID, itemID, payment)
		if err != nil {
			return err
		}
		coin, err := e.ledger.Withdraw(o.Buyer, payment)
		if err != nil {
			return fmt.Errorf("AcceptOffer: draw payment from %s: %w", o.Buyer, err)
		}
		esc, err = e.reg.AcceptOffer(now, caller, offerID, itemID, coin)
		if err != nil {
			e.ledger.Deposit(o.Buyer, coin)
			return err
		}
		return nil
	})
	return esc, err
}

// ConfirmDelivery settles the escrow and pays the seller.
func (e *Engine) ConfirmDelivery(caller, escrowID, itemID string) (marketplace.Escrow, error) {
	var esc marketplace.Escrow
	err := e.apply("ConfirmDelivery", func(now time.Time) error {
		var (
			p   marketplace.Payout
			err error
		)
		esc, p, err = e.reg.ConfirmDelivery(now, caller, escrowID, itemID)
		if err != nil {
			return err
		}
		e.payout("ConfirmDelivery", esc.ID, p)
		return nil
	})
	return esc, err
}

func (e *Engine) DisputeEscrow(caller, escrowID string) (marketplace.Escrow, error) {
	var esc marketplace.Escrow
	err := e.apply("DisputeEscrow", func(now time.Time) (err error) {
		esc, err = e.reg.DisputeEscrow(now, caller, escrowID)
		return err
	})
	return esc, err
}

// RefundEscrow returns a disputed escrow's funds to the buyer.
func (e *Engine) RefundEscrow(caller, escrowID string) (marketplace.Escrow, error) {
	var esc marketplace.Escrow
	err := e.apply("RefundEscrow", func(now time.Time) error {
		var (
			p   marketplace.Payout
			err error
		)
		esc, p, err = e.reg.RefundEscrow(now, caller, escrowID)
		if err != nil {
			return err
		}
		e.payout("RefundEscrow", esc.ID, p)
		return nil
	})
	return esc, err
}

func (e *Engine) payout(op, escrowID string, p marketplace.Payout) {
	if p.Amount == 0 {
		return
	}
	if err := e.ledger.Credit(p.To, p.Amount); err != nil {
		// Held is always positive once an escrow exists.
		e.log.Error("payout failed", "op", op, "escrow_id", escrowID, "to", p.To, "amount", p.Amount, "err", err)
	}
}

// TopUp credits addr outside the escrow flow and returns the new balance.
func (e *Engine) TopUp(addr string, amount int64) (int64, error) {
	var bal int64
	err := e.apply("TopUp", func(now time.Time) error {
		if _, err := e.reg.RecordTopUp(now, addr, amount); err != nil {
			return err
		}
		if err := e.ledger.Credit(addr, amount); err != nil {
			return err
		}
		bal = e.ledger.Balance(addr)
		return nil
	})
	return bal, err
}

func (e *Engine) Balance(addr string) int64 {
	return e.ledger.Balance(addr)
}

// Transactions derives addr's balance movements from the event log, newest
// first. limit <= 0 returns all of them.
func (e *Engine) Transactions(addr string, limit int) []wallet.Transaction {
	e.mu.RLock()
	events := e.reg.Events(0, 0)
	e.mu.RUnlock()

	var out []wallet.Transaction
	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		tx := wallet.Transaction{
			Seq:       ev.Seq,
			Amount:    ev.Amount,
			ItemID:    ev.ItemID,
			EscrowID:  ev.EscrowID,
			CreatedAt: ev.Timestamp,
		}
		switch {
		case ev.Type == marketplace.EventWalletTopUp && ev.Actor == addr:
			tx.Kind = wallet.TxTopUp
		case ev.Type == marketplace.EventOfferAccepted && ev.Counterparty == addr:
			tx.Kind = wallet.TxEscrowLock
			tx.Amount = -ev.Amount
		case ev.Type == marketplace.EventItemSold && ev.Counterparty == addr:
			tx.Kind = wallet.TxEscrowRelease
		case ev.Type == marketplace.EventEscrowRefunded && ev.Counterparty == addr:
			tx.Kind = wallet.TxEscrowRefund
		default:
			continue
		}
		out = append(out, tx)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (e *Engine) Wallets() []wallet.Wallet {
	return e.ledger.Wallets()
}

func (e *Engine) Item(id string) (marketplace.Item, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.reg.Item(id)
}

func (e *Engine) Offer(id string) (marketplace.Offer, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.reg.Offer(id)
}

func (e *Engine) Escrow(id string) (marketplace.Escrow, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.reg.Escrow(id)
}

func (e *Engine) ListItems(f marketplace.ItemFilter) []marketplace.Item {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.reg.ListItems(f)
}

func (e *Engine) ListOffers(f marketplace.OfferFilter) []marketplace.Offer {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.reg.ListOffers(f)
}

func (e *Engine) ListEscrows(f marketplace.EscrowFilter) []marketplace.Escrow {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.reg.ListEscrows(f)
}

func (e *Engine) Events(after uint64, limit int) []marketplace.Event {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.reg.Events(after, limit)
}

func (e *Engine) LastSeq() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.reg.LastSeq()
}

func (e *Engine) Counters() marketplace.Counters {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.reg.Counters()
}

func (e *Engine) IsArbiter(addr string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.reg.IsArbiter(addr)
}

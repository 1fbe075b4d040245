// Package marketplace holds the listing, offer and escrow state machine.
//
// A Registry owns every Item, Offer and Escrow keyed by opaque identifier,
// plus the append-only event log. Operations are methods on *Registry that
// take the current time and the caller's address explicitly; each one checks
// all of its preconditions before mutating anything, so a rejected call leaves
// the registry untouched. A Registry is not safe for concurrent use: callers
// serialize access (see internal/engine).
package marketplace

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Counters are diagnostic totals; they are never used as identifiers.
type Counters struct {
	Items   uint64 `json:"items"`
	Offers  uint64 `json:"offers"`
	Escrows uint64 `json:"escrows"`
	Events  uint64 `json:"events"`
}

// Registry is the shared aggregate all operations run against.
type Registry struct {
	items   map[string]*Item
	offers  map[string]*Offer
	escrows map[string]*Escrow

	itemCount   uint64
	offerCount  uint64
	escrowCount uint64

	arbiters map[string]struct{}
	log      EventLog
	newID    func() string
}

// Option configures a Registry.
type Option func(*Registry)

// WithArbiters lets the given addresses refund disputed escrows.
func WithArbiters(addrs ...string) Option {
	return func(r *Registry) {
		for _, a := range addrs {
			if a != "" {
				r.arbiters[a] = struct{}{}
			}
		}
	}
}

// WithIDGenerator replaces the uuid generator, mainly for tests.
func WithIDGenerator(fn func() string) Option {
	return func(r *Registry) {
		r.newID = fn
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		items:    make(map[string]*Item),
		offers:   make(map[string]*Offer),
		escrows:  make(map[string]*Escrow),
		arbiters: make(map[string]struct{}),
		log:      newEventLog(),
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// IsArbiter reports whether addr may resolve disputes.
func (r *Registry) IsArbiter(addr string) bool {
	_, ok := r.arbiters[addr]
	return ok
}

// Counters returns the diagnostic totals.
func (r *Registry) Counters() Counters {
	return Counters{
		Items:   r.itemCount,
		Offers:  r.offerCount,
		Escrows: r.escrowCount,
		Events:  r.log.lastSeq(),
	}
}

// Item returns a copy of the item with the given id.
func (r *Registry) Item(id string) (Item, bool) {
	it, ok := r.items[id]
	if !ok {
		return Item{}, false
	}
	return it.clone(), true
}

// Offer returns a copy of the offer with the given id.
func (r *Registry) Offer(id string) (Offer, bool) {
	o, ok := r.offers[id]
	if !ok {
		return Offer{}, false
	}
	return *o, true
}

// Escrow returns a copy of the escrow with the given id.
func (r *Registry) Escrow(id string) (Escrow, bool) {
	e, ok := r.escrows[id]
	if !ok {
		return Escrow{}, false
	}
	return e.clone(), true
}

// Events returns up to limit events with Seq greater than after.
func (r *Registry) Events(after uint64, limit int) []Event {
	return r.log.since(after, limit)
}

// LastSeq is the sequence number of the newest event, 0 when empty.
func (r *Registry) LastSeq() uint64 {
	return r.log.lastSeq()
}

// RecordTopUp logs a wallet credit made outside the escrow flow so that
// journal and notification consumers see it.
func (r *Registry) RecordTopUp(now time.Time, addr string, amount int64) (Event, error) {
	const op = "RecordTopUp"
	if err := checkClock(op, now); err != nil {
		return Event{}, err
	}
	if addr == "" {
		return Event{}, errorf(op, KindInvalidInput, "address required")
	}
	if amount <= 0 {
		return Event{}, errorf(op, KindInvalidInput, "amount must be positive")
	}
	return r.emit(Event{
		Type:      EventWalletTopUp,
		Actor:     addr,
		Amount:    amount,
		Timestamp: now,
	}), nil
}

func (r *Registry) emit(e Event) Event {
	return r.log.append(e)
}

// Snapshot is the persisted form of a registry.
type Snapshot struct {
	Items   []Item
	Offers  []Offer
	Escrows []Escrow
	Events  []Event
}

// Restore loads a snapshot into an empty registry. Events must be ordered by
// Seq with no gaps.
func (r *Registry) Restore(s Snapshot) error {
	if len(r.items) > 0 || len(r.offers) > 0 || len(r.escrows) > 0 || r.log.lastSeq() > 0 {
		return fmt.Errorf("restore into non-empty registry")
	}
	for i := 1; i < len(s.Events); i++ {
		if s.Events[i].Seq != s.Events[i-1].Seq+1 {
			return fmt.Errorf("event log gap between seq %d and %d", s.Events[i-1].Seq, s.Events[i].Seq)
		}
	}
	for i := range s.Items {
		it := s.Items[i].clone()
		r.items[it.ID] = &it
	}
	for i := range s.Offers {
		o := s.Offers[i]
		r.offers[o.ID] = &o
	}
	for i := range s.Escrows {
		e := s.Escrows[i].clone()
		r.escrows[e.ID] = &e
	}
	r.itemCount = uint64(len(s.Items))
	r.offerCount = uint64(len(s.Offers))
	r.escrowCount = uint64(len(s.Escrows))
	r.log.events = append([]Event(nil), s.Events...)
	return nil
}

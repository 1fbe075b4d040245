package marketplace

import (
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType names a notification written to the event log.
type EventType string

const (
	EventItemCreated          EventType = "ItemCreated"
	EventPriceUpdated         EventType = "PriceUpdated"
	EventItemCancelled        EventType = "ItemCancelled"
	EventItemMarkedSold       EventType = "ItemMarkedSold"
	EventOfferCreated         EventType = "OfferCreated"
	EventOfferCountered       EventType = "OfferCountered"
	EventOfferCounterAccepted EventType = "OfferCounterAccepted"
	EventOfferCancelled       EventType = "OfferCancelled"
	EventOfferRejected        EventType = "OfferRejected"
	EventOfferAccepted        EventType = "OfferAccepted"
	EventItemSold             EventType = "ItemSold"
	EventEscrowDisputed       EventType = "EscrowDisputed"
	EventEscrowRefunded       EventType = "EscrowRefunded"
	EventWalletTopUp          EventType = "WalletTopUp"
)

// Event is one entry of the append-only log. Seq starts at 1 and increases
// by one per event; ID is a ULID minted from Timestamp.
type Event struct {
	Seq          uint64    `json:"seq"`
	ID           string    `json:"id"`
	Type         EventType `json:"type"`
	ItemID       string    `json:"item_id,omitempty"`
	OfferID      string    `json:"offer_id,omitempty"`
	EscrowID     string    `json:"escrow_id,omitempty"`
	Actor        string    `json:"actor"`
	Counterparty string    `json:"counterparty,omitempty"`
	Amount       int64     `json:"amount,omitempty"`
	OldPrice     int64     `json:"old_price,omitempty"`
	NewPrice     int64     `json:"new_price,omitempty"`
	Category     string    `json:"category,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// EventLog is the outbound log consumers read from. It is never truncated.
type EventLog struct {
	events  []Event
	entropy *ulid.MonotonicEntropy
}

func newEventLog() EventLog {
	return EventLog{
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

// checkClock rejects timestamps a ULID cannot encode. It runs before any
// state change so a bad clock never leaves a half-applied operation.
func checkClock(op string, now time.Time) error {
	if now.Before(time.Unix(0, 0)) || now.After(ulid.Time(ulid.MaxTime())) {
		return errorf(op, KindInvalidInput, "timestamp %s out of range", now.Format(time.RFC3339))
	}
	return nil
}

func (l *EventLog) append(e Event) Event {
	e.Seq = l.lastSeq() + 1
	e.ID = ulid.MustNew(ulid.Timestamp(e.Timestamp), l.entropy).String()
	l.events = append(l.events, e)
	return e
}

func (l *EventLog) lastSeq() uint64 {
	if len(l.events) == 0 {
		return 0
	}
	return l.events[len(l.events)-1].Seq
}

// since returns up to limit events with Seq > after; limit <= 0 means all.
func (l *EventLog) since(after uint64, limit int) []Event {
	// Seq values are dense, so the first event after `after` sits at a
	// fixed offset from the first retained entry.
	if len(l.events) == 0 {
		return nil
	}
	first := l.events[0].Seq
	start := 0
	if after >= first {
		start = int(after - first + 1)
	}
	if start >= len(l.events) {
		return nil
	}
	end := len(l.events)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	out := make([]Event, end-start)
	copy(out, l.events[start:end])
	return out
}

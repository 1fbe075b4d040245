package marketplace

import "time"

// ItemStatus is the lifecycle state of a listing.
type ItemStatus string

const (
	ItemActive    ItemStatus = "active"
	ItemSold      ItemStatus = "sold"
	ItemCancelled ItemStatus = "cancelled"
)

// OfferStatus is the negotiation state of an offer.
type OfferStatus string

const (
	OfferPending   OfferStatus = "pending"
	OfferCountered OfferStatus = "countered"
	OfferAccepted  OfferStatus = "accepted"
	OfferRejected  OfferStatus = "rejected"
	OfferCancelled OfferStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed.
func (s OfferStatus) Terminal() bool {
	return s == OfferAccepted || s == OfferRejected || s == OfferCancelled
}

// EscrowStatus is the custody state of an escrow.
type EscrowStatus string

const (
	EscrowActive    EscrowStatus = "active"
	EscrowCompleted EscrowStatus = "completed"
	EscrowDisputed  EscrowStatus = "disputed"
	EscrowRefunded  EscrowStatus = "refunded"
)

// Attributes describe the physical item being sold
type Attributes struct {
	Condition string `json:"condition,omitempty"`
	Brand     string `json:"brand,omitempty"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
	Material  string `json:"material,omitempty"`
}

// Item represents a listing. Price is in MIST (1 SUI = 10^9 MIST).
type Item struct {
	ID          string     `json:"id"`
	Seller      string     `json:"seller"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Price       int64      `json:"price"`
	Category    string     `json:"category,omitempty"`
	Tags        []string   `json:"tags"`
	ImageRefs   []string   `json:"image_refs"`
	Attributes  Attributes `json:"attributes"`
	Status      ItemStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (it *Item) clone() Item {
	c := *it
	c.Tags = append([]string(nil), it.Tags...)
	c.ImageRefs = append([]string(nil), it.ImageRefs...)
	return c
}

// Offer represents a buyer's proposal on an item. A counter overwrites Amount
// and Message in place; only the latest round is kept.
type Offer struct {
	ID        string      `json:"id"`
	ItemID    string      `json:"item_id"`
	Buyer     string      `json:"buyer"`
	Seller    string      `json:"seller"`
	Amount    int64       `json:"amount"`
	Message   string      `json:"message,omitempty"`
	Status    OfferStatus `json:"status"`
	Countered bool        `json:"countered"`
	ExpiresAt time.Time   `json:"expires_at"`
	CreatedAt time.Time   `json:"created_at"`
}

// Expired reports whether now is at or past the offer's expiry.
func (o *Offer) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

// Escrow holds a buyer's payment for an accepted offer. Held is either the
// full Amount or zero.
type Escrow struct {
	ID          string       `json:"id"`
	OfferID     string       `json:"offer_id"`
	ItemID      string       `json:"item_id"`
	Buyer       string       `json:"buyer"`
	Seller      string       `json:"seller"`
	Amount      int64        `json:"amount"`
	Held        int64        `json:"held"`
	Status      EscrowStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

func (e *Escrow) clone() Escrow {
	c := *e
	if e.CompletedAt != nil {
		t := *e.CompletedAt
		c.CompletedAt = &t
	}
	return c
}

// Payout is the amount released from escrow custody to an address.
type Payout struct {
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

package alerts

import (
	"time"

	"github.com/sudo-init-do/resalehub/internal/marketplace"
)

// Task type constants
const (
	TaskNotify = "market:notify"
)

// Queue names
const (
	QueueAlerts = "alerts"
)

// NotifyPayload is the task body for one recipient of one event.
type NotifyPayload struct {
	EventID   string                `json:"event_id"`
	Seq       uint64                `json:"seq"`
	Type      marketplace.EventType `json:"type"`
	Recipient string                `json:"recipient"`
	Title     string                `json:"title"`
	Body      string                `json:"body"`
	ItemID    string                `json:"item_id,omitempty"`
	OfferID   string                `json:"offer_id,omitempty"`
	EscrowID  string                `json:"escrow_id,omitempty"`
	Amount    int64                 `json:"amount,omitempty"`
	At        time.Time             `json:"at"`
}

// Notification is what lands in a recipient's inbox.
type Notification struct {
	ID        string                `json:"id"`
	Type      marketplace.EventType `json:"type"`
	Title     string                `json:"title"`
	Body      string                `json:"body"`
	ItemID    string                `json:"item_id,omitempty"`
	OfferID   string                `json:"offer_id,omitempty"`
	EscrowID  string                `json:"escrow_id,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
	Read      bool                  `json:"read"`
}

func (p NotifyPayload) notification() Notification {
	return Notification{
		ID:        p.EventID,
		Type:      p.Type,
		Title:     p.Title,
		Body:      p.Body,
		ItemID:    p.ItemID,
		OfferID:   p.OfferID,
		EscrowID:  p.EscrowID,
		CreatedAt: p.At,
	}
}

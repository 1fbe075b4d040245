package alerts

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/resalehub/internal/marketplace"
)

// suiExp scales MIST to SUI (1 SUI = 10^9 MIST).
const suiExp = -9

// FormatSUI renders a MIST amount as SUI, e.g. 1500000000 -> "1.5 SUI".
func FormatSUI(mist int64) string {
	return decimal.New(mist, suiExp).String() + " SUI"
}

// Compose turns an event into the notifications it should produce. Events
// nobody else needs to hear about return nil.
func Compose(ev marketplace.Event) []NotifyPayload {
	var (
		to          = ev.Counterparty
		title, body string
	)
	amount := FormatSUI(ev.Amount)

	switch ev.Type {
	case marketplace.EventOfferCreated:
		title = "New offer on your item"
		body = fmt.Sprintf("%s offered %s for item %s.", short(ev.Actor), amount, ev.ItemID)
	case marketplace.EventOfferCountered:
		title = "Seller countered your offer"
		body = fmt.Sprintf("The seller asks %s for item %s.", amount, ev.ItemID)
	case marketplace.EventOfferCounterAccepted:
		title = "Buyer accepted your counter"
		body = fmt.Sprintf("%s agreed to pay %s for item %s.", short(ev.Actor), amount, ev.ItemID)
	case marketplace.EventOfferCancelled:
		title = "Offer withdrawn"
		body = fmt.Sprintf("%s withdrew their offer on item %s.", short(ev.Actor), ev.ItemID)
	case marketplace.EventOfferRejected:
		title = "Offer declined"
		body = fmt.Sprintf("The seller declined your offer on item %s.", ev.ItemID)
	case marketplace.EventOfferAccepted:
		title = "Offer accepted"
		body = fmt.Sprintf("Your offer was accepted. %s is held in escrow %s until you confirm delivery.", amount, ev.EscrowID)
	case marketplace.EventItemSold:
		title = "Payment released"
		body = fmt.Sprintf("Delivery confirmed for item %s. %s has been released to your wallet.", ev.ItemID, amount)
	case marketplace.EventEscrowDisputed:
		title = "Escrow disputed"
		body = fmt.Sprintf("The buyer disputed escrow %s. %s stays locked until it is refunded.", ev.EscrowID, amount)
	case marketplace.EventEscrowRefunded:
		title = "Escrow refunded"
		body = fmt.Sprintf("Escrow %s was refunded. %s has been returned to your wallet.", ev.EscrowID, amount)
	case marketplace.EventWalletTopUp:
		to = ev.Actor
		title = "Wallet topped up"
		body = fmt.Sprintf("%s was added to your wallet.", amount)
	default:
		return nil
	}
	if to == "" {
		return nil
	}

	return []NotifyPayload{{
		EventID:   ev.ID,
		Seq:       ev.Seq,
		Type:      ev.Type,
		Recipient: to,
		Title:     title,
		Body:      body,
		ItemID:    ev.ItemID,
		OfferID:   ev.OfferID,
		EscrowID:  ev.EscrowID,
		Amount:    ev.Amount,
		At:        ev.Timestamp,
	}}
}

// short abbreviates a long address for message text.
func short(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

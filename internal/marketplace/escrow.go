package marketplace

import (
	"time"

	"github.com/sudo-init-do/resalehub/internal/wallet"
)

// CheckAcceptOffer runs every AcceptOffer precondition without touching
// state. The engine calls it before drawing funds from the buyer.
func (r *Registry) CheckAcceptOffer(now time.Time, seller, offerID, itemID string, payment int64) (Offer, error) {
	const op = "AcceptOffer"
	if err := checkClock(op, now); err != nil {
		return Offer{}, err
	}
	o, err := r.offerFor(op, offerID)
	if err != nil {
		return Offer{}, err
	}
	if seller == "" || seller != o.Seller {
		return Offer{}, errorf(op, KindUnauthorized, "only the seller can accept this offer")
	}
	if o.ItemID != itemID {
		return Offer{}, errorf(op, KindInvalidInput, "offer %s is not for item %s", offerID, itemID)
	}
	if o.Status != OfferPending && o.Status != OfferCountered {
		return Offer{}, errorf(op, KindInvalidState, "offer is %s", o.Status)
	}
	it, ok := r.items[itemID]
	if !ok {
		return Offer{}, errorf(op, KindNotFound, "item %s not found", itemID)
	}
	if it.Status != ItemActive {
		return Offer{}, errorf(op, KindInvalidState, "item is %s", it.Status)
	}
	if o.Expired(now) {
		return Offer{}, errorf(op, KindInvalidState, "offer expired at %s", o.ExpiresAt.Format(time.RFC3339))
	}
	if payment != o.Amount {
		return Offer{}, errorf(op, KindPaymentMismatch, "payment %d does not match offer amount %d", payment, o.Amount)
	}
	return *o, nil
}

// AcceptOffer opens an escrow for the offer and moves payment into its
// custody. On error the coin is left untouched so the caller can return it.
func (r *Registry) AcceptOffer(now time.Time, seller, offerID, itemID string, payment *wallet.Coin) (Escrow, error) {
	o, err := r.CheckAcceptOffer(now, seller, offerID, itemID, payment.Value())
	if err != nil {
		return Escrow{}, err
	}

	e := &Escrow{
		ID:        r.newID(),
		OfferID:   o.ID,
		ItemID:    o.ItemID,
		Buyer:     o.Buyer,
		Seller:    o.Seller,
		Amount:    o.Amount,
		Held:      payment.Drain(),
		Status:    EscrowActive,
		CreatedAt: now,
	}
	r.escrows[e.ID] = e
	r.escrowCount++
	r.offers[o.ID].Status = OfferAccepted

	r.emit(Event{
		Type:         EventOfferAccepted,
		ItemID:       e.ItemID,
		OfferID:      e.OfferID,
		EscrowID:     e.ID,
		Actor:        seller,
		Counterparty: e.Buyer,
		Amount:       e.Amount,
		Timestamp:    now,
	})
	return e.clone(), nil
}

// ConfirmDelivery releases the held funds to the seller and marks the item
// sold. It is the only way a seller gets paid.
func (r *Registry) ConfirmDelivery(now time.Time, buyer, escrowID, itemID string) (Escrow, Payout, error) {
	const op = "ConfirmDelivery"
	if err := checkClock(op, now); err != nil {
		return Escrow{}, Payout{}, err
	}
	e, err := r.escrowFor(op, escrowID)
	if err != nil {
		return Escrow{}, Payout{}, err
	}
	if buyer == "" || buyer != e.Buyer {
		return Escrow{}, Payout{}, errorf(op, KindUnauthorized, "only the buyer can confirm delivery")
	}
	if e.ItemID != itemID {
		return Escrow{}, Payout{}, errorf(op, KindInvalidInput, "escrow %s is not for item %s", escrowID, itemID)
	}
	if e.Status != EscrowActive {
		return Escrow{}, Payout{}, errorf(op, KindInvalidState, "escrow is %s", e.Status)
	}
	it, ok := r.items[itemID]
	if !ok {
		return Escrow{}, Payout{}, errorf(op, KindNotFound, "item %s not found", itemID)
	}
	if it.Status != ItemActive {
		return Escrow{}, Payout{}, errorf(op, KindInvalidState, "item is %s", it.Status)
	}

	// item checked above, markSold cannot fail here
	if err := r.markSold(now, itemID); err != nil {
		return Escrow{}, Payout{}, err
	}
	p := Payout{To: e.Seller, Amount: e.Held}
	e.Held = 0
	e.Status = EscrowCompleted
	done := now
	e.CompletedAt = &done

	r.emit(Event{
		Type:         EventItemSold,
		ItemID:       e.ItemID,
		OfferID:      e.OfferID,
		EscrowID:     e.ID,
		Actor:        buyer,
		Counterparty: e.Seller,
		Amount:       p.Amount,
		Timestamp:    now,
	})
	return e.clone(), p, nil
}

// DisputeEscrow freezes an active escrow until the seller or an arbiter
// refunds it.
func (r *Registry) DisputeEscrow(now time.Time, buyer, escrowID string) (Escrow, error) {
	const op = "DisputeEscrow"
	if err := checkClock(op, now); err != nil {
		return Escrow{}, err
	}
	e, err := r.escrowFor(op, escrowID)
	if err != nil {
		return Escrow{}, err
	}
	if buyer == "" || buyer != e.Buyer {
		return Escrow{}, errorf(op, KindUnauthorized, "only the buyer can dispute this escrow")
	}
	if e.Status != EscrowActive {
		return Escrow{}, errorf(op, KindInvalidState, "escrow is %s", e.Status)
	}

	e.Status = EscrowDisputed
	r.emit(Event{
		Type:         EventEscrowDisputed,
		ItemID:       e.ItemID,
		OfferID:      e.OfferID,
		EscrowID:     e.ID,
		Actor:        buyer,
		Counterparty: e.Seller,
		Amount:       e.Held,
		Timestamp:    now,
	})
	return e.clone(), nil
}

// RefundEscrow returns the held funds of a disputed escrow to the buyer.
// Status is checked before the caller so that a refund on a non-disputed
// escrow always reports EscrowNotDisputed.
func (r *Registry) RefundEscrow(now time.Time, caller, escrowID string) (Escrow, Payout, error) {
	const op = "RefundEscrow"
	if err := checkClock(op, now); err != nil {
		return Escrow{}, Payout{}, err
	}
	e, err := r.escrowFor(op, escrowID)
	if err != nil {
		return Escrow{}, Payout{}, err
	}
	if e.Status != EscrowDisputed {
		return Escrow{}, Payout{}, errorf(op, KindEscrowNotDisputed, "escrow is %s, only disputed escrows can be refunded", e.Status)
	}
	if caller == "" || (caller != e.Seller && !r.IsArbiter(caller)) {
		return Escrow{}, Payout{}, errorf(op, KindUnauthorized, "only the seller or an arbiter can refund this escrow")
	}

	p := Payout{To: e.Buyer, Amount: e.Held}
	e.Held = 0
	e.Status = EscrowRefunded
	done := now
	e.CompletedAt = &done

	r.emit(Event{
		Type:         EventEscrowRefunded,
		ItemID:       e.ItemID,
		OfferID:      e.OfferID,
		EscrowID:     e.ID,
		Actor:        caller,
		Counterparty: e.Buyer,
		Amount:       p.Amount,
		Timestamp:    now,
	})
	return e.clone(), p, nil
}

func (r *Registry) escrowFor(op, escrowID string) (*Escrow, error) {
	e, ok := r.escrows[escrowID]
	if !ok {
		return nil, errorf(op, KindNotFound, "escrow %s not found", escrowID)
	}
	return e, nil
}

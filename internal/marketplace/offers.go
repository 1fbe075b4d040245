package marketplace

import "time"

// MaxOfferHours caps how long an offer may stay open (7 days).
const MaxOfferHours = 168

// CreateOffer records buyer's proposal on an active item. No funds are
// locked; payment is only taken when the seller accepts.
func (r *Registry) CreateOffer(now time.Time, buyer, itemID string, amount int64, message string, expiresInHours int) (Offer, error) {
	const op = "CreateOffer"
	if err := checkClock(op, now); err != nil {
		return Offer{}, err
	}
	if buyer == "" {
		return Offer{}, errorf(op, KindUnauthorized, "caller address required")
	}
	if amount <= 0 {
		return Offer{}, errorf(op, KindInvalidInput, "amount must be greater than zero")
	}
	if expiresInHours <= 0 || expiresInHours > MaxOfferHours {
		return Offer{}, errorf(op, KindInvalidInput, "expiry must be between 1 and %d hours", MaxOfferHours)
	}
	it, ok := r.items[itemID]
	if !ok {
		return Offer{}, errorf(op, KindNotFound, "item %s not found", itemID)
	}
	if buyer == it.Seller {
		return Offer{}, errorf(op, KindUnauthorized, "you cannot make an offer on your own item")
	}
	if it.Status != ItemActive {
		return Offer{}, errorf(op, KindInvalidState, "item is %s", it.Status)
	}

	o := &Offer{
		ID:        r.newID(),
		ItemID:    it.ID,
		Buyer:     buyer,
		Seller:    it.Seller,
		Amount:    amount,
		Message:   message,
		Status:    OfferPending,
		ExpiresAt: now.Add(time.Duration(expiresInHours) * time.Hour),
		CreatedAt: now,
	}
	r.offers[o.ID] = o
	r.offerCount++

	r.emit(Event{
		Type:         EventOfferCreated,
		ItemID:       o.ItemID,
		OfferID:      o.ID,
		Actor:        buyer,
		Counterparty: o.Seller,
		Amount:       amount,
		Timestamp:    now,
	})
	return *o, nil
}

// CounterOffer lets the seller answer a pending offer with a new amount. The
// offer is rewritten in place.
func (r *Registry) CounterOffer(now time.Time, seller, offerID string, amount int64, message string) (Offer, error) {
	const op = "CounterOffer"
	if err := checkClock(op, now); err != nil {
		return Offer{}, err
	}
	o, err := r.offerFor(op, offerID)
	if err != nil {
		return Offer{}, err
	}
	if seller == "" || seller != o.Seller {
		return Offer{}, errorf(op, KindUnauthorized, "only the seller can counter this offer")
	}
	if o.Status != OfferPending {
		return Offer{}, errorf(op, KindInvalidState, "offer is %s", o.Status)
	}
	if amount <= 0 {
		return Offer{}, errorf(op, KindInvalidInput, "counter amount must be greater than zero")
	}
	if amount == o.Amount {
		return Offer{}, errorf(op, KindInvalidInput, "counter amount must differ from the current amount")
	}
	if o.Expired(now) {
		return Offer{}, errorf(op, KindInvalidState, "offer expired at %s", o.ExpiresAt.Format(time.RFC3339))
	}

	o.Amount = amount
	o.Message = message
	o.Status = OfferCountered
	o.Countered = true
	r.emit(Event{
		Type:         EventOfferCountered,
		ItemID:       o.ItemID,
		OfferID:      o.ID,
		Actor:        seller,
		Counterparty: o.Buyer,
		Amount:       amount,
		Timestamp:    now,
	})
	return *o, nil
}

// AcceptCounterOffer lets the buyer agree to the seller's counter. It does not
// open an escrow; the seller still has to call AcceptOffer with payment.
func (r *Registry) AcceptCounterOffer(now time.Time, buyer, offerID string) (Offer, error) {
	const op = "AcceptCounterOffer"
	if err := checkClock(op, now); err != nil {
		return Offer{}, err
	}
	o, err := r.offerFor(op, offerID)
	if err != nil {
		return Offer{}, err
	}
	if buyer == "" || buyer != o.Buyer {
		return Offer{}, errorf(op, KindUnauthorized, "only the buyer can accept this counter")
	}
	if o.Status != OfferCountered {
		return Offer{}, errorf(op, KindInvalidState, "offer is %s", o.Status)
	}
	if o.Expired(now) {
		return Offer{}, errorf(op, KindInvalidState, "offer expired at %s", o.ExpiresAt.Format(time.RFC3339))
	}

	o.Status = OfferAccepted
	r.emit(Event{
		Type:         EventOfferCounterAccepted,
		ItemID:       o.ItemID,
		OfferID:      o.ID,
		Actor:        buyer,
		Counterparty: o.Seller,
		Amount:       o.Amount,
		Timestamp:    now,
	})
	return *o, nil
}

// CancelOffer withdraws the buyer's open offer.
func (r *Registry) CancelOffer(now time.Time, buyer, offerID string) (Offer, error) {
	const op = "CancelOffer"
	if err := checkClock(op, now); err != nil {
		return Offer{}, err
	}
	o, err := r.offerFor(op, offerID)
	if err != nil {
		return Offer{}, err
	}
	if buyer == "" || buyer != o.Buyer {
		return Offer{}, errorf(op, KindUnauthorized, "only the buyer can cancel this offer")
	}
	if o.Status != OfferPending && o.Status != OfferCountered {
		return Offer{}, errorf(op, KindInvalidState, "offer is %s", o.Status)
	}
	if o.Expired(now) {
		return Offer{}, errorf(op, KindInvalidState, "offer expired at %s", o.ExpiresAt.Format(time.RFC3339))
	}

	o.Status = OfferCancelled
	r.emit(Event{
		Type:         EventOfferCancelled,
		ItemID:       o.ItemID,
		OfferID:      o.ID,
		Actor:        buyer,
		Counterparty: o.Seller,
		Timestamp:    now,
	})
	return *o, nil
}

// RejectOffer lets the seller decline a pending offer.
func (r *Registry) RejectOffer(now time.Time, seller, offerID string) (Offer, error) {
	const op = "RejectOffer"
	if err := checkClock(op, now); err != nil {
		return Offer{}, err
	}
	o, err := r.offerFor(op, offerID)
	if err != nil {
		return Offer{}, err
	}
	if seller == "" || seller != o.Seller {
		return Offer{}, errorf(op, KindUnauthorized, "only the seller can reject this offer")
	}
	if o.Status != OfferPending {
		return Offer{}, errorf(op, KindInvalidState, "offer is %s", o.Status)
	}
	if o.Expired(now) {
		return Offer{}, errorf(op, KindInvalidState, "offer expired at %s", o.ExpiresAt.Format(time.RFC3339))
	}

	o.Status = OfferRejected
	r.emit(Event{
		Type:         EventOfferRejected,
		ItemID:       o.ItemID,
		OfferID:      o.ID,
		Actor:        seller,
		Counterparty: o.Buyer,
		Timestamp:    now,
	})
	return *o, nil
}

func (r *Registry) offerFor(op, offerID string) (*Offer, error) {
	o, ok := r.offers[offerID]
	if !ok {
		return nil, errorf(op, KindNotFound, "offer %s not found", offerID)
	}
	return o, nil
}

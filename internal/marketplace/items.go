package marketplace

import (
	"strings"
	"time"
)

// NewItem carries the seller-supplied fields of a listing.
type NewItem struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Price       int64      `json:"price"`
	Category    string     `json:"category"`
	Tags        []string   `json:"tags"`
	ImageRefs   []string   `json:"image_refs"`
	Attributes  Attributes `json:"attributes"`
}

// CreateItem lists a new active item for seller.
func (r *Registry) CreateItem(now time.Time, seller string, in NewItem) (Item, error) {
	const op = "CreateItem"
	if err := checkClock(op, now); err != nil {
		return Item{}, err
	}
	if seller == "" {
		return Item{}, errorf(op, KindUnauthorized, "caller address required")
	}
	if in.Price <= 0 {
		return Item{}, errorf(op, KindInvalidInput, "price must be greater than zero")
	}
	if strings.TrimSpace(in.Title) == "" {
		return Item{}, errorf(op, KindInvalidInput, "title is required")
	}
	if strings.TrimSpace(in.Description) == "" {
		return Item{}, errorf(op, KindInvalidInput, "description is required")
	}

	it := &Item{
		ID:          r.newID(),
		Seller:      seller,
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		Category:    in.Category,
		Tags:        append([]string(nil), in.Tags...),
		ImageRefs:   append([]string(nil), in.ImageRefs...),
		Attributes:  in.Attributes,
		Status:      ItemActive,
		CreatedAt:   now,
	}
	r.items[it.ID] = it
	r.itemCount++

	r.emit(Event{
		Type:      EventItemCreated,
		ItemID:    it.ID,
		Actor:     seller,
		Amount:    it.Price,
		Category:  it.Category,
		Timestamp: now,
	})
	return it.clone(), nil
}

// UpdatePrice changes the asking price of an active item.
func (r *Registry) UpdatePrice(now time.Time, caller, itemID string, newPrice int64) (Item, error) {
	const op = "UpdatePrice"
	if err := checkClock(op, now); err != nil {
		return Item{}, err
	}
	it, err := r.sellerItem(op, caller, itemID)
	if err != nil {
		return Item{}, err
	}
	if newPrice <= 0 {
		return Item{}, errorf(op, KindInvalidInput, "price must be greater than zero")
	}

	old := it.Price
	it.Price = newPrice
	r.emit(Event{
		Type:      EventPriceUpdated,
		ItemID:    it.ID,
		Actor:     caller,
		OldPrice:  old,
		NewPrice:  newPrice,
		Timestamp: now,
	})
	return it.clone(), nil
}

// Cancel withdraws an active item from sale. Cancelled items stay in the
// registry for audit.
func (r *Registry) Cancel(now time.Time, caller, itemID string) (Item, error) {
	const op = "Cancel"
	if err := checkClock(op, now); err != nil {
		return Item{}, err
	}
	it, err := r.sellerItem(op, caller, itemID)
	if err != nil {
		return Item{}, err
	}

	it.Status = ItemCancelled
	r.emit(Event{
		Type:      EventItemCancelled,
		ItemID:    it.ID,
		Actor:     caller,
		Timestamp: now,
	})
	return it.clone(), nil
}

// markSold is reachable only through ConfirmDelivery.
func (r *Registry) markSold(now time.Time, itemID string) error {
	const op = "MarkSold"
	it, ok := r.items[itemID]
	if !ok {
		return errorf(op, KindNotFound, "item %s not found", itemID)
	}
	if it.Status != ItemActive {
		return errorf(op, KindInvalidState, "item is %s", it.Status)
	}

	it.Status = ItemSold
	r.emit(Event{
		Type:      EventItemMarkedSold,
		ItemID:    it.ID,
		Actor:     it.Seller,
		Timestamp: now,
	})
	return nil
}

// sellerItem loads an item the caller owns and that is still active.
func (r *Registry) sellerItem(op, caller, itemID string) (*Item, error) {
	it, ok := r.items[itemID]
	if !ok {
		return nil, errorf(op, KindNotFound, "item %s not found", itemID)
	}
	if caller == "" || caller != it.Seller {
		return nil, errorf(op, KindUnauthorized, "only the seller can modify this item")
	}
	if it.Status != ItemActive {
		return nil, errorf(op, KindInvalidState, "item is %s", it.Status)
	}
	return it, nil
}

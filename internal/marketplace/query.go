package marketplace

import (
	"sort"
	"strings"
)

// ItemFilter narrows ListItems. Zero values match everything.
type ItemFilter struct {
	Seller   string
	Category string
	Status   ItemStatus
	Tag      string
	MinPrice int64
	MaxPrice int64
	Limit    int
	Offset   int
}

func (f ItemFilter) match(it *Item) bool {
	if f.Seller != "" && it.Seller != f.Seller {
		return false
	}
	if f.Category != "" && !strings.EqualFold(it.Category, f.Category) {
		return false
	}
	if f.Status != "" && it.Status != f.Status {
		return false
	}
	if f.MinPrice > 0 && it.Price < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && it.Price > f.MaxPrice {
		return false
	}
	if f.Tag != "" {
		found := false
		for _, t := range it.Tags {
			if strings.EqualFold(t, f.Tag) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// ListItems returns matching items, newest first.
func (r *Registry) ListItems(f ItemFilter) []Item {
	out := make([]Item, 0)
	for _, it := range r.items {
		if f.match(it) {
			out = append(out, it.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newer(out[i].CreatedAt.UnixNano(), out[j].CreatedAt.UnixNano(), out[i].ID, out[j].ID)
	})
	return page(out, f.Offset, f.Limit)
}

// OfferFilter narrows ListOffers. Participant matches either side.
type OfferFilter struct {
	ItemID      string
	Buyer       string
	Seller      string
	Participant string
	Status      OfferStatus
	Limit       int
	Offset      int
}

// ListOffers returns matching offers, newest first.
func (r *Registry) ListOffers(f OfferFilter) []Offer {
	out := make([]Offer, 0)
	for _, o := range r.offers {
		switch {
		case f.ItemID != "" && o.ItemID != f.ItemID:
			continue
		case f.Buyer != "" && o.Buyer != f.Buyer:
			continue
		case f.Seller != "" && o.Seller != f.Seller:
			continue
		case f.Participant != "" && o.Buyer != f.Participant && o.Seller != f.Participant:
			continue
		case f.Status != "" && o.Status != f.Status:
			continue
		}
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool {
		return newer(out[i].CreatedAt.UnixNano(), out[j].CreatedAt.UnixNano(), out[i].ID, out[j].ID)
	})
	return page(out, f.Offset, f.Limit)
}

// EscrowFilter narrows ListEscrows. Participant matches either side.
type EscrowFilter struct {
	Participant string
	Status      EscrowStatus
	Limit       int
	Offset      int
}

// ListEscrows returns matching escrows, newest first.
func (r *Registry) ListEscrows(f EscrowFilter) []Escrow {
	out := make([]Escrow, 0)
	for _, e := range r.escrows {
		if f.Participant != "" && e.Buyer != f.Participant && e.Seller != f.Participant {
			continue
		}
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		out = append(out, e.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return newer(out[i].CreatedAt.UnixNano(), out[j].CreatedAt.UnixNano(), out[i].ID, out[j].ID)
	})
	return page(out, f.Offset, f.Limit)
}

func newer(a, b int64, idA, idB string) bool {
	if a != b {
		return a > b
	}
	return idA < idB
}

func page[T any](s []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(s) {
			return s[:0]
		}
		s = s[offset:]
	}
	if limit > 0 && limit < len(s) {
		s = s[:limit]
	}
	return s
}

package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/resalehub/internal/marketplace"
)

type createOfferRequest struct {
	Amount         int64  `json:"amount"`
	Message        string `json:"message"`
	ExpiresInHours int    `json:"expires_in_hours"`
}

type counterRequest struct {
	Amount  int64  `json:"amount"`
	Message string `json:"message"`
}

type acceptRequest struct {
	ItemID  string `json:"item_id"`
	Payment int64  `json:"payment"`
}

// CreateOffer places an offer from the caller on an item.
func (h *Handler) CreateOffer(c echo.Context) error {
	buyer, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	var req createOfferRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	o, err := h.eng.CreateOffer(buyer, c.Param("id"), req.Amount, req.Message, req.ExpiresInHours)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, o)
}

// ItemOffers lists offers on an item. The seller sees all of them, anyone
// else only their own.
func (h *Handler) ItemOffers(c echo.Context) error {
	addr, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	it, found := h.eng.Item(c.Param("id"))
	if !found {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "item not found", "kind": marketplace.KindNotFound.String()})
	}
	p, err := parsePaging(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	f := marketplace.OfferFilter{ItemID: it.ID, Limit: p.Limit, Offset: p.Offset}
	if it.Seller != addr {
		f.Buyer = addr
	}
	return c.JSON(http.StatusOK, echo.Map{"offers": h.eng.ListOffers(f)})
}

// ListOffers lists offers the caller takes part in. ?role=buyer or
// ?role=seller narrows the side, ?status the state.
func (h *Handler) ListOffers(c echo.Context) error {
	addr, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	p, err := parsePaging(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	f := marketplace.OfferFilter{
		Status: marketplace.OfferStatus(c.QueryParam("status")),
		Limit:  p.Limit,
		Offset: p.Offset,
	}
	switch c.QueryParam("role") {
	case "":
		f.Participant = addr
	case "buyer":
		f.Buyer = addr
	case "seller":
		f.Seller = addr
	default:
		return badRequest(c, "role must be buyer or seller")
	}
	return c.JSON(http.StatusOK, echo.Map{"offers": h.eng.ListOffers(f)})
}

// GetOffer returns an offer to its buyer or seller.
func (h *Handler) GetOffer(c echo.Context) error {
	addr, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	o, found := h.eng.Offer(c.Param("id"))
	if !found {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "offer not found", "kind": marketplace.KindNotFound.String()})
	}
	if addr != o.Buyer && addr != o.Seller {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not a participant in this offer", "kind": marketplace.KindUnauthorized.String()})
	}
	return c.JSON(http.StatusOK, o)
}

// CounterOffer lets the seller propose a new amount.
func (h *Handler) CounterOffer(c echo.Context) error {
	seller, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	var req counterRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	o, err := h.eng.CounterOffer(seller, c.Param("id"), req.Amount, req.Message)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// AcceptCounterOffer lets the buyer agree to the seller's counter.
func (h *Handler) AcceptCounterOffer(c echo.Context) error {
	buyer, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	o, err := h.eng.AcceptCounterOffer(buyer, c.Param("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// CancelOffer withdraws the caller's offer.
func (h *Handler) CancelOffer(c echo.Context) error {
	buyer, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	o, err := h.eng.CancelOffer(buyer, c.Param("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// RejectOffer declines a pending offer on the caller's item.
func (h *Handler) RejectOffer(c echo.Context) error {
	seller, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	o, err := h.eng.RejectOffer(seller, c.Param("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// AcceptOffer accepts an offer and opens an escrow funded from the buyer's
// balance. payment must equal the offer amount.
func (h *Handler) AcceptOffer(c echo.Context) error {
	seller, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	var req acceptRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	esc, err := h.eng.AcceptOffer(seller, c.Param("id"), req.ItemID, req.Payment)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, esc)
}

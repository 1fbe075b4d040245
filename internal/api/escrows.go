package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/resalehub/internal/marketplace"
)

type confirmRequest struct {
	ItemID string `json:"item_id"`
}

// ListEscrows lists escrows the caller is buyer or seller of.
func (h *Handler) ListEscrows(c echo.Context) error {
	addr, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	p, err := parsePaging(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	escrows := h.eng.ListEscrows(marketplace.EscrowFilter{
		Participant: addr,
		Status:      marketplace.EscrowStatus(c.QueryParam("status")),
		Limit:       p.Limit,
		Offset:      p.Offset,
	})
	return c.JSON(http.StatusOK, echo.Map{"escrows": escrows})
}

// GetEscrow returns an escrow to its participants and to arbiters.
func (h *Handler) GetEscrow(c echo.Context) error {
	addr, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	esc, found := h.eng.Escrow(c.Param("id"))
	if !found {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "escrow not found", "kind": marketplace.KindNotFound.String()})
	}
	if addr != esc.Buyer && addr != esc.Seller && !h.eng.IsArbiter(addr) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not a participant in this escrow", "kind": marketplace.KindUnauthorized.String()})
	}
	return c.JSON(http.StatusOK, esc)
}

// ConfirmDelivery releases the escrow to the seller and marks the item sold.
func (h *Handler) ConfirmDelivery(c echo.Context) error {
	buyer, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	var req confirmRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	esc, err := h.eng.ConfirmDelivery(buyer, c.Param("id"), req.ItemID)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, esc)
}

// DisputeEscrow freezes an active escrow.
func (h *Handler) DisputeEscrow(c echo.Context) error {
	buyer, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	esc, err := h.eng.DisputeEscrow(buyer, c.Param("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, esc)
}

// RefundEscrow returns a disputed escrow to the buyer. Seller or arbiter only.
func (h *Handler) RefundEscrow(c echo.Context) error {
	addr, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	esc, err := h.eng.RefundEscrow(addr, c.Param("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, esc)
}

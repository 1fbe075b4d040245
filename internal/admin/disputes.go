package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/resalehub/internal/marketplace"
)

// GET /admin/disputes
func (h *Handler) ListDisputes(c echo.Context) error {
	escrows := h.eng.ListEscrows(marketplace.EscrowFilter{Status: marketplace.EscrowDisputed})
	return c.JSON(http.StatusOK, echo.Map{"disputes": escrows})
}

// POST /admin/disputes/:id/resolve refunds the disputed escrow to the buyer.
func (h *Handler) ResolveDispute(c echo.Context) error {
	arbiter, ok := c.Get("user_id").(string)
	if !ok || arbiter == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "escrow id required"})
	}

	esc, err := h.eng.RefundEscrow(arbiter, id)
	if err != nil {
		code := http.StatusInternalServerError
		switch marketplace.KindOf(err) {
		case marketplace.KindNotFound:
			code = http.StatusNotFound
		case marketplace.KindUnauthorized:
			code = http.StatusForbidden
		case marketplace.KindEscrowNotDisputed, marketplace.KindInvalidState:
			code = http.StatusConflict
		}
		return c.JSON(code, echo.Map{"error": err.Error(), "kind": marketplace.KindOf(err).String()})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "refunded", "escrow": esc})
}

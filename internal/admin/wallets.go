package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// GET /admin/wallets
func (h *Handler) ListWallets(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"wallets": h.eng.Wallets()})
}

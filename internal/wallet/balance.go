package wallet

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Service is what the wallet routes need from the marketplace engine.
type Service interface {
	Balance(addr string) int64
	TopUp(addr string, amount int64) (int64, error)
	Transactions(addr string, limit int) []Transaction
}

// Handler serves the /wallet routes.
type Handler struct {
	svc         Service
	faucet      bool
	faucetLimit int64
}

// NewHandler builds wallet routes. When faucet is false top-ups are refused.
func NewHandler(svc Service, faucet bool, faucetLimit int64) *Handler {
	return &Handler{svc: svc, faucet: faucet, faucetLimit: faucetLimit}
}

// Balance returns the authenticated address's spendable balance
func (h *Handler) Balance(c echo.Context) error {
	addr, ok := c.Get("user_id").(string)
	if !ok || addr == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	return c.JSON(http.StatusOK, Wallet{
		Address: addr,
		Balance: h.svc.Balance(addr),
	})
}

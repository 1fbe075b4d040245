package wallet

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type TopupRequest struct {
	Amount int64 `json:"amount"`
}

type TopupResponse struct {
	Address string `json:"address"`
	Amount  int64  `json:"amount"`
	Balance int64  `json:"balance"`
}

// TopUp credits the caller from the development faucet.
func (h *Handler) TopUp(c echo.Context) error {
	if !h.faucet {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "faucet disabled"})
	}
	addr, ok := c.Get("user_id").(string)
	if !ok || addr == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	req := new(TopupRequest)
	if err := c.Bind(req); err != nil || req.Amount <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if h.faucetLimit > 0 && req.Amount > h.faucetLimit {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount exceeds faucet limit"})
	}

	bal, err := h.svc.TopUp(addr, req.Amount)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not top up wallet"})
	}

	return c.JSON(http.StatusOK, TopupResponse{
		Address: addr,
		Amount:  req.Amount,
		Balance: bal,
	})
}

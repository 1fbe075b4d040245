package wallet

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// Transaction kinds.
const (
	TxTopUp         = "topup"
	TxEscrowLock    = "escrow_lock"
	TxEscrowRelease = "escrow_release"
	TxEscrowRefund  = "escrow_refund"
)

// Transaction is one balance movement of an address. Amount is negative for
// funds leaving the wallet.
type Transaction struct {
	Seq       uint64    `json:"seq"`
	Kind      string    `json:"kind"`
	Amount    int64     `json:"amount"`
	ItemID    string    `json:"item_id,omitempty"`
	EscrowID  string    `json:"escrow_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Transactions returns the authenticated address's balance movements,
// newest first. ?limit= caps the result.
func (h *Handler) Transactions(c echo.Context) error {
	addr, ok := c.Get("user_id").(string)
	if !ok || addr == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"error": "unauthorized or invalid user",
		})
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
		limit = n
	}

	txs := h.svc.Transactions(addr, limit)
	if txs == nil {
		txs = []Transaction{}
	}
	return c.JSON(http.StatusOK, echo.Map{"transactions": txs})
}

// Package api exposes the marketplace engine over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/resalehub/internal/engine"
	"github.com/sudo-init-do/resalehub/internal/marketplace"
	"github.com/sudo-init-do/resalehub/internal/wallet"
)

// Searcher answers keyword queries over active items.
type Searcher interface {
	Query(ctx context.Context, q string, limit int) ([]marketplace.Item, error)
}

// Handler serves the marketplace routes.
type Handler struct {
	eng    *engine.Engine
	search Searcher
	logger *slog.Logger
}

// NewHandler creates a Handler. search may be nil, in which case /search
// scans the registry.
func NewHandler(eng *engine.Engine, search Searcher, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{eng: eng, search: search, logger: logger}
}

// Register mounts the routes. Reads of listings, the event log and search
// are public; everything else runs behind authn.
func (h *Handler) Register(e *echo.Echo, authn ...echo.MiddlewareFunc) {
	e.GET("/items", h.ListItems)
	e.GET("/items/:id", h.GetItem)
	e.GET("/events", h.ListEvents)
	e.GET("/search", h.Search)

	g := e.Group("", authn...)
	g.POST("/items", h.CreateItem)
	g.PATCH("/items/:id/price", h.UpdatePrice)
	g.POST("/items/:id/cancel", h.CancelItem)

	g.POST("/items/:id/offers", h.CreateOffer)
	g.GET("/items/:id/offers", h.ItemOffers)
	g.GET("/offers", h.ListOffers)
	g.GET("/offers/:id", h.GetOffer)
	g.POST("/offers/:id/counter", h.CounterOffer)
	g.POST("/offers/:id/accept-counter", h.AcceptCounterOffer)
	g.POST("/offers/:id/cancel", h.CancelOffer)
	g.POST("/offers/:id/reject", h.RejectOffer)
	g.POST("/offers/:id/accept", h.AcceptOffer)

	g.GET("/escrows", h.ListEscrows)
	g.GET("/escrows/:id", h.GetEscrow)
	g.POST("/escrows/:id/confirm", h.ConfirmDelivery)
	g.POST("/escrows/:id/dispute", h.DisputeEscrow)
	g.POST("/escrows/:id/refund", h.RefundEscrow)
}

func caller(c echo.Context) (string, bool) {
	addr, ok := c.Get("user_id").(string)
	return addr, ok && addr != ""
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "kind": marketplace.KindInvalidInput.String()})
}

func statusFor(k marketplace.Kind) int {
	switch k {
	case marketplace.KindInvalidInput:
		return http.StatusBadRequest
	case marketplace.KindUnauthorized:
		return http.StatusForbidden
	case marketplace.KindInvalidState, marketplace.KindEscrowNotDisputed:
		return http.StatusConflict
	case marketplace.KindPaymentMismatch:
		return http.StatusPaymentRequired
	case marketplace.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// writeError maps engine errors onto HTTP statuses.
func (h *Handler) writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, wallet.ErrInsufficientFunds):
		return c.JSON(http.StatusPaymentRequired, echo.Map{"error": err.Error(), "kind": "insufficient_funds"})
	case errors.Is(err, wallet.ErrInvalidAmount):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error(), "kind": marketplace.KindInvalidInput.String()})
	}
	if k := marketplace.KindOf(err); k != 0 {
		return c.JSON(statusFor(k), echo.Map{"error": err.Error(), "kind": k.String()})
	}
	h.logger.Error("request failed", "path", c.Path(), "err", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// queryInt64 parses an optional integer query parameter.
func queryInt64(c echo.Context, name string) (int64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

type paging struct {
	Limit  int
	Offset int
}

func parsePaging(c echo.Context) (paging, error) {
	limit, err := queryInt64(c, "limit")
	if err != nil || limit < 0 {
		return paging{}, errors.New("limit must be a non-negative integer")
	}
	offset, err := queryInt64(c, "offset")
	if err != nil || offset < 0 {
		return paging{}, errors.New("offset must be a non-negative integer")
	}
	return paging{Limit: int(limit), Offset: int(offset)}, nil
}

package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/resalehub/internal/marketplace"
)

// CreateItem lists a new item for the caller.
func (h *Handler) CreateItem(c echo.Context) error {
	seller, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	var req marketplace.NewItem
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	it, err := h.eng.CreateItem(seller, req)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, it)
}

// GetItem returns one item.
func (h *Handler) GetItem(c echo.Context) error {
	it, ok := h.eng.Item(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "item not found", "kind": marketplace.KindNotFound.String()})
	}
	return c.JSON(http.StatusOK, it)
}

// ListItems supports seller, category, status, tag, min_price, max_price,
// limit and offset filters.
func (h *Handler) ListItems(c echo.Context) error {
	p, err := parsePaging(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	minPrice, err := queryInt64(c, "min_price")
	if err != nil {
		return badRequest(c, "min_price must be an integer")
	}
	maxPrice, err := queryInt64(c, "max_price")
	if err != nil {
		return badRequest(c, "max_price must be an integer")
	}
	status := marketplace.ItemStatus(c.QueryParam("status"))
	switch status {
	case "", marketplace.ItemActive, marketplace.ItemSold, marketplace.ItemCancelled:
	default:
		return badRequest(c, "unknown status")
	}

	items := h.eng.ListItems(marketplace.ItemFilter{
		Seller:   c.QueryParam("seller"),
		Category: c.QueryParam("category"),
		Status:   status,
		Tag:      c.QueryParam("tag"),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Limit:    p.Limit,
		Offset:   p.Offset,
	})
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

type priceRequest struct {
	Price int64 `json:"price"`
}

// UpdatePrice changes the asking price of the caller's item.
func (h *Handler) UpdatePrice(c echo.Context) error {
	seller, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	var req priceRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	it, err := h.eng.UpdatePrice(seller, c.Param("id"), req.Price)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, it)
}

// CancelItem withdraws the caller's listing.
func (h *Handler) CancelItem(c echo.Context) error {
	seller, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	it, err := h.eng.CancelItem(seller, c.Param("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, it)
}

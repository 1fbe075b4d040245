package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/resalehub/internal/marketplace"
	"github.com/sudo-init-do/resalehub/internal/search"
)

const (
	defaultEventLimit  = 100
	maxEventLimit      = 1000
	defaultSearchLimit = 50
)

// ListEvents pages through the event log: ?after=<seq>&limit=<n>.
func (h *Handler) ListEvents(c echo.Context) error {
	var after uint64
	if raw := c.QueryParam("after"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return badRequest(c, "after must be a sequence number")
		}
		after = n
	}
	limit := defaultEventLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return badRequest(c, "limit must be a positive integer")
		}
		limit = min(n, maxEventLimit)
	}

	events := h.eng.Events(after, limit)
	if events == nil {
		events = []marketplace.Event{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"events":   events,
		"last_seq": h.eng.LastSeq(),
	})
}

// Search returns active items matching every keyword in ?q=.
func (h *Handler) Search(c echo.Context) error {
	q := c.QueryParam("q")
	if len(search.Terms(q)) == 0 {
		return badRequest(c, "q must contain at least one keyword")
	}
	limit := defaultSearchLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return badRequest(c, "limit must be a positive integer")
		}
		limit = n
	}

	if h.search != nil {
		items, err := h.search.Query(c.Request().Context(), q, limit)
		if err == nil {
			return c.JSON(http.StatusOK, echo.Map{"items": items})
		}
		h.logger.Warn("search mirror unavailable, scanning registry", "err", err)
	}

	terms := search.Terms(q)
	var items []marketplace.Item
	for _, it := range h.eng.ListItems(marketplace.ItemFilter{Status: marketplace.ItemActive}) {
		if search.Match(it, terms) {
			items = append(items, it)
			if len(items) == limit {
				break
			}
		}
	}
	if items == nil {
		items = []marketplace.Item{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

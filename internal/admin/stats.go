// Package admin serves the arbiter-only routes.
package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/resalehub/internal/engine"
)

// Handler serves /admin. Mount it behind JWTMiddleware and ArbiterGuard.
type Handler struct {
	eng     *engine.Engine
	journal func() any
}

// NewHandler creates a Handler. journal, when non-nil, reports journal
// writer metrics in /admin/stats.
func NewHandler(eng *engine.Engine, journal func() any) *Handler {
	return &Handler{eng: eng, journal: journal}
}

// Register mounts the routes on g.
func (h *Handler) Register(g *echo.Group) {
	g.GET("/stats", h.Stats)
	g.GET("/disputes", h.ListDisputes)
	g.POST("/disputes/:id/resolve", h.ResolveDispute)
	g.GET("/wallets", h.ListWallets)
}

// GET /admin/stats
func (h *Handler) Stats(c echo.Context) error {
	out := echo.Map{
		"counters":    h.eng.Counters(),
		"last_seq":    h.eng.LastSeq(),
		"wallets":     len(h.eng.Wallets()),
		"subscribers": h.eng.Subscribers(),
	}
	if h.journal != nil {
		out["journal"] = h.journal()
	}
	return c.JSON(http.StatusOK, out)
}

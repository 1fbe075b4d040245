package alerts

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Handler serves the /notifications routes.
type Handler struct {
	inbox *Inbox
}

func NewHandler(inbox *Inbox) *Handler {
	return &Handler{inbox: inbox}
}

// ListNotifications returns current user's notifications, newest first
func (h *Handler) ListNotifications(c echo.Context) error {
	addr, ok := c.Get("user_id").(string)
	if !ok || addr == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	items, err := h.inbox.List(c.Request().Context(), addr, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load notifications"})
	}
	return c.JSON(http.StatusOK, echo.Map{"notifications": items})
}

// MarkNotificationRead marks specific notification as read
func (h *Handler) MarkNotificationRead(c echo.Context) error {
	addr, ok := c.Get("user_id").(string)
	if !ok || addr == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing notification id"})
	}

	found, err := h.inbox.MarkRead(c.Request().Context(), addr, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update"})
	}
	if !found {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "ok"})
}

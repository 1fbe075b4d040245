package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Me returns the caller identity the JWT middleware resolved
func Me(c echo.Context) error {
	addr, ok := c.Get("user_id").(string)
	if !ok || addr == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	role, _ := c.Get("role").(string)

	return c.JSON(http.StatusOK, echo.Map{
		"address": addr,
		"role":    role,
	})
}

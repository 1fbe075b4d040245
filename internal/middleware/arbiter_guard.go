package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/resalehub/internal/utils"
)

// ArbiterGuard ensures only configured arbiters can reach admin routes
func ArbiterGuard(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		role, ok := c.Get("role").(string)
		if !ok || role != utils.RoleArbiter {
			return c.JSON(http.StatusForbidden, echo.Map{
				"error": "arbiter access only",
			})
		}
		return next(c)
	}
}

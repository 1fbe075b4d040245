package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRoles rejects requests whose token role is not one of roles.
// Mount it after JWTMiddleware, which sets "role".
func RequireRoles(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("role").(string)
			if _, ok := allowed[role]; !ok || role == "" {
				return c.JSON(http.StatusForbidden, echo.Map{
					"error": "role not permitted",
					"kind":  "unauthorized",
				})
			}
			return next(c)
		}
	}
}

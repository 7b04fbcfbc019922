package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ridelink/ride-hail-backend/internal/model"
)

// UserLookup resolves an account by id.  The access token deliberately
// carries no role claim, so role enforcement reads the current role from
// the store; a role or status change takes effect on the next request
// instead of surviving until token expiry.
type UserLookup func(ctx context.Context, id string) (model.User, error)

// RequireRole returns middleware that rejects requests whose authenticated
// account does not hold one of the allowed roles.  It assumes AccessAuth
// ran earlier in the chain.
func RequireRole(lookup UserLookup, roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid := CurrentUserID(c)
			if uid == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			u, err := lookup(ctx, uid)
			if err != nil || !allowed[u.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

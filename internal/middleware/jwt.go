package middleware // middleware contains reusable HTTP middleware for the auth surface

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ridelink/ride-hail-backend/internal/utils"
)

// ContextUserID is the context key under which the authenticated account id
// is stored.  Handlers read it through CurrentUserID rather than touching
// the raw context value.
const ContextUserID = "user_id"

// AccessAuth returns middleware that validates a Bearer access token and
// stores the resolved account id in the request context.  Refresh tokens
// are rejected here: they are signed with a different secret and carry a
// different kind claim.
func AccessAuth(tokens *utils.TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")
			uid, err := tokens.VerifyAccess(raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(ContextUserID, uid)
			return next(c)
		}
	}
}

// CurrentUserID extracts the authenticated account id placed into the
// context by AccessAuth.  The empty string means no identity is attached.
func CurrentUserID(c echo.Context) string {
	if v, ok := c.Get(ContextUserID).(string); ok {
		return v
	}
	return ""
}

package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // Echo web framework for routing

	"github.com/ridelink/ride-hail-backend/internal/handler"    // handlers implementing the business logic
	"github.com/ridelink/ride-hail-backend/internal/middleware" // JWT, role and rate-limit middleware
	"github.com/ridelink/ride-hail-backend/internal/model"      // role constants
	"github.com/ridelink/ride-hail-backend/internal/utils"      // token service consumed by the auth middleware
)

// RegisterRoutes registers routes that require no authentication.  The
// health check is used by load balancers to verify the service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth wires the authentication surface under /auth.  Public
// endpoints (login, register, legacy phone auth, refresh, admin login) take
// the optional rate limiter; profile endpoints sit behind the access-token
// middleware.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, tokens *utils.TokenService, limiter echo.MiddlewareFunc) {
	g := e.Group("/auth")
	if limiter != nil {
		g.Use(limiter)
	}
	g.GET("/", a.Root)
	g.POST("/login", a.Login)
	g.POST("/register", a.Register)
	// /signin is the legacy phone-number path kept for older clients.
	g.POST("/signin", a.PhoneAuth)
	g.POST("/refresh-token", a.Refresh)
	g.POST("/admin-login", a.AdminLogin)
	g.POST("/logout", a.Logout)

	profile := g.Group("/profile")
	profile.Use(middleware.AccessAuth(tokens))
	profile.GET("", a.Profile)
	profile.PUT("", a.UpdateProfile)
}

// RegisterAdmin wires the moderation surface under /admin.  Every endpoint
// requires a valid access token belonging to an admin account; the role is
// re-read from the store on each request, so demoting an admin locks them
// out immediately.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, tokens *utils.TokenService, lookup middleware.UserLookup) {
	g := e.Group("/admin")
	g.Use(middleware.AccessAuth(tokens))
	g.Use(middleware.RequireRole(lookup, model.RoleAdmin))

	g.GET("/users", h.ListUsers)
	g.GET("/users/:id", h.GetUser)
	g.PUT("/users/:id", h.UpdateUser)
	g.DELETE("/users/:id", h.DeleteUser)
	g.PATCH("/users/:id/approve", h.ApproveUser)
	g.PATCH("/users/:id/disapprove", h.DisapproveUser)
}

package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/staffhub/internal/handlers"
	"github.com/Skotchmaster/staffhub/internal/middleware"
	"github.com/Skotchmaster/staffhub/internal/rbac"
)

type Deps struct {
	AuthHandler *handlers.AuthHandler
	UserHandler *handlers.UserHandler
	Validator   middleware.TokenValidator

	// Ready reports whether the backing store answers. Nil means always ready.
	Ready func(ctx context.Context) error
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// CSRF guards the cookie-carrying auth routes when set.
	CSRF *middleware.CSRFConfig
	// Limiter throttles the credential endpoints per client IP when set.
	Limiter *middleware.IPLimiter
}

// Register wires every route. Protected routes run the guards in a fixed
// order: authenticate, then roles; tenant checks happen in the services.
func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
			}
		}
		return c.NoContent(http.StatusOK)
	})
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics))
	}

	authn := middleware.Authenticate(d.Validator)

	auth := e.Group("/auth")
	if d.CSRF != nil {
		auth.Use(middleware.CSRF(*d.CSRF))
	}
	var throttle []echo.MiddlewareFunc
	if d.Limiter != nil {
		throttle = append(throttle, d.Limiter.Middleware())
	}
	auth.POST("/register", d.AuthHandler.Register, throttle...)
	auth.POST("/login", d.AuthHandler.Login, throttle...)
	auth.POST("/refresh", d.AuthHandler.Refresh, throttle...)
	auth.POST("/logout", d.AuthHandler.LogOut, authn)
	auth.GET("/me", d.AuthHandler.Me, authn)

	users := e.Group("/users", authn)
	readers := middleware.RequireRoles(rbac.SuperAdmin, rbac.Admin, rbac.RH, rbac.Manager)
	users.GET("", d.UserHandler.List, readers)
	users.GET("/:id", d.UserHandler.Get, readers)
	users.POST("", d.UserHandler.Create, middleware.RequireRoles(rbac.SuperAdmin, rbac.Admin, rbac.RH))
	users.PATCH("/:id", d.UserHandler.Update, middleware.RequireRoles(rbac.SuperAdmin, rbac.Admin))
	users.DELETE("/:id", d.UserHandler.Remove, middleware.RequireRoles(rbac.SuperAdmin))
	users.GET("/:id/activity", d.UserHandler.Activity, middleware.RequireRoles(rbac.SuperAdmin, rbac.Admin))
}

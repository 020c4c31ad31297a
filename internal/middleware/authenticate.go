package middleware

import (
	"context"
	"errors"
	"net/http"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/staffhub/internal/rbac"
	"github.com/Skotchmaster/staffhub/internal/service"
)

const principalKey = "principal"

type TokenValidator interface {
	ValidateAccessToken(ctx context.Context, accessToken string) (service.Principal, error)
}

// Authenticate reads the bearer access token and resolves it to the live
// principal. Token signature, expiry and the identity's active flag are all
// checked on every request.
func Authenticate(v TokenValidator) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  principalKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, raw string) (interface{}, error) {
			return v.ValidateAccessToken(c.Request().Context(), raw)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			if errors.Is(err, service.ErrInternal) {
				return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
			}
			return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
		},
	})
}

// RequireRoles lets the request through when the principal holds any of
// roles. It must run after Authenticate.
func RequireRoles(roles ...rbac.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
			}
			if !rbac.Allow(roles, p.Roles) {
				return echo.NewHTTPError(http.StatusForbidden, "not enough rights")
			}
			return next(c)
		}
	}
}

func PrincipalFrom(c echo.Context) (service.Principal, bool) {
	p, ok := c.Get(principalKey).(service.Principal)
	return p, ok
}

package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/staffhub/internal/logging"
	"github.com/Skotchmaster/staffhub/internal/middleware"
	"github.com/Skotchmaster/staffhub/internal/models"
	"github.com/Skotchmaster/staffhub/internal/service"
)

type AuthHandler struct {
	Auth   *service.AuthService
	Cookie CookieConfig
}

type registerRequest struct {
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	Name      *string `json:"name"`
	CompanyID string  `json:"company_id"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken *string `json:"refresh_token"`
}

type sessionResponse struct {
	AccessToken *string                `json:"access_token"`
	User        *models.PublicIdentity `json:"user,omitempty"`
}

func (h *AuthHandler) Register(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "auth_register")

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	s, err := h.Auth.Register(c.Request().Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		TenantID: req.CompanyID,
	})
	if err != nil {
		return httpError(err)
	}
	return h.session(c, http.StatusCreated, s)
}

func (h *AuthHandler) Login(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "auth_login")

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	s, err := h.Auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return httpError(err)
	}
	return h.session(c, http.StatusOK, s)
}

// Refresh takes the token from the body first and falls back to the cookie.
// No token at all is not an error: the client simply has no session.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
		}
	}

	token := ""
	if req.RefreshToken != nil {
		token = *req.RefreshToken
	}
	if token == "" {
		if ck, err := c.Cookie(h.Cookie.name()); err == nil {
			token = ck.Value
		}
	}
	if token == "" {
		return c.JSON(http.StatusOK, sessionResponse{})
	}

	s, err := h.Auth.Refresh(c.Request().Context(), token)
	if err != nil {
		return httpError(err)
	}
	return h.session(c, http.StatusOK, s)
}

func (h *AuthHandler) LogOut(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := h.Auth.LogOut(c.Request().Context(), p); err != nil {
		return httpError(err)
	}
	c.SetCookie(h.Cookie.ClearedCookie())
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func (h *AuthHandler) Me(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *AuthHandler) session(c echo.Context, status int, s *service.Session) error {
	c.SetCookie(h.Cookie.RefreshCookie(s.RefreshToken, time.Duration(s.RefreshTTLSeconds)*time.Second, time.Now()))
	return c.JSON(status, sessionResponse{
		AccessToken: &s.AccessToken,
		User:        &s.User,
	})
}

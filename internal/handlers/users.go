package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/staffhub/internal/events"
	"github.com/Skotchmaster/staffhub/internal/middleware"
	"github.com/Skotchmaster/staffhub/internal/rbac"
	"github.com/Skotchmaster/staffhub/internal/service"
	"github.com/Skotchmaster/staffhub/internal/util"
)

type UserHandler struct {
	Users *service.UserService
}

type createUserRequest struct {
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	Name      *string  `json:"name"`
	CompanyID *string  `json:"company_id"`
	Roles     []string `json:"roles"`
}

type updateUserRequest struct {
	Email    *string  `json:"email"`
	Name     *string  `json:"name"`
	Roles    []string `json:"roles"`
	Password *string  `json:"password"`
	IsActive *bool    `json:"is_active"`
}

type activityResponse struct {
	Total  int64          `json:"total"`
	Page   int            `json:"page"`
	Size   int            `json:"size"`
	Events []events.Event `json:"events"`
}

func (h *UserHandler) List(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	list, err := h.Users.List(c.Request().Context(), p)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *UserHandler) Get(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	u, err := h.Users.Get(c.Request().Context(), c.Param("id"), p)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *UserHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	roles, err := parseRoles(req.Roles)
	if err != nil {
		return err
	}

	u, err := h.Users.Create(c.Request().Context(), service.CreateUserInput{
		Email:     req.Email,
		Password:  req.Password,
		Name:      req.Name,
		Roles:     roles,
		CompanyID: req.CompanyID,
	}, p)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *UserHandler) Update(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	roles, err := parseRoles(req.Roles)
	if err != nil {
		return err
	}

	u, err := h.Users.Update(c.Request().Context(), c.Param("id"), service.UpdateUserInput{
		Email:    req.Email,
		Name:     req.Name,
		Roles:    roles,
		Password: req.Password,
		IsActive: req.IsActive,
	}, p)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *UserHandler) Remove(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	u, err := h.Users.Remove(c.Request().Context(), c.Param("id"), p)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *UserHandler) Activity(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	from, limit := util.Offset(page, size)

	total, evs, err := h.Users.Activity(c.Request().Context(), c.Param("id"), from, limit, p)
	if err != nil {
		return httpError(err)
	}
	if evs == nil {
		evs = []events.Event{}
	}
	return c.JSON(http.StatusOK, activityResponse{
		Total:  total,
		Page:   from/limit + 1,
		Size:   limit,
		Events: evs,
	})
}

func principal(c echo.Context) (service.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return service.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return p, nil
}

// parseRoles keeps nil distinct from empty: nil leaves roles untouched on
// update, empty is rejected by the service.
func parseRoles(values []string) ([]rbac.Role, error) {
	if values == nil {
		return nil, nil
	}
	roles, err := rbac.ParseAll(values)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid roles: %v", err))
	}
	return roles, nil
}

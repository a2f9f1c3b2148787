package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/circulink/internal/model"
	"github.com/iliyamo/circulink/internal/service"
)

// Sweeper is implemented by *service.Sweeper.
type Sweeper interface {
	SweepExpired(ctx context.Context) (service.SweepResult, error)
}

// Activity is implemented by *service.AuditService.
type Activity interface {
	ListActivity(ctx context.Context, actor service.Actor, userID uint64, limit int64) ([]model.AuditEntry, error)
}

// AdminHandler groups the admin-only user, sweep and activity endpoints.
// Routes are mounted behind RequireRole(Admin); the services check again.
type AdminHandler struct {
	Accounts Accounts
	Sweeper  Sweeper
	Activity Activity
}

func NewAdminHandler(a Accounts, s Sweeper, act Activity) *AdminHandler {
	return &AdminHandler{Accounts: a, Sweeper: s, Activity: act}
}

type suspensionReq struct {
	Suspended *bool `json:"suspended"`
}

// CreateUser handles POST /v1/admin/users.
func (h *AdminHandler) CreateUser(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return nil
	}
	var req service.CreateUserInput
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	u, err := h.Accounts.CreateUser(ctx, a, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, u)
}

// SetSuspension handles PATCH /v1/admin/users/:id/suspension.
func (h *AdminHandler) SetSuspension(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return nil
	}
	id, ok := pathID(c, "id")
	if !ok {
		return nil
	}
	var req suspensionReq
	if !bind(c, &req) {
		return nil
	}
	if req.Suspended == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "suspended is required"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Accounts.SetSuspended(ctx, a, id, *req.Suspended); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "suspended": *req.Suspended})
}

// Sweep handles POST /v1/admin/sweep and runs the expiry sweep now.
func (h *AdminHandler) Sweep(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	res, err := h.Sweeper.SweepExpired(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// UserActivity handles GET /v1/admin/users/:id/activity?limit=.
func (h *AdminHandler) UserActivity(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return nil
	}
	id, ok := pathID(c, "id")
	if !ok {
		return nil
	}
	var limit int64
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
		limit = n
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	list, err := h.Activity.ListActivity(ctx, a, id, limit)
	if err != nil {
		return fail(c, err)
	}
	if list == nil {
		list = []model.AuditEntry{}
	}
	return c.JSON(http.StatusOK, list)
}

package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/circulink/internal/model"
	"github.com/iliyamo/circulink/internal/service"
)

// Notifications is implemented by *service.NotificationService.
type Notifications interface {
	Dispatch(ctx context.Context, spec service.NotificationSpec) (model.Notification, error)
	List(ctx context.Context, actor service.Actor, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, actor service.Actor, id uint64) error
	Dismiss(ctx context.Context, actor service.Actor, id uint64) error
}

type NotificationHandler struct {
	Notifications Notifications
}

func NewNotificationHandler(n Notifications) *NotificationHandler {
	return &NotificationHandler{Notifications: n}
}

// dispatchReq is the body of POST /v1/admin/notifications.
type dispatchReq struct {
	TargetUserID *uint64 `json:"target_user_id"`
	TargetRole   string  `json:"target_role"`
	Message      string  `json:"message"`
	Status       string  `json:"status"`
	Type         string  `json:"type"`
}

// List handles GET /v1/notifications?limit=.  The inbox includes
// notifications addressed to the caller, the caller's role and everyone.
func (h *NotificationHandler) List(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return nil
	}
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 200 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "limit must be between 1 and 200"})
		}
		limit = n
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	list, err := h.Notifications.List(ctx, a, limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	return h.update(c, h.Notifications.MarkRead)
}

func (h *NotificationHandler) Dismiss(c echo.Context) error {
	return h.update(c, h.Notifications.Dismiss)
}

func (h *NotificationHandler) update(c echo.Context, op func(context.Context, service.Actor, uint64) error) error {
	a, ok := actor(c)
	if !ok {
		return nil
	}
	id, ok := pathID(c, "id")
	if !ok {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := op(ctx, a, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Send handles POST /v1/admin/notifications.
func (h *NotificationHandler) Send(c echo.Context) error {
	var req dispatchReq
	if !bind(c, &req) {
		return nil
	}
	role, ok := model.ParseTargetRole(req.TargetRole)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown target_role"})
	}
	typ, ok := model.ParseNotificationType(req.Type)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown type"})
	}
	if req.TargetUserID != nil && req.TargetRole == "" {
		role = model.TargetUser
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	n, err := h.Notifications.Dispatch(ctx, service.NotificationSpec{
		TargetUserID: req.TargetUserID,
		TargetRole:   role,
		Message:      req.Message,
		Status:       req.Status,
		Type:         typ,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, n)
}

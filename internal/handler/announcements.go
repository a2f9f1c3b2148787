package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/circulink/internal/model"
	"github.com/iliyamo/circulink/internal/service"
)

// Announcements is implemented by *service.AnnouncementService.
type Announcements interface {
	Create(ctx context.Context, actor service.Actor, in service.CreateAnnouncementInput) (model.Announcement, error)
	ListActive(ctx context.Context, actor service.Actor) ([]model.Announcement, error)
	Dismiss(ctx context.Context, actor service.Actor, id uint64) error
	Deactivate(ctx context.Context, actor service.Actor, id uint64) error
}

type AnnouncementHandler struct {
	Announcements Announcements
}

func NewAnnouncementHandler(a Announcements) *AnnouncementHandler {
	return &AnnouncementHandler{Announcements: a}
}

// List handles GET /v1/announcements: live announcements for the caller's
// audience that the caller has not dismissed.
func (h *AnnouncementHandler) List(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	list, err := h.Announcements.ListActive(ctx, a)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *AnnouncementHandler) Dismiss(c echo.Context) error {
	return h.byID(c, h.Announcements.Dismiss)
}

// Deactivate handles DELETE /v1/admin/announcements/:id.
func (h *AnnouncementHandler) Deactivate(c echo.Context) error {
	return h.byID(c, h.Announcements.Deactivate)
}

func (h *AnnouncementHandler) byID(c echo.Context, op func(context.Context, service.Actor, uint64) error) error {
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

// Create handles POST /v1/admin/announcements.
func (h *AnnouncementHandler) Create(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return nil
	}
	var req service.CreateAnnouncementInput
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	ann, err := h.Announcements.Create(ctx, a, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, ann)
}

package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/circulink/internal/model"
	"github.com/iliyamo/circulink/internal/scheduler"
)

// Availability is implemented by *service.AvailabilityService.
type Availability interface {
	Rooms(ctx context.Context) ([]model.Room, error)
	GetAvailability(ctx context.Context, day string) ([]scheduler.RoomAvailability, error)
}

// RoomHandler serves the room catalog and the per-date availability.
type RoomHandler struct {
	Catalog Availability
}

func NewRoomHandler(a Availability) *RoomHandler { return &RoomHandler{Catalog: a} }

// Rooms handles GET /v1/rooms.
func (h *RoomHandler) Rooms(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	rooms, err := h.Catalog.Rooms(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rooms)
}

// Availability handles GET /v1/availability?date=YYYY-MM-DD.
func (h *RoomHandler) Availability(c echo.Context) error {
	day := c.QueryParam("date")
	if day == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date is required"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	list, err := h.Catalog.GetAvailability(ctx, day)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"date": day, "rooms": list})
}

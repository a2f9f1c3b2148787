package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/circulink/internal/model"
	"github.com/iliyamo/circulink/internal/service"
)

// Reservations is implemented by *service.ReservationService.
type Reservations interface {
	Create(ctx context.Context, actor service.Actor, in service.CreateReservationInput) (model.Reservation, error)
	Approve(ctx context.Context, actor service.Actor, id uint64) (model.Reservation, error)
	Cancel(ctx context.Context, actor service.Actor, id uint64) (model.Reservation, error)
	Get(ctx context.Context, actor service.Actor, id uint64) (model.Reservation, error)
	ListMine(ctx context.Context, actor service.Actor) ([]model.Reservation, error)
	ListByDate(ctx context.Context, actor service.Actor, day string) ([]model.Reservation, error)
}

// ReservationHandler serves /v1/reservations and the staff approval
// endpoints.  Every method requires JWTAuth.
type ReservationHandler struct {
	Reservations Reservations
}

func NewReservationHandler(r Reservations) *ReservationHandler {
	return &ReservationHandler{Reservations: r}
}

// Create handles POST /v1/reservations.  Rule violations come back as 400
// or 409 with the rejection reason code.
func (h *ReservationHandler) Create(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return nil
	}
	var req service.CreateReservationInput
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	res, err := h.Reservations.Create(ctx, a, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// Mine handles GET /v1/reservations/mine: reservations the caller made or
// takes part in.
func (h *ReservationHandler) Mine(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	list, err := h.Reservations.ListMine(ctx, a)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *ReservationHandler) Get(c echo.Context) error {
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
	res, err := h.Reservations.Get(ctx, a, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Cancel handles DELETE /v1/reservations/:id.  The row is kept with
// status Cancelled.
func (h *ReservationHandler) Cancel(c echo.Context) error {
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
	res, err := h.Reservations.Cancel(ctx, a, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// ListByDate handles GET /v1/staff/reservations?date=YYYY-MM-DD.
func (h *ReservationHandler) ListByDate(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	list, err := h.Reservations.ListByDate(ctx, a, c.QueryParam("date"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// Approve handles POST /v1/staff/reservations/:id/approve.
func (h *ReservationHandler) Approve(c echo.Context) error {
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
	res, err := h.Reservations.Approve(ctx, a, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/circulink/internal/model"
	"github.com/iliyamo/circulink/internal/service"
)

// Reports is implemented by *service.ReportService.
type Reports interface {
	AutoAssign(ctx context.Context, floor string) (*uint64, error)
	Create(ctx context.Context, actor service.Actor, in service.CreateReportInput) (model.Report, error)
	UpdateStatus(ctx context.Context, actor service.Actor, id uint64, status string) (model.Report, error)
	Assign(ctx context.Context, actor service.Actor, id uint64, staffID *uint64) (model.Report, error)
	List(ctx context.Context, actor service.Actor, in service.ReportListInput) ([]model.Report, error)
	ListMine(ctx context.Context, actor service.Actor) ([]model.Report, error)
	ListAssigned(ctx context.Context, actor service.Actor) ([]model.Report, error)
}

// ReportHandler serves maintenance reports for reporters, staff and admins.
type ReportHandler struct {
	Reports Reports
}

func NewReportHandler(r Reports) *ReportHandler { return &ReportHandler{Reports: r} }

type statusReq struct {
	Status string `json:"status"`
}

type assignReq struct {
	StaffID *uint64 `json:"staff_id"`
}

// Create handles POST /v1/reports.
func (h *ReportHandler) Create(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return nil
	}
	var req service.CreateReportInput
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	rep, err := h.Reports.Create(ctx, a, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, rep)
}

func (h *ReportHandler) Mine(c echo.Context) error {
	return h.list(c, h.Reports.ListMine)
}

// Assigned handles GET /v1/staff/reports/assigned.
func (h *ReportHandler) Assigned(c echo.Context) error {
	return h.list(c, h.Reports.ListAssigned)
}

func (h *ReportHandler) list(c echo.Context, op func(context.Context, service.Actor) ([]model.Report, error)) error {
	a, ok := actor(c)
	if !ok {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	list, err := op(ctx, a)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// List handles GET /v1/staff/reports?status=&floor=.
func (h *ReportHandler) List(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return nil
	}
	var in service.ReportListInput
	if !bind(c, &in) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	list, err := h.Reports.List(ctx, a, in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// UpdateStatus handles PATCH /v1/staff/reports/:id/status.
func (h *ReportHandler) UpdateStatus(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return nil
	}
	id, ok := pathID(c, "id")
	if !ok {
		return nil
	}
	var req statusReq
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	rep, err := h.Reports.UpdateStatus(ctx, a, id, req.Status)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rep)
}

// Assign handles PATCH /v1/admin/reports/:id/assign.  A null staff_id
// unassigns the report.
func (h *ReportHandler) Assign(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return nil
	}
	id, ok := pathID(c, "id")
	if !ok {
		return nil
	}
	var req assignReq
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	rep, err := h.Reports.Assign(ctx, a, id, req.StaffID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rep)
}

// AutoAssign handles GET /v1/admin/reports/auto-assign?floor= and shows who
// a new report on that floor would go to.
func (h *ReportHandler) AutoAssign(c echo.Context) error {
	floor := c.QueryParam("floor")
	if floor == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "floor is required"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	staffID, err := h.Reports.AutoAssign(ctx, floor)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"floor": floor, "staff_id": staffID, "assigned": staffID != nil})
}

package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/circulink/internal/middleware"
	"github.com/iliyamo/circulink/internal/model"
)

// RegisterStaff mounts /v1/staff for staff and admins.
func RegisterStaff(e *echo.Echo, h Handlers, o Options) {
	g := authed(e, "/v1/staff", o, middleware.RequireRole(model.RoleStaff, model.RoleAdmin))
	g.GET("/reservations", h.Reservations.ListByDate)
	g.POST("/reservations/:id/approve", h.Reservations.Approve)

	g.GET("/reports", h.Reports.List)
	g.GET("/reports/assigned", h.Reports.Assigned)
	g.PATCH("/reports/:id/status", h.Reports.UpdateStatus)
}

// RegisterAdmin mounts /v1/admin.
func RegisterAdmin(e *echo.Echo, h Handlers, o Options) {
	g := authed(e, "/v1/admin", o, middleware.RequireRole(model.RoleAdmin))
	g.POST("/users", h.Admin.CreateUser)
	g.PATCH("/users/:id/suspension", h.Admin.SetSuspension)
	g.GET("/users/:id/activity", h.Admin.UserActivity)
	g.POST("/sweep", h.Admin.Sweep)

	g.POST("/notifications", h.Notifications.Send)

	g.PATCH("/reports/:id/assign", h.Reports.Assign)
	g.GET("/reports/auto-assign", h.Reports.AutoAssign)

	g.POST("/announcements", h.Announcements.Create)
	g.DELETE("/announcements/:id", h.Announcements.Deactivate)
}

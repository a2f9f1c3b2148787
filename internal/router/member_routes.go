package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/circulink/internal/middleware"
)

// RegisterMember mounts the routes every signed-in user may call.  The
// room catalog is public and served from the response cache.
func RegisterMember(e *echo.Echo, h Handlers, o Options) {
	e.GET("/v1/rooms", h.Rooms.Rooms, middleware.NewRedisCache(o.Cache, o.Redis))
	e.GET("/v1/ws", h.WS.Connect, middleware.JWTAuth(o.JWTSecret))

	g := authed(e, "/v1", o)
	g.GET("/availability", h.Rooms.Availability)

	g.POST("/reservations", h.Reservations.Create)
	g.GET("/reservations/mine", h.Reservations.Mine)
	g.GET("/reservations/:id", h.Reservations.Get)
	g.DELETE("/reservations/:id", h.Reservations.Cancel)

	g.GET("/notifications", h.Notifications.List)
	g.POST("/notifications/:id/read", h.Notifications.MarkRead)
	g.POST("/notifications/:id/dismiss", h.Notifications.Dismiss)

	g.POST("/reports", h.Reports.Create)
	g.GET("/reports/mine", h.Reports.Mine)

	g.GET("/announcements", h.Announcements.List)
	g.POST("/announcements/:id/dismiss", h.Announcements.Dismiss)
}

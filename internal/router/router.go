// Package router mounts the handlers on Echo with their middleware.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/circulink/internal/config"
	"github.com/iliyamo/circulink/internal/handler"
	"github.com/iliyamo/circulink/internal/middleware"
)

// Handlers bundles every HTTP handler the API serves.
type Handlers struct {
	Auth          *handler.AuthHandler
	Rooms         *handler.RoomHandler
	Reservations  *handler.ReservationHandler
	Notifications *handler.NotificationHandler
	Reports       *handler.ReportHandler
	Announcements *handler.AnnouncementHandler
	Admin         *handler.AdminHandler
	WS            *handler.WSHandler
}

// Options carries the cross-cutting dependencies of the middleware chain.
// Redis and Audit may be nil.
type Options struct {
	JWTSecret     string
	Redis         *redis.Client
	DB            handler.Pinger
	RateLimit     config.RateLimitConfig
	AuthRateLimit config.RateLimitConfig
	Cache         config.CacheConfig
	Audit         middleware.AuditRecorder
}

// New builds the Echo instance with every route registered.
func New(h Handlers, o Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger())
	e.Use(echomw.BodyLimit("1M"))

	RegisterRoutes(e, o)
	RegisterAuth(e, h.Auth, o)
	RegisterMember(e, h, o)
	RegisterStaff(e, h, o)
	RegisterAdmin(e, h, o)
	return e
}

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, o Options) {
	e.GET("/healthz", handler.Health(o.DB, o.Redis))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth mounts /v1/auth behind the tighter auth rate limit, plus
// /v1/me.  Logout accepts an optional access token so it can revoke every
// session of the caller.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, o Options) {
	g := e.Group("/v1/auth", middleware.NewTokenBucket(o.AuthRateLimit, o.Redis))
	g.POST("/signup", a.Signup)
	g.POST("/verify-otp", a.VerifyOTP)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout, middleware.OptionalJWT(o.JWTSecret))

	e.GET("/v1/me", a.Me, middleware.JWTAuth(o.JWTSecret))
}

// authed is the shared chain of every signed-in route: token check, rate
// limit keyed by caller, then the audit hook.
func authed(e *echo.Echo, prefix string, o Options, extra ...echo.MiddlewareFunc) *echo.Group {
	chain := []echo.MiddlewareFunc{
		middleware.JWTAuth(o.JWTSecret),
		middleware.NewTokenBucket(o.RateLimit, o.Redis),
		middleware.Audit(o.Audit),
	}
	return e.Group(prefix, append(chain, extra...)...)
}

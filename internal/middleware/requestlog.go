package middleware

import (
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/circulink/internal/logging"
    "github.com/iliyamo/circulink/internal/metrics"
)

// RequestLogger tags every request with an X-Request-ID (reusing one sent
// by a proxy), logs it when done and records the request metrics under the
// route pattern.
func RequestLogger() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()
            id := req.Header.Get(echo.HeaderXRequestID)
            if id == "" {
                id = logging.NewRequestID()
            }
            c.Response().Header().Set(echo.HeaderXRequestID, id)
            c.SetRequest(req.WithContext(logging.ContextWithRequestID(req.Context(), id)))

            start := time.Now()
            err := next(c)
            if err != nil {
                c.Error(err)
            }
            elapsed := time.Since(start)
            status := c.Response().Status

            route := c.Path()
            if route == "" {
                route = "unmatched"
            }
            metrics.RecordAPIRequest(req.Method, route, status, elapsed)

            ev := logging.Ctx(c.Request().Context()).Info()
            if status >= 500 {
                ev = logging.Ctx(c.Request().Context()).Error()
            }
            ev.Str("method", req.Method).
                Str("route", route).
                Int("status", status).
                Dur("elapsed", elapsed).
                Str("ip", c.RealIP()).
                Msg("request")
            return nil
        }
    }
}

package middleware

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/circulink/internal/model"
)

// AuditRecorder is implemented by *service.AuditService.
type AuditRecorder interface {
    Record(ctx context.Context, e model.AuditEntry)
}

// Audit records every state-changing request made by an authenticated
// caller once the handler has answered.  Reads are not recorded.
func Audit(rec AuditRecorder) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            err := next(c)
            switch c.Request().Method {
            case http.MethodGet, http.MethodHead, http.MethodOptions:
                return err
            }
            actor, ok := CurrentActor(c)
            if !ok || rec == nil {
                return err
            }
            status := c.Response().Status
            if he, isHTTP := err.(*echo.HTTPError); isHTTP {
                status = he.Code
            }
            rec.Record(context.WithoutCancel(c.Request().Context()), model.AuditEntry{
                ActorID:   actor.ID,
                ActorRole: string(actor.Role),
                Action:    c.Request().Method + " " + c.Path(),
                Target:    c.Request().URL.Path,
                Status:    status,
            })
            return err
        }
    }
}

package middleware

import (
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/circulink/internal/model"
    "github.com/iliyamo/circulink/internal/service"
)

// CurrentActor returns the authenticated caller set by JWTAuth.  ok is
// false for anonymous requests.
func CurrentActor(c echo.Context) (service.Actor, bool) {
    id, ok := c.Get("user_id").(uint64)
    if !ok || id == 0 {
        return service.Actor{}, false
    }
    role, _ := c.Get("role").(string)
    return service.Actor{ID: id, Role: model.Role(role)}, true
}

// userKey identifies the caller in rate limit keys; "anon" when no token
// was presented.
func userKey(c echo.Context) string {
    if a, ok := CurrentActor(c); ok {
        return strconv.FormatUint(a.ID, 10)
    }
    return "anon"
}

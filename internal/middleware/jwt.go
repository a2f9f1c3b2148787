package middleware

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/circulink/internal/utils"
)

// JWTAuth validates a Bearer access token and stores the caller's id
// (uint64) and role (string) in the context under "user_id" and "role".
// WebSocket upgrades may pass the token as ?token= because browsers cannot
// set headers on the handshake.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw := bearer(c)
            if raw == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            claims, err := utils.ParseAccessToken(secret, raw)
            if err != nil || !setIdentity(c, claims) {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            return next(c)
        }
    }
}

// OptionalJWT behaves like JWTAuth when a valid token is present and lets
// the request through anonymously otherwise.
func OptionalJWT(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if raw := bearer(c); raw != "" {
                if claims, err := utils.ParseAccessToken(secret, raw); err == nil {
                    _ = setIdentity(c, claims)
                }
            }
            return next(c)
        }
    }
}

func bearer(c echo.Context) string {
    auth := c.Request().Header.Get("Authorization")
    if strings.HasPrefix(auth, "Bearer ") {
        return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
    }
    if strings.EqualFold(c.Request().Header.Get("Upgrade"), "websocket") {
        return c.QueryParam("token")
    }
    return ""
}

func setIdentity(c echo.Context, claims utils.Claims) bool {
    id, err := claims.UserID()
    if err != nil {
        return false
    }
    c.Set("user_id", id)
    c.Set("role", claims.Role)
    return true
}

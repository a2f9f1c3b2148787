package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/circulink/internal/logging"
	"github.com/iliyamo/circulink/internal/middleware"
	"github.com/iliyamo/circulink/internal/scheduler"
	"github.com/iliyamo/circulink/internal/service"
	"github.com/iliyamo/circulink/internal/validation"
)

const requestTimeout = 5 * time.Second

// fail maps a service error onto the JSON error body and status.  Unknown
// errors are logged and hidden behind a generic 500.
func fail(c echo.Context, err error) error {
	var rej *scheduler.Rejection
	if errors.As(err, &rej) {
		status := http.StatusConflict
		if rej.Kind() == scheduler.KindValidation {
			status = http.StatusBadRequest
		}
		return c.JSON(status, echo.Map{"error": rej.Reason.Message(), "reason": rej.Reason, "detail": rej.Detail})
	}
	var verr *validation.Error
	if errors.As(err, &verr) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": verr.Fields})
	}

	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrInvalidOTP):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrSuspended), errors.Is(err, service.ErrUnverified):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, service.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	case errors.Is(err, service.ErrIDNumberExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "id number already exists"})
	case errors.Is(err, service.ErrInvalidState):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrUnavailable):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		return c.JSON(http.StatusGatewayTimeout, echo.Map{"error": "request timed out"})
	}
	logging.Ctx(c.Request().Context()).Error().Err(err).
		Str("route", c.Path()).Msg("request failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// actor returns the caller or writes a 401.
func actor(c echo.Context) (service.Actor, bool) {
	a, ok := middleware.CurrentActor(c)
	if !ok {
		_ = c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return a, ok
}

// pathID parses :name as a positive id or writes a 400.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func bind(c echo.Context, dst any) bool {
	if err := c.Bind(dst); err != nil {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
		return false
	}
	return true
}

// Package service holds the application use cases.  Services depend on
// small store interfaces so they can be exercised with in-memory fakes;
// the MySQL repositories satisfy them in production.
package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/circulink/internal/repository"
)

var (
	ErrNotFound           = repository.ErrNotFound
	ErrEmailExists        = repository.ErrEmailExists
	ErrIDNumberExists     = repository.ErrIDNumberExists
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidState       = errors.New("invalid state")
	ErrSuspended          = errors.New("account suspended")
	ErrUnverified         = errors.New("account not verified")
	ErrInvalidOTP         = errors.New("invalid or expired verification code")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnavailable        = errors.New("feature unavailable")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/circulink/internal/middleware"
	"github.com/iliyamo/circulink/internal/model"
	"github.com/iliyamo/circulink/internal/service"
)

// Accounts is implemented by *service.AccountService.
type Accounts interface {
	Signup(ctx context.Context, in service.SignupInput) (time.Time, error)
	VerifyOTP(ctx context.Context, in service.VerifyOTPInput) (service.Session, error)
	Login(ctx context.Context, in service.LoginInput) (service.Session, error)
	Refresh(ctx context.Context, raw string) (service.Session, error)
	Logout(ctx context.Context, actor *service.Actor, raw string) error
	Me(ctx context.Context, actor service.Actor) (model.User, error)
	CreateUser(ctx context.Context, actor service.Actor, in service.CreateUserInput) (model.User, error)
	SetSuspended(ctx context.Context, actor service.Actor, id uint64, suspended bool) error
}

// AuthHandler serves /v1/auth and /v1/me.
type AuthHandler struct {
	Accounts Accounts
}

func NewAuthHandler(a Accounts) *AuthHandler { return &AuthHandler{Accounts: a} }

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type authResp struct {
	User    model.User `json:"user"`
	Access  tokenPart  `json:"access"`
	Refresh tokenPart  `json:"refresh"`
}

func sessionResp(s service.Session) authResp {
	return authResp{
		User:    s.User,
		Access:  tokenPart{Token: s.Access.Token, Expires: s.Access.Exp},
		Refresh: tokenPart{Token: s.Refresh.Raw, Expires: s.Refresh.Exp},
	}
}

// Signup handles POST /v1/auth/signup.  Nothing is stored in users until
// the emailed code is verified.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req service.SignupInput
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	exp, err := h.Accounts.Signup(ctx, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusAccepted, echo.Map{"message": "verification code sent", "expires_at": exp})
}

// VerifyOTP handles POST /v1/auth/verify-otp.
func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	var req service.VerifyOTPInput
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	sess, err := h.Accounts.VerifyOTP(ctx, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, sessionResp(sess))
}

// Login handles POST /v1/auth/login.
func (h *AuthHandler) Login(c echo.Context) error {
	var req service.LoginInput
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	sess, err := h.Accounts.Login(ctx, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, sessionResp(sess))
}

// Refresh handles POST /v1/auth/refresh and rotates the refresh token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	sess, err := h.Accounts.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, sessionResp(sess))
}

// Logout handles POST /v1/auth/logout.  With a refresh_token only that
// token is revoked; otherwise every token of the authenticated caller is.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)

	var who *service.Actor
	if a, ok := middleware.CurrentActor(c); ok {
		who = &a
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Accounts.Logout(ctx, who, req.RefreshToken); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me handles GET /v1/me.
func (h *AuthHandler) Me(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	u, err := h.Accounts.Me(ctx, a)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

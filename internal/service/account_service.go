package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/iliyamo/circulink/internal/logging"
	"github.com/iliyamo/circulink/internal/mailer"
	"github.com/iliyamo/circulink/internal/model"
	"github.com/iliyamo/circulink/internal/repository"
	"github.com/iliyamo/circulink/internal/supervisor"
	"github.com/iliyamo/circulink/internal/utils"
	"github.com/iliyamo/circulink/internal/validation"
)

// SignupInput is the body of POST /v1/auth/signup.  Only students and
// faculty sign up themselves; staff and admins are created by an admin.
type SignupInput struct {
	IDNumber   string  `json:"id_number" validate:"required,idnumber"`
	Name       string  `json:"name" validate:"required,max=120"`
	Email      string  `json:"email" validate:"required,email,max=190"`
	Password   string  `json:"password" validate:"required,min=8,max=72"`
	Role       string  `json:"role" validate:"required"`
	Department *string `json:"department" validate:"omitempty,max=120"`
	Course     *string `json:"course" validate:"omitempty,max=120"`
	YearLevel  *string `json:"year_level" validate:"omitempty,max=32"`
}

type VerifyOTPInput struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// CreateUserInput is the body of POST /v1/admin/users.
type CreateUserInput struct {
	IDNumber string  `json:"id_number" validate:"required,idnumber"`
	Name     string  `json:"name" validate:"required,max=120"`
	Email    string  `json:"email" validate:"required,email,max=190"`
	Password string  `json:"password" validate:"required,min=8,max=72"`
	Role     string  `json:"role" validate:"required"`
	Floor    *string `json:"floor" validate:"omitempty,max=32"`
}

// Session is what a successful login, refresh or verification returns.
type Session struct {
	User    model.User
	Access  utils.AccessToken
	Refresh utils.RefreshToken
}

// AccountConfig carries the token and OTP settings.
type AccountConfig struct {
	JWTSecret      string
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	BcryptCost     int
	OTPTTL         time.Duration
	OTPMaxAttempts int
}

// AccountService handles signup, authentication and user administration.
type AccountService struct {
	users   UserStore
	tokens  TokenStore
	pending repository.PendingSignupStore
	mail    mailer.Mailer
	notify  *NotificationService
	cfg     AccountConfig
	now     func() time.Time
}

func NewAccountService(users UserStore, tokens TokenStore, pending repository.PendingSignupStore, mail mailer.Mailer, notify *NotificationService, cfg AccountConfig, now func() time.Time) *AccountService {
	if now == nil {
		now = time.Now
	}
	if cfg.OTPMaxAttempts <= 0 {
		cfg.OTPMaxAttempts = 5
	}
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = 10 * time.Minute
	}
	return &AccountService{users: users, tokens: tokens, pending: pending, mail: mail, notify: notify, cfg: cfg, now: now}
}

// Signup parks a registration until its emailed OTP is confirmed and
// returns when the code expires.  Repeating a signup replaces the pending
// entry and sends a fresh code.
func (s *AccountService) Signup(ctx context.Context, in SignupInput) (time.Time, error) {
	if err := validation.Struct(in); err != nil {
		return time.Time{}, err
	}
	role, ok := model.ParseRole(in.Role)
	if !ok || role.CanManage() {
		return time.Time{}, invalid("role must be Student or Faculty")
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	emailTaken, idTaken, err := s.users.Taken(ctx, email, in.IDNumber)
	if err != nil {
		return time.Time{}, fmt.Errorf("check existing user: %w", err)
	}
	if emailTaken {
		return time.Time{}, ErrEmailExists
	}
	if idTaken {
		return time.Time{}, ErrIDNumberExists
	}

	pwHash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return time.Time{}, fmt.Errorf("hash password: %w", err)
	}
	code, err := utils.NewOTP(6)
	if err != nil {
		return time.Time{}, fmt.Errorf("generate otp: %w", err)
	}
	otpHash, err := utils.HashPassword(code, s.cfg.BcryptCost)
	if err != nil {
		return time.Time{}, fmt.Errorf("hash otp: %w", err)
	}

	p := model.PendingSignup{
		IDNumber:     strings.TrimSpace(in.IDNumber),
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: pwHash,
		Role:         role,
		Department:   in.Department,
		Course:       in.Course,
		YearLevel:    in.YearLevel,
		OTPHash:      otpHash,
		ExpiresAt:    s.now().UTC().Add(s.cfg.OTPTTL),
	}
	if err := s.pending.Put(ctx, p); err != nil {
		return time.Time{}, fmt.Errorf("store pending signup: %w", err)
	}
	if err := s.mail.SendOTP(ctx, email, p.Name, code, s.cfg.OTPTTL); err != nil {
		_ = s.pending.Delete(ctx, email)
		return time.Time{}, fmt.Errorf("send otp: %w", err)
	}
	return p.ExpiresAt, nil
}

// VerifyOTP confirms a pending signup, creates the verified user and
// signs them in.  Each call uses up one attempt; after the last allowed
// attempt the pending signup is dropped.
func (s *AccountService) VerifyOTP(ctx context.Context, in VerifyOTPInput) (Session, error) {
	if err := validation.Struct(in); err != nil {
		return Session{}, err
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	p, err := s.pending.Get(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return Session{}, ErrInvalidOTP
	}
	if err != nil {
		return Session{}, fmt.Errorf("load pending signup: %w", err)
	}
	if !s.now().Before(p.ExpiresAt) {
		_ = s.pending.Delete(ctx, email)
		return Session{}, ErrInvalidOTP
	}
	// Every guess claims an attempt before the code is compared, so
	// concurrent guesses cannot share one.
	n, err := s.pending.IncrAttempts(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return Session{}, ErrInvalidOTP
	}
	if err != nil {
		return Session{}, fmt.Errorf("count otp attempt: %w", err)
	}
	if n > s.cfg.OTPMaxAttempts {
		_ = s.pending.Delete(ctx, email)
		return Session{}, ErrInvalidOTP
	}
	if !utils.VerifyPassword(p.OTPHash, in.Code) {
		if n >= s.cfg.OTPMaxAttempts {
			_ = s.pending.Delete(ctx, email)
		}
		return Session{}, ErrInvalidOTP
	}

	u := model.User{
		IDNumber:     p.IDNumber,
		Name:         p.Name,
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
		Role:         p.Role,
		Department:   p.Department,
		Course:       p.Course,
		YearLevel:    p.YearLevel,
		Verified:     true,
	}
	if err := s.users.Create(ctx, &u); err != nil {
		if errors.Is(err, ErrEmailExists) || errors.Is(err, ErrIDNumberExists) {
			_ = s.pending.Delete(ctx, email)
			return Session{}, err
		}
		return Session{}, fmt.Errorf("create user: %w", err)
	}
	if err := s.pending.Delete(ctx, email); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("email", email).Msg("delete pending signup")
	}
	if err := s.mail.SendWelcome(ctx, u.Email, u.Name); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Uint64("user_id", u.ID).Msg("welcome email failed")
	}
	return s.issue(ctx, u)
}

// Login checks credentials and opens a session.
func (s *AccountService) Login(ctx context.Context, in LoginInput) (Session, error) {
	if err := validation.Struct(in); err != nil {
		return Session{}, err
	}
	u, err := s.users.GetByEmail(ctx, in.Email)
	if errors.Is(err, ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("load user: %w", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, in.Password) {
		return Session{}, ErrInvalidCredentials
	}
	if u.Suspended {
		return Session{}, ErrSuspended
	}
	return s.issue(ctx, u)
}

// Refresh exchanges a refresh token for a new pair.  The old token is
// revoked in the same transaction the new one is stored.
func (s *AccountService) Refresh(ctx context.Context, raw string) (Session, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Session{}, invalid("refresh_token is required")
	}
	oldHash := utils.HashRefreshRaw(raw)
	userID, err := s.tokens.ValidateRefresh(ctx, oldHash)
	if errors.Is(err, ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("validate refresh: %w", err)
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return Session{}, fmt.Errorf("load user: %w", err)
	}
	if u.Suspended {
		_ = s.tokens.RevokeAllForUser(ctx, u.ID)
		return Session{}, ErrSuspended
	}

	access, err := utils.NewAccessToken(s.cfg.JWTSecret, u.ID, string(u.Role), s.cfg.AccessTTL)
	if err != nil {
		return Session{}, fmt.Errorf("issue access token: %w", err)
	}
	next, err := utils.NewRefreshToken(s.cfg.RefreshTTL)
	if err != nil {
		return Session{}, fmt.Errorf("issue refresh token: %w", err)
	}
	if err := s.tokens.Rotate(ctx, u.ID, oldHash, utils.HashRefreshRaw(next.Raw), next.Exp); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("rotate refresh token: %w", err)
	}
	return Session{User: u, Access: access, Refresh: next}, nil
}

// Logout revokes one refresh token, or every token of actor when raw is
// empty.
func (s *AccountService) Logout(ctx context.Context, actor *Actor, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw != "" {
		hash := utils.HashRefreshRaw(raw)
		if _, err := s.tokens.ValidateRefresh(ctx, hash); err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrInvalidCredentials
			}
			return fmt.Errorf("validate refresh: %w", err)
		}
		return s.tokens.RevokeByHash(ctx, hash)
	}
	if actor == nil {
		return invalid("provide an Authorization header or refresh_token")
	}
	return s.tokens.RevokeAllForUser(ctx, actor.ID)
}

// Me returns the actor's profile.
func (s *AccountService) Me(ctx context.Context, actor Actor) (model.User, error) {
	return s.users.GetByID(ctx, actor.ID)
}

// CreateUser lets an admin add staff or admin accounts (or any role).
// Staff must be given a floor.
func (s *AccountService) CreateUser(ctx context.Context, actor Actor, in CreateUserInput) (model.User, error) {
	if actor.Role != model.RoleAdmin {
		return model.User{}, ErrForbidden
	}
	if err := validation.Struct(in); err != nil {
		return model.User{}, err
	}
	role, ok := model.ParseRole(in.Role)
	if !ok {
		return model.User{}, invalid("unknown role %q", in.Role)
	}
	if role == model.RoleStaff && (in.Floor == nil || strings.TrimSpace(*in.Floor) == "") {
		return model.User{}, invalid("staff accounts need a floor")
	}
	pwHash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	u := model.User{
		IDNumber:     in.IDNumber,
		Name:         strings.TrimSpace(in.Name),
		Email:        in.Email,
		PasswordHash: pwHash,
		Role:         role,
		Floor:        in.Floor,
		Verified:     true,
	}
	if err := s.users.Create(ctx, &u); err != nil {
		if errors.Is(err, ErrEmailExists) || errors.Is(err, ErrIDNumberExists) {
			return model.User{}, err
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// SetSuspended suspends or reinstates a user.  Suspending also revokes
// every refresh token so the user is signed out once the access token
// expires.
func (s *AccountService) SetSuspended(ctx context.Context, actor Actor, id uint64, suspended bool) error {
	if actor.Role != model.RoleAdmin {
		return ErrForbidden
	}
	if id == actor.ID {
		return invalid("admins cannot change their own suspension")
	}
	if err := s.users.SetSuspended(ctx, id, suspended); err != nil {
		return err
	}
	msg := "Your account was reinstated"
	if suspended {
		msg = "Your account was suspended"
		if err := s.tokens.RevokeAllForUser(ctx, id); err != nil {
			return fmt.Errorf("revoke tokens: %w", err)
		}
	}
	if s.notify != nil {
		if _, err := s.notify.Dispatch(ctx, NotificationSpec{
			TargetUserID: &id,
			Message:      msg,
			Status:       "Info",
			Type:         model.NotificationAccount,
		}); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Uint64("user_id", id).Msg("account notification failed")
		}
	}
	return nil
}

func (s *AccountService) issue(ctx context.Context, u model.User) (Session, error) {
	access, err := utils.NewAccessToken(s.cfg.JWTSecret, u.ID, string(u.Role), s.cfg.AccessTTL)
	if err != nil {
		return Session{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := utils.NewRefreshToken(s.cfg.RefreshTTL)
	if err != nil {
		return Session{}, fmt.Errorf("issue refresh token: %w", err)
	}
	if err := s.tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return Session{}, fmt.Errorf("store refresh token: %w", err)
	}
	return Session{User: u, Access: access, Refresh: refresh}, nil
}

// ExpiredSignupPurger is implemented by *repository.SQLPendingStore.
type ExpiredSignupPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// SignupPurgeService removes expired pending signups from the MySQL
// fallback store every interval.  Redis expires its keys on its own.
func SignupPurgeService(p ExpiredSignupPurger, interval time.Duration) suture.Service {
	return supervisor.NewPeriodic("signup-purge", interval, func(ctx context.Context) error {
		n, err := p.PurgeExpired(ctx, time.Now())
		if err != nil {
			return err
		}
		if n > 0 {
			logging.Debug().Int64("purged", n).Msg("expired pending signups removed")
		}
		return nil
	})
}

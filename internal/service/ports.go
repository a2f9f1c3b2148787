package service

import (
	"context"
	"time"

	"github.com/iliyamo/circulink/internal/model"
	"github.com/iliyamo/circulink/internal/repository"
	"github.com/iliyamo/circulink/internal/scheduler"
)

// Actor is the authenticated caller of a use case.
type Actor struct {
	ID   uint64
	Role model.Role
}

func (a Actor) CanManage() bool { return a.Role.CanManage() }

// ReservationStore is implemented by *repository.ReservationRepo.
type ReservationStore interface {
	CreateLocked(ctx context.Context, week time.Time, decide repository.DecideFunc) (*model.Reservation, error)
	GetByID(ctx context.Context, id uint64) (model.Reservation, error)
	ListForUser(ctx context.Context, userID uint64, idNumber string) ([]model.Reservation, error)
	ListByDate(ctx context.Context, date time.Time) ([]model.Reservation, error)
	ListActiveByDate(ctx context.Context, date time.Time) ([]model.Reservation, error)
	Transition(ctx context.Context, id uint64, from []model.ReservationStatus, to model.ReservationStatus) (bool, error)
	CancelBeforeStart(ctx context.Context, id uint64, now time.Time) (bool, error)
	CompleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// UserStore is implemented by *repository.UserRepo.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	Taken(ctx context.Context, email, idNumber string) (emailTaken, idTaken bool, err error)
	UnknownIDNumbers(ctx context.Context, ids []string) ([]string, error)
	IDsByIDNumbers(ctx context.Context, ids []string) ([]uint64, error)
	SetSuspended(ctx context.Context, id uint64, suspended bool) error
}

// TokenStore is implemented by *repository.TokenRepo.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	Rotate(ctx context.Context, userID uint64, oldHash, newHash string, exp time.Time) error
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// RoomStore is implemented by *repository.RoomRepo.
type RoomStore interface {
	ListActive(ctx context.Context) ([]model.Room, error)
	GetByName(ctx context.Context, name string) (model.Room, error)
}

// NotificationStore is implemented by *repository.NotificationRepo.
type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) error
	ListForUser(ctx context.Context, userID uint64, role model.Role, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, id, userID uint64, role model.Role) error
	Dismiss(ctx context.Context, id, userID uint64, role model.Role) error
}

// ReportStore is implemented by *repository.ReportRepo.
type ReportStore interface {
	Create(ctx context.Context, rep *model.Report) error
	GetByID(ctx context.Context, id uint64) (model.Report, error)
	List(ctx context.Context, f repository.ReportFilter) ([]model.Report, error)
	UpdateStatus(ctx context.Context, id uint64, to model.ReportStatus) (bool, error)
	Assign(ctx context.Context, id uint64, staffID *uint64) error
	StaffLoads(ctx context.Context, floor string) ([]scheduler.StaffLoad, error)
}

// AnnouncementStore is implemented by *repository.AnnouncementRepo.
type AnnouncementStore interface {
	Create(ctx context.Context, a *model.Announcement) error
	ListLiveFor(ctx context.Context, userID uint64, audience model.Audience, now time.Time) ([]model.Announcement, error)
	Dismiss(ctx context.Context, id, userID uint64) error
	Deactivate(ctx context.Context, id uint64) error
}

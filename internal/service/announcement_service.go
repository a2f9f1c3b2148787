package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/circulink/internal/logging"
	"github.com/iliyamo/circulink/internal/model"
	"github.com/iliyamo/circulink/internal/validation"
)

// CreateAnnouncementInput is the body of POST /v1/admin/announcements.
// StartDate defaults to now; EndDate is optional.
type CreateAnnouncementInput struct {
	Title          string     `json:"title" validate:"required,max=200"`
	Message        string     `json:"message" validate:"required,max=2000"`
	TargetAudience string     `json:"target_audience"`
	StartDate      *time.Time `json:"start_date"`
	EndDate        *time.Time `json:"end_date"`
}

// AnnouncementService manages announcements and their dismissals.
type AnnouncementService struct {
	store  AnnouncementStore
	notify *NotificationService
	now    func() time.Time
}

func NewAnnouncementService(store AnnouncementStore, notify *NotificationService, now func() time.Time) *AnnouncementService {
	if now == nil {
		now = time.Now
	}
	return &AnnouncementService{store: store, notify: notify, now: now}
}

// Create publishes an announcement and notifies its audience.
func (s *AnnouncementService) Create(ctx context.Context, actor Actor, in CreateAnnouncementInput) (model.Announcement, error) {
	if actor.Role != model.RoleAdmin {
		return model.Announcement{}, ErrForbidden
	}
	if err := validation.Struct(in); err != nil {
		return model.Announcement{}, err
	}
	audience, ok := model.ParseAudience(in.TargetAudience)
	if !ok {
		return model.Announcement{}, invalid("unknown target audience %q", in.TargetAudience)
	}
	start := s.now().UTC()
	if in.StartDate != nil {
		start = in.StartDate.UTC()
	}
	if in.EndDate != nil && !in.EndDate.After(start) {
		return model.Announcement{}, invalid("end_date must be after start_date")
	}

	a := model.Announcement{
		Title:          strings.TrimSpace(in.Title),
		Message:        strings.TrimSpace(in.Message),
		TargetAudience: audience,
		StartDate:      start,
		EndDate:        in.EndDate,
		IsActive:       true,
		CreatedBy:      actor.ID,
	}
	if err := s.store.Create(ctx, &a); err != nil {
		return model.Announcement{}, fmt.Errorf("create announcement: %w", err)
	}

	if s.notify != nil {
		target := model.TargetAll
		if audience != model.AudienceAll {
			target = model.TargetRole(audience)
		}
		if _, err := s.notify.Dispatch(ctx, NotificationSpec{
			TargetRole: target,
			Message:    a.Title,
			Status:     "Info",
			Type:       model.NotificationAnnouncement,
		}); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Uint64("announcement_id", a.ID).Msg("announcement notification failed")
		}
	}
	return a, nil
}

// ListActive returns the live announcements the actor has not dismissed.
func (s *AnnouncementService) ListActive(ctx context.Context, actor Actor) ([]model.Announcement, error) {
	audience := model.Audience(strings.ToLower(string(actor.Role)))
	list, err := s.store.ListLiveFor(ctx, actor.ID, audience, s.now())
	if err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}
	return list, nil
}

// Dismiss hides an announcement for the actor.  Repeating it is a no-op.
func (s *AnnouncementService) Dismiss(ctx context.Context, actor Actor, id uint64) error {
	return s.store.Dismiss(ctx, id, actor.ID)
}

// Deactivate hides an announcement for everyone (admin only).
func (s *AnnouncementService) Deactivate(ctx context.Context, actor Actor, id uint64) error {
	if actor.Role != model.RoleAdmin {
		return ErrForbidden
	}
	return s.store.Deactivate(ctx, id)
}

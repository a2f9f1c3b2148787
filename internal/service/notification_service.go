package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/iliyamo/circulink/internal/logging"
	"github.com/iliyamo/circulink/internal/metrics"
	"github.com/iliyamo/circulink/internal/model"
	"github.com/iliyamo/circulink/internal/realtime"
)

// NotificationSpec describes one notification to dispatch.  Exactly one
// of TargetUserID or a role target must be given; an empty TargetRole
// without a user means everyone.
type NotificationSpec struct {
	TargetUserID  *uint64
	TargetRole    model.TargetRole
	Message       string
	Status        string
	Type          model.NotificationType
	ReservationID *uint64
	ReportID      *uint64
	Context       MessageContext
}

// MessageContext fills the default message templates.
type MessageContext struct {
	Room     string
	Date     string
	Start    string
	End      string
	Category string
}

// NotificationService persists notifications and pushes them to the
// matching socket channel.
type NotificationService struct {
	store   NotificationStore
	emitter realtime.Emitter
	log     zerolog.Logger
}

// NewNotificationService wires the dispatcher.  A nil emitter stores
// notifications without pushing them.
func NewNotificationService(store NotificationStore, emitter realtime.Emitter) *NotificationService {
	return &NotificationService{store: store, emitter: emitter, log: logging.WithComponent("notifications")}
}

// Dispatch validates the target, normalizes the status, stores the
// notification and then emits it to exactly one channel.  Emission is
// best effort: a failure is logged and counted, the stored notification
// is still returned.
func (s *NotificationService) Dispatch(ctx context.Context, spec NotificationSpec) (model.Notification, error) {
	ch, role, err := resolveTarget(spec.TargetUserID, spec.TargetRole)
	if err != nil {
		return model.Notification{}, err
	}
	typ := spec.Type
	if typ == "" {
		typ = model.NotificationSystem
	}
	status, known := model.NormalizeStatus(spec.Status)
	if !known && strings.TrimSpace(spec.Status) != "" {
		s.log.Debug().Str("status", spec.Status).Msg("unrecognised notification status, using default")
	}
	msg := strings.TrimSpace(spec.Message)
	if msg == "" {
		msg = DefaultMessage(typ, status, spec.Context)
	}

	n := model.Notification{
		TargetUserID:  spec.TargetUserID,
		TargetRole:    role,
		Message:       msg,
		Status:        status,
		Type:          typ,
		ReservationID: spec.ReservationID,
		ReportID:      spec.ReportID,
	}
	if err := s.store.Create(ctx, &n); err != nil {
		return model.Notification{}, fmt.Errorf("store notification: %w", err)
	}
	metrics.NotificationsStored.WithLabelValues(string(typ)).Inc()

	if s.emitter != nil {
		out := realtime.Message{Type: realtime.TypeNotification, Channel: ch, Data: n}
		if err := s.emitter.Emit(ctx, ch, out); err != nil {
			metrics.NotificationEmitFailures.Inc()
			s.log.Warn().Err(err).Str("channel", string(ch)).Uint64("notification_id", n.ID).Msg("emit failed")
		}
	}
	return n, nil
}

// resolveTarget maps the addressing fields onto a channel and the stored
// target_role value.
func resolveTarget(userID *uint64, role model.TargetRole) (realtime.Channel, model.TargetRole, error) {
	if userID != nil {
		if role != "" && role != model.TargetUser {
			return "", "", invalid("a notification for a user cannot also target role %q", role)
		}
		if *userID == 0 {
			return "", "", invalid("target user id must be positive")
		}
		return realtime.User(*userID), model.TargetUser, nil
	}
	switch role {
	case "", model.TargetAll:
		return realtime.Broadcast, model.TargetAll, nil
	case model.TargetUser:
		return "", "", invalid("target role user requires a target user id")
	case model.TargetStaff, model.TargetAdmin, model.TargetStudent, model.TargetFaculty:
		return realtime.Role(string(role)), role, nil
	}
	return "", "", invalid("unknown target role %q", role)
}

type templateKey struct {
	typ    model.NotificationType
	status string
}

var messageTemplates = map[templateKey]func(MessageContext) string{
	{model.NotificationReservation, "Pending"}: func(c MessageContext) string {
		return fmt.Sprintf("New reservation request for %s on %s, %s-%s", c.Room, c.Date, c.Start, c.End)
	},
	{model.NotificationReservation, "Approved"}: func(c MessageContext) string {
		return fmt.Sprintf("Your reservation for %s on %s, %s-%s was approved", c.Room, c.Date, c.Start, c.End)
	},
	{model.NotificationReservation, "Cancelled"}: func(c MessageContext) string {
		return fmt.Sprintf("The reservation for %s on %s, %s-%s was cancelled", c.Room, c.Date, c.Start, c.End)
	},
	{model.NotificationReservation, "Completed"}: func(c MessageContext) string {
		return fmt.Sprintf("Your session in %s on %s has ended", c.Room, c.Date)
	},
	{model.NotificationReport, "Pending"}: func(c MessageContext) string {
		return fmt.Sprintf("New %s report for %s", orDefault(c.Category, "maintenance"), c.Room)
	},
	{model.NotificationReport, "InProgress"}: func(c MessageContext) string {
		return fmt.Sprintf("Your %s report for %s is being worked on", orDefault(c.Category, "maintenance"), c.Room)
	},
	{model.NotificationReport, "Resolved"}: func(c MessageContext) string {
		return fmt.Sprintf("Your %s report for %s was resolved", orDefault(c.Category, "maintenance"), c.Room)
	},
	{model.NotificationReport, "Archived"}: func(c MessageContext) string {
		return fmt.Sprintf("Your %s report for %s was archived", orDefault(c.Category, "maintenance"), c.Room)
	},
}

// DefaultMessage renders the message used when a dispatch carries none.
func DefaultMessage(typ model.NotificationType, status string, c MessageContext) string {
	if tpl, ok := messageTemplates[templateKey{typ, status}]; ok {
		return tpl(c)
	}
	switch typ {
	case model.NotificationAnnouncement:
		return "New announcement"
	case model.NotificationAccount:
		return "Your account was updated"
	case model.NotificationReservation:
		return fmt.Sprintf("Reservation update: %s", status)
	case model.NotificationReport:
		return fmt.Sprintf("Report update: %s", status)
	}
	return "You have a new notification"
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// List returns the caller's inbox.
func (s *NotificationService) List(ctx context.Context, actor Actor, limit int) ([]model.Notification, error) {
	list, err := s.store.ListForUser(ctx, actor.ID, actor.Role, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return list, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, actor Actor, id uint64) error {
	return s.store.MarkRead(ctx, id, actor.ID, actor.Role)
}

func (s *NotificationService) Dismiss(ctx context.Context, actor Actor, id uint64) error {
	return s.store.Dismiss(ctx, id, actor.ID, actor.Role)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/circulink/internal/logging"
	"github.com/iliyamo/circulink/internal/metrics"
	"github.com/iliyamo/circulink/internal/model"
	"github.com/iliyamo/circulink/internal/scheduler"
	"github.com/iliyamo/circulink/internal/validation"
)

// CreateReservationInput is the request body of POST /v1/reservations.
// Date is a campus calendar date; times are campus wall-clock HH:MM.
type CreateReservationInput struct {
	Room         string   `json:"room" validate:"required,max=64"`
	Date         string   `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime    string   `json:"start_time" validate:"required,datetime=15:04"`
	EndTime      string   `json:"end_time" validate:"required,datetime=15:04"`
	Purpose      string   `json:"purpose" validate:"max=255"`
	Participants []string `json:"participants" validate:"max=20,dive,required,idnumber"`
}

// ReservationService owns the reservation lifecycle.
type ReservationService struct {
	store     ReservationStore
	users     UserStore
	rooms     RoomStore
	notify    *NotificationService
	validator *scheduler.Validator
	now       func() time.Time
	log       zerolog.Logger
}

// NewReservationService wires the service.  The validator's clock is used
// for cancellation cut-offs as well so both agree on "now".
func NewReservationService(store ReservationStore, users UserStore, rooms RoomStore, notify *NotificationService, v *scheduler.Validator, now func() time.Time) *ReservationService {
	if now == nil {
		now = time.Now
	}
	return &ReservationService{
		store:     store,
		users:     users,
		rooms:     rooms,
		notify:    notify,
		validator: v,
		now:       now,
		log:       logging.WithComponent("reservations"),
	}
}

func (s *ReservationService) loc() *time.Location { return s.validator.Policy().Location }

// Create validates a reservation request and stores it as Pending.  The
// rule check and the insert run inside one transaction holding the week's
// lock row, so concurrent requests cannot both pass the conflict checks.
// Rule failures are returned as *scheduler.Rejection.
func (s *ReservationService) Create(ctx context.Context, actor Actor, in CreateReservationInput) (model.Reservation, error) {
	if err := validation.Struct(in); err != nil {
		return model.Reservation{}, err
	}
	requester, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("load requester: %w", err)
	}
	if requester.Suspended {
		return model.Reservation{}, ErrSuspended
	}
	if !requester.Verified {
		return model.Reservation{}, ErrUnverified
	}

	room, err := s.rooms.GetByName(ctx, in.Room)
	if errors.Is(err, ErrNotFound) {
		return model.Reservation{}, invalid("unknown room %q", in.Room)
	}
	if err != nil {
		return model.Reservation{}, fmt.Errorf("load room: %w", err)
	}

	loc := s.loc()
	date, err := scheduler.ParseDate(in.Date, loc)
	if err != nil {
		return model.Reservation{}, invalid("date: %v", err)
	}
	start, err := scheduler.CombineDateClock(date, in.StartTime, loc)
	if err != nil {
		return model.Reservation{}, invalid("start_time: %v", err)
	}
	end, err := scheduler.CombineDateClock(date, in.EndTime, loc)
	if err != nil {
		return model.Reservation{}, invalid("end_time: %v", err)
	}

	participants := make([]string, 0, len(in.Participants))
	for _, p := range in.Participants {
		participants = append(participants, strings.TrimSpace(p))
	}
	unknown, err := s.users.UnknownIDNumbers(ctx, participants)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("check participants: %w", err)
	}
	if len(unknown) > 0 {
		return model.Reservation{}, invalid("unregistered participants: %s", strings.Join(unknown, ", "))
	}

	cand := scheduler.Candidate{
		Room:              room.Name,
		Floor:             room.Floor,
		Date:              date,
		Start:             start,
		End:               end,
		RequesterID:       requester.ID,
		RequesterIDNumber: requester.IDNumber,
		Participants:      participants,
	}
	created, err := s.store.CreateLocked(ctx, scheduler.WeekStart(date, loc), func(existing []model.Reservation) (*model.Reservation, error) {
		ok, err := s.validator.Validate(cand, existing)
		if err != nil {
			return nil, err
		}
		return fromApproved(ok, in.Purpose), nil
	})
	if err != nil {
		var rej *scheduler.Rejection
		if errors.As(err, &rej) {
			metrics.RecordReservation(string(rej.Reason))
			return model.Reservation{}, rej
		}
		metrics.RecordReservation("error")
		return model.Reservation{}, fmt.Errorf("create reservation: %w", err)
	}
	metrics.RecordReservation("created")
	logging.Ctx(ctx).Info().Uint64("reservation_id", created.ID).Str("room", created.Room).
		Time("start", created.StartAt).Msg("reservation created")

	s.dispatch(ctx, NotificationSpec{
		TargetRole:    model.TargetStaff,
		Message:       "New reservation request",
		Status:        string(model.ReservationPending),
		Type:          model.NotificationReservation,
		ReservationID: &created.ID,
		Context:       s.messageContext(*created),
	})
	return *created, nil
}

func fromApproved(ok scheduler.ApprovedCandidate, purpose string) *model.Reservation {
	res := &model.Reservation{
		Room:              ok.Room(),
		Floor:             ok.Floor(),
		Date:              ok.Date(),
		StartAt:           ok.Start().UTC(),
		EndAt:             ok.End().UTC(),
		RequesterID:       ok.RequesterID(),
		RequesterIDNumber: ok.RequesterIDNumber(),
		Purpose:           strings.TrimSpace(purpose),
		Status:            model.ReservationPending,
		Participants:      []model.Participant{},
	}
	for _, p := range ok.Participants() {
		res.Participants = append(res.Participants, model.Participant{IDNumber: p})
	}
	return res
}

// Approve moves a Pending reservation to Approved and tells the requester
// and participants.
func (s *ReservationService) Approve(ctx context.Context, actor Actor, id uint64) (model.Reservation, error) {
	if !actor.CanManage() {
		return model.Reservation{}, ErrForbidden
	}
	res, err := s.store.GetByID(ctx, id)
	if err != nil {
		return model.Reservation{}, err
	}
	ok, err := s.store.Transition(ctx, id, []model.ReservationStatus{model.ReservationPending}, model.ReservationApproved)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("approve reservation: %w", err)
	}
	if !ok {
		return model.Reservation{}, fmt.Errorf("%w: reservation is %s", ErrInvalidState, res.Status)
	}
	res.Status = model.ReservationApproved

	recipients := []uint64{res.RequesterID}
	if ids, err := s.users.IDsByIDNumbers(ctx, res.ParticipantIDs()); err != nil {
		s.log.Warn().Err(err).Uint64("reservation_id", id).Msg("resolve participants for notification")
	} else {
		recipients = appendUnique(recipients, ids...)
	}
	for _, uid := range recipients {
		uid := uid
		s.dispatch(ctx, NotificationSpec{
			TargetUserID:  &uid,
			Status:        string(model.ReservationApproved),
			Type:          model.NotificationReservation,
			ReservationID: &res.ID,
			Context:       s.messageContext(res),
		})
	}
	return res, nil
}

// Cancel cancels an active reservation that has not started.  The
// requester or any staff/admin may cancel.
func (s *ReservationService) Cancel(ctx context.Context, actor Actor, id uint64) (model.Reservation, error) {
	res, err := s.store.GetByID(ctx, id)
	if err != nil {
		return model.Reservation{}, err
	}
	own := res.RequesterID == actor.ID
	if !own && !actor.CanManage() {
		return model.Reservation{}, ErrForbidden
	}
	if !res.Status.Active() {
		return model.Reservation{}, fmt.Errorf("%w: reservation is %s", ErrInvalidState, res.Status)
	}
	ok, err := s.store.CancelBeforeStart(ctx, id, s.now())
	if err != nil {
		return model.Reservation{}, fmt.Errorf("cancel reservation: %w", err)
	}
	if !ok {
		return model.Reservation{}, fmt.Errorf("%w: reservation has already started", ErrInvalidState)
	}
	res.Status = model.ReservationCancelled

	spec := NotificationSpec{
		Status:        string(model.ReservationCancelled),
		Type:          model.NotificationReservation,
		ReservationID: &res.ID,
		Context:       s.messageContext(res),
	}
	if own {
		spec.TargetRole = model.TargetStaff
	} else {
		spec.TargetUserID = &res.RequesterID
	}
	s.dispatch(ctx, spec)
	return res, nil
}

// Get returns a reservation visible to actor: the requester, a listed
// participant, or staff/admin.
func (s *ReservationService) Get(ctx context.Context, actor Actor, id uint64) (model.Reservation, error) {
	res, err := s.store.GetByID(ctx, id)
	if err != nil {
		return model.Reservation{}, err
	}
	if res.RequesterID == actor.ID || actor.CanManage() {
		return res, nil
	}
	u, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("load user: %w", err)
	}
	for _, p := range res.Participants {
		if strings.EqualFold(p.IDNumber, u.IDNumber) {
			return res, nil
		}
	}
	return model.Reservation{}, ErrForbidden
}

// ListMine returns the reservations the actor requested or joins.
func (s *ReservationService) ListMine(ctx context.Context, actor Actor) ([]model.Reservation, error) {
	u, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	list, err := s.store.ListForUser(ctx, u.ID, u.IDNumber)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return list, nil
}

// ListByDate returns every reservation on a date for staff and admins.
func (s *ReservationService) ListByDate(ctx context.Context, actor Actor, day string) ([]model.Reservation, error) {
	if !actor.CanManage() {
		return nil, ErrForbidden
	}
	date, err := scheduler.ParseDate(day, s.loc())
	if err != nil {
		return nil, invalid("date: %v", err)
	}
	list, err := s.store.ListByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return list, nil
}

func (s *ReservationService) messageContext(r model.Reservation) MessageContext {
	loc := s.loc()
	return MessageContext{
		Room:  r.Room,
		Date:  scheduler.DayKey(r.Date, loc),
		Start: scheduler.ToZoned(r.StartAt, loc).Format("15:04"),
		End:   scheduler.ToZoned(r.EndAt, loc).Format("15:04"),
	}
}

// dispatch sends a follow-up notification.  The reservation change has
// already been committed, so failures are only logged.
func (s *ReservationService) dispatch(ctx context.Context, spec NotificationSpec) {
	if s.notify == nil {
		return
	}
	if _, err := s.notify.Dispatch(ctx, spec); err != nil {
		s.log.Warn().Err(err).Msg("reservation notification failed")
	}
}

func appendUnique(dst []uint64, ids ...uint64) []uint64 {
	seen := make(map[uint64]bool, len(dst)+len(ids))
	for _, id := range dst {
		seen[id] = true
	}
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			dst = append(dst, id)
		}
	}
	return dst
}

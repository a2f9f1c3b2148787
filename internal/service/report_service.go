package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/iliyamo/circulink/internal/logging"
	"github.com/iliyamo/circulink/internal/model"
	"github.com/iliyamo/circulink/internal/repository"
	"github.com/iliyamo/circulink/internal/scheduler"
	"github.com/iliyamo/circulink/internal/validation"
)

// CreateReportInput is the body of POST /v1/reports.
type CreateReportInput struct {
	Category string `json:"category" validate:"required,max=64"`
	Details  string `json:"details" validate:"required,max=2000"`
	Floor    string `json:"floor" validate:"required,max=32"`
	Room     string `json:"room" validate:"required,max=64"`
}

// ReportListInput filters the staff report list.
type ReportListInput struct {
	Status string `query:"status"`
	Floor  string `query:"floor"`
}

// ReportService handles maintenance reports and their assignment.
type ReportService struct {
	store  ReportStore
	users  UserStore
	notify *NotificationService
	log    zerolog.Logger
}

func NewReportService(store ReportStore, users UserStore, notify *NotificationService) *ReportService {
	return &ReportService{store: store, users: users, notify: notify, log: logging.WithComponent("reports")}
}

// AutoAssign picks the floor's staff member with the fewest open reports,
// lowest id first on ties.  A floor without staff yields nil.
func (s *ReportService) AutoAssign(ctx context.Context, floor string) (*uint64, error) {
	loads, err := s.store.StaffLoads(ctx, strings.TrimSpace(floor))
	if err != nil {
		return nil, fmt.Errorf("load staff: %w", err)
	}
	id, ok := scheduler.LeastLoaded(loads)
	if !ok {
		return nil, nil
	}
	return &id, nil
}

// Create stores a report, assigns it and notifies the assignee (or all
// staff when nobody could be assigned) and the admins.
func (s *ReportService) Create(ctx context.Context, actor Actor, in CreateReportInput) (model.Report, error) {
	if err := validation.Struct(in); err != nil {
		return model.Report{}, err
	}
	reporter, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return model.Report{}, fmt.Errorf("load reporter: %w", err)
	}
	if reporter.Suspended {
		return model.Report{}, ErrSuspended
	}
	assignee, err := s.AutoAssign(ctx, in.Floor)
	if err != nil {
		return model.Report{}, err
	}

	rep := model.Report{
		ReportedBy: reporter.Name,
		UserID:     reporter.ID,
		Category:   strings.TrimSpace(in.Category),
		Details:    strings.TrimSpace(in.Details),
		Floor:      strings.TrimSpace(in.Floor),
		Room:       strings.TrimSpace(in.Room),
		Status:     model.ReportPending,
		AssignedTo: assignee,
	}
	if err := s.store.Create(ctx, &rep); err != nil {
		return model.Report{}, fmt.Errorf("create report: %w", err)
	}

	spec := NotificationSpec{
		Status:   string(model.ReportPending),
		Type:     model.NotificationReport,
		ReportID: &rep.ID,
		Context:  MessageContext{Room: rep.Room, Category: rep.Category},
	}
	toStaff := spec
	if rep.AssignedTo != nil {
		toStaff.TargetUserID = rep.AssignedTo
	} else {
		toStaff.TargetRole = model.TargetStaff
	}
	s.dispatch(ctx, toStaff)
	toAdmin := spec
	toAdmin.TargetRole = model.TargetAdmin
	s.dispatch(ctx, toAdmin)
	return rep, nil
}

// UpdateStatus moves an open report to a new status.  Repeating the
// current status of an open report is a no-op.  Staff may only touch
// reports on their floor or assigned to them.
func (s *ReportService) UpdateStatus(ctx context.Context, actor Actor, id uint64, raw string) (model.Report, error) {
	if !actor.CanManage() {
		return model.Report{}, ErrForbidden
	}
	to, ok := model.ParseReportStatus(raw)
	if !ok {
		return model.Report{}, invalid("unknown report status %q", raw)
	}
	rep, err := s.store.GetByID(ctx, id)
	if err != nil {
		return model.Report{}, err
	}
	if actor.Role == model.RoleStaff {
		if err := s.checkStaffScope(ctx, actor, rep); err != nil {
			return model.Report{}, err
		}
	}
	if rep.Status == to && to.Open() {
		return rep, nil
	}
	changed, err := s.store.UpdateStatus(ctx, id, to)
	if err != nil {
		return model.Report{}, fmt.Errorf("update report: %w", err)
	}
	if !changed {
		return model.Report{}, fmt.Errorf("%w: report is %s", ErrInvalidState, rep.Status)
	}
	rep.Status = to

	s.dispatch(ctx, NotificationSpec{
		TargetUserID: &rep.UserID,
		Status:       string(to),
		Type:         model.NotificationReport,
		ReportID:     &rep.ID,
		Context:      MessageContext{Room: rep.Room, Category: rep.Category},
	})
	return rep, nil
}

func (s *ReportService) checkStaffScope(ctx context.Context, actor Actor, rep model.Report) error {
	if rep.AssignedTo != nil && *rep.AssignedTo == actor.ID {
		return nil
	}
	staff, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return fmt.Errorf("load staff: %w", err)
	}
	if staff.Floor != nil && strings.EqualFold(*staff.Floor, rep.Floor) {
		return nil
	}
	return ErrForbidden
}

// Assign sets the assignee of a report (admin only).  A nil staffID
// clears it.
func (s *ReportService) Assign(ctx context.Context, actor Actor, id uint64, staffID *uint64) (model.Report, error) {
	if actor.Role != model.RoleAdmin {
		return model.Report{}, ErrForbidden
	}
	if staffID != nil {
		u, err := s.users.GetByID(ctx, *staffID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return model.Report{}, invalid("unknown staff member %d", *staffID)
			}
			return model.Report{}, fmt.Errorf("load staff: %w", err)
		}
		if u.Role != model.RoleStaff || u.Suspended {
			return model.Report{}, invalid("user %d is not active staff", *staffID)
		}
	}
	if err := s.store.Assign(ctx, id, staffID); err != nil {
		return model.Report{}, err
	}
	rep, err := s.store.GetByID(ctx, id)
	if err != nil {
		return model.Report{}, err
	}
	if staffID != nil {
		s.dispatch(ctx, NotificationSpec{
			TargetUserID: staffID,
			Message:      fmt.Sprintf("You were assigned the %s report for %s", rep.Category, rep.Room),
			Status:       string(rep.Status),
			Type:         model.NotificationReport,
			ReportID:     &rep.ID,
		})
	}
	return rep, nil
}

// List returns reports for staff and admins.
func (s *ReportService) List(ctx context.Context, actor Actor, in ReportListInput) ([]model.Report, error) {
	if !actor.CanManage() {
		return nil, ErrForbidden
	}
	f := repository.ReportFilter{Floor: strings.TrimSpace(in.Floor)}
	if strings.TrimSpace(in.Status) != "" {
		st, ok := model.ParseReportStatus(in.Status)
		if !ok {
			return nil, invalid("unknown report status %q", in.Status)
		}
		f.Status = st
	}
	return s.list(ctx, f)
}

// ListMine returns the reports the actor filed.
func (s *ReportService) ListMine(ctx context.Context, actor Actor) ([]model.Report, error) {
	id := actor.ID
	return s.list(ctx, repository.ReportFilter{UserID: &id})
}

// ListAssigned returns the reports assigned to the actor.
func (s *ReportService) ListAssigned(ctx context.Context, actor Actor) ([]model.Report, error) {
	if !actor.CanManage() {
		return nil, ErrForbidden
	}
	id := actor.ID
	return s.list(ctx, repository.ReportFilter{AssignedTo: &id})
}

func (s *ReportService) list(ctx context.Context, f repository.ReportFilter) ([]model.Report, error) {
	list, err := s.store.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return list, nil
}

func (s *ReportService) dispatch(ctx context.Context, spec NotificationSpec) {
	if s.notify == nil {
		return
	}
	if _, err := s.notify.Dispatch(ctx, spec); err != nil {
		s.log.Warn().Err(err).Msg("report notification failed")
	}
}

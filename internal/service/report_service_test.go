package service

import (
	"context"
	"errors"
	"testing"

	"github.com/iliyamo/circulink/internal/model"
	"github.com/iliyamo/circulink/internal/realtime"
)

func newReportFixture() (*ReportService, *fakeReports, *recordingEmitter) {
	staff := []model.User{
		{ID: 10, Role: model.RoleStaff, Floor: strPtr("2nd Floor")},
		{ID: 11, Role: model.RoleStaff, Floor: strPtr("2nd Floor")},
		{ID: 12, Role: model.RoleStaff, Floor: strPtr("3rd Floor")},
	}
	users := newFakeUsers(append(staff,
		model.User{ID: 1, Name: "Ana", Role: model.RoleStudent, Verified: true},
		model.User{ID: 99, Name: "Root", Role: model.RoleAdmin, Verified: true},
	)...)
	ten := uint64(10)
	reports := &fakeReports{
		staff: staff,
		rows: []model.Report{
			{ID: 1, UserID: 1, Floor: "2nd Floor", Room: "Collab-A", Category: "Aircon", Status: model.ReportPending, AssignedTo: &ten},
			{ID: 2, UserID: 1, Floor: "2nd Floor", Room: "Collab-B", Category: "Lights", Status: model.ReportInProgress, AssignedTo: &ten},
		},
	}
	emitter := &recordingEmitter{}
	return NewReportService(reports, users, NewNotificationService(&fakeNotifications{}, emitter)), reports, emitter
}

func TestAutoAssignPicksIdleStaff(t *testing.T) {
	svc, _, _ := newReportFixture()
	id, err := svc.AutoAssign(context.Background(), "2nd Floor")
	if err != nil {
		t.Fatal(err)
	}
	if id == nil || *id != 11 {
		t.Fatalf("expected staff 11 (0 open reports), got %v", id)
	}
	none, err := svc.AutoAssign(context.Background(), "Basement")
	if err != nil || none != nil {
		t.Fatalf("floor without staff should be unassigned, got %v, %v", none, err)
	}
}

func TestCreateReportNotifiesAssigneeAndAdmins(t *testing.T) {
	svc, _, emitter := newReportFixture()
	rep, err := svc.Create(context.Background(), Actor{ID: 1, Role: model.RoleStudent}, CreateReportInput{
		Category: "Aircon", Details: "Not cooling", Floor: "2nd Floor", Room: "Collab-A",
	})
	if err != nil {
		t.Fatal(err)
	}
	if rep.AssignedTo == nil || *rep.AssignedTo != 11 || rep.ReportedBy != "Ana" {
		t.Fatalf("unexpected report %+v", rep)
	}
	sent := emitter.sent()
	if len(sent) != 2 || sent[0] != realtime.User(11) || sent[1] != realtime.Role("admin") {
		t.Fatalf("unexpected channels %v", sent)
	}
}

func TestCreateReportWithoutStaffGoesToRole(t *testing.T) {
	svc, _, emitter := newReportFixture()
	rep, err := svc.Create(context.Background(), Actor{ID: 1, Role: model.RoleStudent}, CreateReportInput{
		Category: "Lights", Details: "Flicker", Floor: "Basement", Room: "Vault",
	})
	if err != nil {
		t.Fatal(err)
	}
	if rep.AssignedTo != nil {
		t.Fatal("expected an unassigned report")
	}
	if sent := emitter.sent(); sent[0] != realtime.Role("staff") {
		t.Fatalf("expected role:staff, got %v", sent)
	}
}

func TestUpdateReportStatus(t *testing.T) {
	svc, _, emitter := newReportFixture()
	ctx := context.Background()
	staff := Actor{ID: 10, Role: model.RoleStaff}

	if _, err := svc.UpdateStatus(ctx, Actor{ID: 1, Role: model.RoleStudent}, 1, "resolved"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("student: got %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, staff, 1, "exploded"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bad status: got %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, Actor{ID: 12, Role: model.RoleStaff}, 1, "resolved"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("other floor: got %v", err)
	}
	same, err := svc.UpdateStatus(ctx, staff, 1, "pending")
	if err != nil {
		t.Fatalf("repeating the current status: %v", err)
	}
	if same.Status != model.ReportPending || len(emitter.sent()) != 0 {
		t.Fatalf("unchanged status must not notify: %s %v", same.Status, emitter.sent())
	}
	rep, err := svc.UpdateStatus(ctx, staff, 1, "Fixed")
	if err != nil {
		t.Fatal(err)
	}
	if rep.Status != model.ReportResolved {
		t.Fatalf("status = %s", rep.Status)
	}
	if sent := emitter.sent(); len(sent) != 1 || sent[0] != realtime.User(rep.UserID) {
		t.Fatalf("reporter not notified: %v", sent)
	}
	if _, err := svc.UpdateStatus(ctx, staff, 1, "in progress"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("resolved is terminal, got %v", err)
	}
}

func TestAssignReport(t *testing.T) {
	svc, _, _ := newReportFixture()
	ctx := context.Background()
	admin := Actor{ID: 99, Role: model.RoleAdmin}
	twelve := uint64(12)
	student := uint64(1)

	if _, err := svc.Assign(ctx, Actor{ID: 10, Role: model.RoleStaff}, 1, &twelve); !errors.Is(err, ErrForbidden) {
		t.Fatalf("staff cannot reassign, got %v", err)
	}
	if _, err := svc.Assign(ctx, admin, 1, &student); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("non-staff assignee: got %v", err)
	}
	rep, err := svc.Assign(ctx, admin, 1, &twelve)
	if err != nil {
		t.Fatal(err)
	}
	if rep.AssignedTo == nil || *rep.AssignedTo != 12 {
		t.Fatalf("assignee = %v", rep.AssignedTo)
	}
	mine, err := svc.ListAssigned(ctx, Actor{ID: 12, Role: model.RoleStaff})
	if err != nil || len(mine) != 1 {
		t.Fatalf("ListAssigned = %v, %v", mine, err)
	}
}

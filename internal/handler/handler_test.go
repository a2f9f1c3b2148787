package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/circulink/internal/logging"
	"github.com/iliyamo/circulink/internal/model"
	"github.com/iliyamo/circulink/internal/scheduler"
	"github.com/iliyamo/circulink/internal/service"
	"github.com/iliyamo/circulink/internal/utils"
	"github.com/iliyamo/circulink/internal/validation"
)

func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

// as stands in for JWTAuth.
func as(id uint64, role model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user_id", id)
			c.Set("role", string(role))
			return next(c)
		}
	}
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return m
}

type stubReservations struct {
	createErr error
	gotActor  service.Actor
	gotInput  service.CreateReservationInput
}

func (s *stubReservations) Create(_ context.Context, a service.Actor, in service.CreateReservationInput) (model.Reservation, error) {
	s.gotActor, s.gotInput = a, in
	if s.createErr != nil {
		return model.Reservation{}, s.createErr
	}
	return model.Reservation{ID: 1, Room: in.Room, Status: model.ReservationPending, RequesterID: a.ID}, nil
}

func (s *stubReservations) Approve(_ context.Context, a service.Actor, id uint64) (model.Reservation, error) {
	if !a.CanManage() {
		return model.Reservation{}, service.ErrForbidden
	}
	return model.Reservation{ID: id, Status: model.ReservationApproved}, nil
}

func (s *stubReservations) Cancel(_ context.Context, _ service.Actor, id uint64) (model.Reservation, error) {
	if id == 404 {
		return model.Reservation{}, service.ErrNotFound
	}
	return model.Reservation{}, service.ErrInvalidState
}

func (s *stubReservations) Get(_ context.Context, _ service.Actor, id uint64) (model.Reservation, error) {
	return model.Reservation{ID: id}, nil
}

func (s *stubReservations) ListMine(context.Context, service.Actor) ([]model.Reservation, error) {
	return []model.Reservation{}, nil
}

func (s *stubReservations) ListByDate(context.Context, service.Actor, string) ([]model.Reservation, error) {
	return nil, errors.New("db exploded")
}

func reservationServer(s *stubReservations, role model.Role) *echo.Echo {
	e := echo.New()
	h := NewReservationHandler(s)
	g := e.Group("/v1", as(7, role))
	g.POST("/reservations", h.Create)
	g.GET("/reservations/:id", h.Get)
	g.DELETE("/reservations/:id", h.Cancel)
	g.GET("/staff/reservations", h.ListByDate)
	g.POST("/staff/reservations/:id/approve", h.Approve)
	return e
}

func TestCreateReservationStatuses(t *testing.T) {
	body := `{"room":"Collab-A","date":"2025-06-03","start_time":"09:00","end_time":"10:00","participants":["2021-0002"]}`
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantReason string
	}{
		{"created", nil, http.StatusCreated, ""},
		{"room conflict", &scheduler.Rejection{Reason: scheduler.ReasonRoomConflict}, http.StatusConflict, "RoomConflict"},
		{"weekly limit", &scheduler.Rejection{Reason: scheduler.ReasonWeeklyLimitExceeded}, http.StatusConflict, "WeeklyLimitExceeded"},
		{"bad duration", &scheduler.Rejection{Reason: scheduler.ReasonInvalidDuration}, http.StatusBadRequest, "InvalidDuration"},
		{"suspended", service.ErrSuspended, http.StatusForbidden, ""},
		{"field errors", &validation.Error{Fields: []validation.FieldError{{Field: "date", Tag: "datetime"}}}, http.StatusBadRequest, ""},
		{"unknown participant", errors.Join(service.ErrInvalidInput, errors.New("unknown participant")), http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &stubReservations{createErr: tt.err}
			rec := do(reservationServer(s, model.RoleStudent), http.MethodPost, "/v1/reservations", body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantReason != "" {
				if got := decode(t, rec)["reason"]; got != tt.wantReason {
					t.Fatalf("reason = %v, want %s", got, tt.wantReason)
				}
			}
			if s.gotActor.ID != 7 || s.gotInput.Room != "Collab-A" || len(s.gotInput.Participants) != 1 {
				t.Fatalf("service got %+v %+v", s.gotActor, s.gotInput)
			}
		})
	}
}

func TestReservationPathsAndErrors(t *testing.T) {
	e := reservationServer(&stubReservations{}, model.RoleStudent)
	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/v1/reservations/abc", http.StatusBadRequest},
		{http.MethodGet, "/v1/reservations/0", http.StatusBadRequest},
		{http.MethodGet, "/v1/reservations/3", http.StatusOK},
		{http.MethodDelete, "/v1/reservations/404", http.StatusNotFound},
		{http.MethodDelete, "/v1/reservations/5", http.StatusConflict},
		{http.MethodPost, "/v1/staff/reservations/5/approve", http.StatusForbidden},
		{http.MethodGet, "/v1/staff/reservations?date=2025-06-03", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if rec := do(e, tt.method, tt.path, ""); rec.Code != tt.want {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.path, rec.Code, tt.want)
		}
	}
	rec := do(e, http.MethodGet, "/v1/staff/reservations?date=2025-06-03", "")
	if msg := decode(t, rec)["error"]; msg != "internal error" {
		t.Fatalf("internal errors must not leak, got %v", msg)
	}
}

func TestUnauthenticatedIs401(t *testing.T) {
	e := echo.New()
	h := NewReservationHandler(&stubReservations{})
	e.GET("/v1/reservations/mine", h.Mine)
	if rec := do(e, http.MethodGet, "/v1/reservations/mine", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

type stubAvailability struct{}

func (stubAvailability) Rooms(context.Context) ([]model.Room, error) {
	return []model.Room{{ID: 1, Name: "Collab-A", Floor: "2nd Floor"}}, nil
}

func (stubAvailability) GetAvailability(_ context.Context, day string) ([]scheduler.RoomAvailability, error) {
	if day == "bad" {
		return nil, errors.Join(service.ErrInvalidInput, errors.New("date must be YYYY-MM-DD"))
	}
	return []scheduler.RoomAvailability{{Room: "Collab-A", Floor: "2nd Floor", Occupied: []scheduler.Range{}}}, nil
}

func TestAvailability(t *testing.T) {
	e := echo.New()
	h := NewRoomHandler(stubAvailability{})
	e.GET("/v1/availability", h.Availability)

	if rec := do(e, http.MethodGet, "/v1/availability", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing date: %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/v1/availability?date=bad", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date: %d", rec.Code)
	}
	rec := do(e, http.MethodGet, "/v1/availability?date=2025-06-03", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"occupied":[]`) {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
}

type stubNotifications struct {
	spec service.NotificationSpec
}

func (s *stubNotifications) Dispatch(_ context.Context, spec service.NotificationSpec) (model.Notification, error) {
	s.spec = spec
	return model.Notification{ID: 1, TargetRole: spec.TargetRole, Message: spec.Message}, nil
}

func (s *stubNotifications) List(context.Context, service.Actor, int) ([]model.Notification, error) {
	return []model.Notification{}, nil
}

func (s *stubNotifications) MarkRead(context.Context, service.Actor, uint64) error { return nil }

func (s *stubNotifications) Dismiss(context.Context, service.Actor, uint64) error {
	return service.ErrNotFound
}

func TestAdminSendNotification(t *testing.T) {
	s := &stubNotifications{}
	e := echo.New()
	h := NewNotificationHandler(s)
	g := e.Group("/v1", as(1, model.RoleAdmin))
	g.POST("/admin/notifications", h.Send)
	g.GET("/notifications", h.List)
	g.POST("/notifications/:id/read", h.MarkRead)
	g.POST("/notifications/:id/dismiss", h.Dismiss)

	if rec := do(e, http.MethodPost, "/v1/admin/notifications", `{"target_role":"janitors","message":"hi"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown role: %d", rec.Code)
	}
	rec := do(e, http.MethodPost, "/v1/admin/notifications", `{"target_user_id":5,"message":"hi"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("send: %d %s", rec.Code, rec.Body.String())
	}
	if s.spec.TargetRole != model.TargetUser || s.spec.TargetUserID == nil || *s.spec.TargetUserID != 5 || s.spec.Type != model.NotificationSystem {
		t.Fatalf("dispatched %+v", s.spec)
	}
	if rec := do(e, http.MethodGet, "/v1/notifications?limit=0", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("limit 0: %d", rec.Code)
	}
	if rec := do(e, http.MethodPost, "/v1/notifications/3/read", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("read: %d", rec.Code)
	}
	if rec := do(e, http.MethodPost, "/v1/notifications/3/dismiss", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("dismiss: %d", rec.Code)
	}
}

type stubAccounts struct {
	Accounts
	suspended map[uint64]bool
}

func (s *stubAccounts) Login(_ context.Context, in service.LoginInput) (service.Session, error) {
	if in.Password != "secret123" {
		return service.Session{}, service.ErrInvalidCredentials
	}
	return service.Session{
		User:   model.User{ID: 3, Email: in.Email, Role: model.RoleStudent, PasswordHash: "hash"},
		Access: utils.AccessToken{Token: "access"},
	}, nil
}

func (s *stubAccounts) Signup(context.Context, service.SignupInput) (time.Time, error) {
	return time.Time{}, service.ErrEmailExists
}

func (s *stubAccounts) SetSuspended(_ context.Context, a service.Actor, id uint64, v bool) error {
	if a.ID == id {
		return errors.Join(service.ErrInvalidInput, errors.New("self"))
	}
	s.suspended[id] = v
	return nil
}

func TestAuthAndAdminUsers(t *testing.T) {
	s := &stubAccounts{suspended: map[uint64]bool{}}
	e := echo.New()
	auth := NewAuthHandler(s)
	e.POST("/v1/auth/login", auth.Login)
	e.POST("/v1/auth/signup", auth.Signup)
	admin := NewAdminHandler(s, nil, nil)
	e.PATCH("/v1/admin/users/:id/suspension", admin.SetSuspension, as(1, model.RoleAdmin))

	if rec := do(e, http.MethodPost, "/v1/auth/login", `{"email":"a@uni.edu","password":"nope"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: %d", rec.Code)
	}
	rec := do(e, http.MethodPost, "/v1/auth/login", `{"email":"a@uni.edu","password":"secret123"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "hash") {
		t.Fatal("password hash leaked into the response")
	}
	if rec := do(e, http.MethodPost, "/v1/auth/signup", `{"email":"a@uni.edu"}`); rec.Code != http.StatusConflict {
		t.Fatalf("signup: %d", rec.Code)
	}

	if rec := do(e, http.MethodPatch, "/v1/admin/users/5/suspension", `{}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing flag: %d", rec.Code)
	}
	if rec := do(e, http.MethodPatch, "/v1/admin/users/1/suspension", `{"suspended":true}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("self suspension: %d", rec.Code)
	}
	if rec := do(e, http.MethodPatch, "/v1/admin/users/5/suspension", `{"suspended":true}`); rec.Code != http.StatusOK || !s.suspended[5] {
		t.Fatalf("suspend: %d", rec.Code)
	}
}

type stubReports struct {
	Reports
	next *uint64
}

func (s stubReports) AutoAssign(context.Context, string) (*uint64, error) { return s.next, nil }

func TestAutoAssignEndpoint(t *testing.T) {
	eleven := uint64(11)
	for _, tt := range []struct {
		next *uint64
		want string
	}{
		{&eleven, `"staff_id":11`},
		{nil, `"staff_id":null`},
	} {
		e := echo.New()
		e.GET("/v1/admin/reports/auto-assign", NewReportHandler(stubReports{next: tt.next}).AutoAssign)
		rec := do(e, http.MethodGet, "/v1/admin/reports/auto-assign?floor=2nd%20Floor", "")
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), tt.want) {
			t.Fatalf("got %d %s", rec.Code, rec.Body.String())
		}
	}
}

type stubActivity struct{}

func (stubActivity) ListActivity(context.Context, service.Actor, uint64, int64) ([]model.AuditEntry, error) {
	return nil, service.ErrUnavailable
}

type stubSweeper struct{ n int64 }

func (s stubSweeper) SweepExpired(context.Context) (service.SweepResult, error) {
	return service.SweepResult{CompletedCount: s.n}, nil
}

func TestSweepAndActivity(t *testing.T) {
	e := echo.New()
	h := NewAdminHandler(nil, stubSweeper{n: 3}, stubActivity{})
	e.POST("/v1/admin/sweep", h.Sweep)
	e.GET("/v1/admin/users/:id/activity", h.UserActivity, as(1, model.RoleAdmin))

	rec := do(e, http.MethodPost, "/v1/admin/sweep", "")
	if rec.Code != http.StatusOK || decode(t, rec)["completed_count"] != float64(3) {
		t.Fatalf("sweep: %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(e, http.MethodGet, "/v1/admin/users/4/activity", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("activity without mongo: %d", rec.Code)
	}
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	e := echo.New()
	e.GET("/ok", Health(pinger{}, nil))
	e.GET("/down", Health(pinger{err: errors.New("refused")}, nil))
	rec := do(e, http.MethodGet, "/ok", "")
	if rec.Code != http.StatusOK || decode(t, rec)["redis"] != "disabled" {
		t.Fatalf("ok: %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(e, http.MethodGet, "/down", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("down: %d", rec.Code)
	}
}

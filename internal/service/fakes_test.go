package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/circulink/internal/model"
	"github.com/iliyamo/circulink/internal/realtime"
	"github.com/iliyamo/circulink/internal/repository"
	"github.com/iliyamo/circulink/internal/scheduler"
)

var pht = time.FixedZone("PHT", 8*60*60)

func clock(day, hm string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", day+" "+hm, pht)
	if err != nil {
		panic(err)
	}
	return t
}

func fixed(t time.Time) func() time.Time { return func() time.Time { return t } }

// ---- reservations ----

type fakeReservations struct {
	mu     sync.Mutex
	rows   []model.Reservation
	writes int
}

func (f *fakeReservations) CreateLocked(_ context.Context, week time.Time, decide repository.DecideFunc) (*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var snapshot []model.Reservation
	end := week.AddDate(0, 0, 7)
	for _, r := range f.rows {
		if r.Status != model.ReservationCancelled && !r.Date.Before(week) && r.Date.Before(end) {
			snapshot = append(snapshot, r)
		}
	}
	res, err := decide(snapshot)
	if err != nil {
		return nil, err
	}
	res.ID = uint64(len(f.rows) + 1)
	f.rows = append(f.rows, *res)
	f.writes++
	return res, nil
}

func (f *fakeReservations) GetByID(_ context.Context, id uint64) (model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.ID == id {
			return r, nil
		}
	}
	return model.Reservation{}, repository.ErrNotFound
}

func (f *fakeReservations) ListForUser(_ context.Context, userID uint64, idNumber string) ([]model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Reservation{}
	for _, r := range f.rows {
		mine := r.RequesterID == userID
		for _, p := range r.Participants {
			if strings.EqualFold(p.IDNumber, idNumber) {
				mine = true
			}
		}
		if mine {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReservations) ListByDate(_ context.Context, date time.Time) ([]model.Reservation, error) {
	return f.byDate(date, false), nil
}

func (f *fakeReservations) ListActiveByDate(_ context.Context, date time.Time) ([]model.Reservation, error) {
	return f.byDate(date, true), nil
}

func (f *fakeReservations) byDate(date time.Time, activeOnly bool) []model.Reservation {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Reservation{}
	for _, r := range f.rows {
		if scheduler.SameDay(r.Date, date, pht) && (!activeOnly || r.Status.Active()) {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeReservations) Transition(_ context.Context, id uint64, from []model.ReservationStatus, to model.ReservationStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID != id {
			continue
		}
		for _, s := range from {
			if f.rows[i].Status == s {
				f.rows[i].Status = to
				f.writes++
				return true, nil
			}
		}
	}
	return false, nil
}

func (f *fakeReservations) CancelBeforeStart(_ context.Context, id uint64, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		r := &f.rows[i]
		if r.ID == id && r.Status.Active() && r.StartAt.After(now) {
			r.Status = model.ReservationCancelled
			f.writes++
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeReservations) CompleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for i := range f.rows {
		r := &f.rows[i]
		if r.Status.Active() && !r.EndAt.After(now) {
			r.Status = model.ReservationCompleted
			n++
		}
	}
	if n > 0 {
		f.writes++
	}
	return n, nil
}

// ---- users ----

type fakeUsers struct {
	mu    sync.Mutex
	byID  map[uint64]model.User
	fresh uint64
}

func newFakeUsers(users ...model.User) *fakeUsers {
	f := &fakeUsers{byID: map[uint64]model.User{}, fresh: 100}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, e := range f.byID {
		if e.Email == u.Email {
			return repository.ErrEmailExists
		}
		if strings.EqualFold(e.IDNumber, u.IDNumber) {
			return repository.ErrIDNumberExists
		}
	}
	f.fresh++
	u.ID = f.fresh
	f.byID[u.ID] = *u
	return nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == strings.ToLower(strings.TrimSpace(email)) {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) Taken(_ context.Context, email, idNumber string) (bool, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var e, i bool
	for _, u := range f.byID {
		e = e || u.Email == strings.ToLower(email)
		i = i || strings.EqualFold(u.IDNumber, idNumber)
	}
	return e, i, nil
}

func (f *fakeUsers) UnknownIDNumbers(_ context.Context, ids []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var missing []string
	for _, id := range ids {
		found := false
		for _, u := range f.byID {
			if strings.EqualFold(u.IDNumber, strings.TrimSpace(id)) {
				found = true
			}
		}
		if !found {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (f *fakeUsers) IDsByIDNumbers(_ context.Context, ids []string) ([]uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []uint64
	for _, u := range f.byID {
		for _, id := range ids {
			if strings.EqualFold(u.IDNumber, id) {
				out = append(out, u.ID)
			}
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out, nil
}

func (f *fakeUsers) SetSuspended(_ context.Context, id uint64, suspended bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Suspended = suspended
	f.byID[id] = u
	return nil
}

// ---- tokens ----

type tokenRow struct {
	userID  uint64
	exp     time.Time
	revoked bool
}

type fakeTokens struct {
	mu   sync.Mutex
	rows map[string]*tokenRow
}

func newFakeTokens() *fakeTokens { return &fakeTokens{rows: map[string]*tokenRow{}} }

func (f *fakeTokens) StoreRefresh(_ context.Context, userID uint64, hash string, exp time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[hash] = &tokenRow{userID: userID, exp: exp}
	return nil
}

func (f *fakeTokens) ValidateRefresh(_ context.Context, hash string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[hash]
	if !ok || r.revoked || !r.exp.After(time.Now()) {
		return 0, repository.ErrNotFound
	}
	return r.userID, nil
}

func (f *fakeTokens) Rotate(_ context.Context, userID uint64, oldHash, newHash string, exp time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[oldHash]
	if !ok || r.revoked || r.userID != userID {
		return repository.ErrNotFound
	}
	r.revoked = true
	f.rows[newHash] = &tokenRow{userID: userID, exp: exp}
	return nil
}

func (f *fakeTokens) RevokeByHash(_ context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.rows[hash]; ok {
		r.revoked = true
	}
	return nil
}

func (f *fakeTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.userID == userID {
			r.revoked = true
		}
	}
	return nil
}

// ---- rooms ----

type fakeRooms struct{ rooms []model.Room }

func (f fakeRooms) ListActive(context.Context) ([]model.Room, error) {
	return append([]model.Room(nil), f.rooms...), nil
}

func (f fakeRooms) GetByName(_ context.Context, name string) (model.Room, error) {
	for _, r := range f.rooms {
		if strings.EqualFold(r.Name, strings.TrimSpace(name)) {
			return r, nil
		}
	}
	return model.Room{}, repository.ErrNotFound
}

// ---- notifications ----

type fakeNotifications struct {
	mu   sync.Mutex
	rows []model.Notification
	err  error
}

func (f *fakeNotifications) Create(_ context.Context, n *model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	n.ID = uint64(len(f.rows) + 1)
	n.CreatedAt = time.Now().UTC()
	f.rows = append(f.rows, *n)
	return nil
}

func (f *fakeNotifications) ListForUser(_ context.Context, userID uint64, _ model.Role, _ int) ([]model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Notification{}
	for _, n := range f.rows {
		if n.TargetUserID != nil && *n.TargetUserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNotifications) MarkRead(context.Context, uint64, uint64, model.Role) error { return nil }

func (f *fakeNotifications) Dismiss(context.Context, uint64, uint64, model.Role) error { return nil }

func (f *fakeNotifications) all() []model.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Notification(nil), f.rows...)
}

// recordingEmitter remembers every channel it was asked to emit to.
type recordingEmitter struct {
	mu       sync.Mutex
	channels []realtime.Channel
	err      error
}

func (e *recordingEmitter) Emit(_ context.Context, ch realtime.Channel, _ realtime.Message) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.channels = append(e.channels, ch)
	return e.err
}

func (e *recordingEmitter) sent() []realtime.Channel {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]realtime.Channel(nil), e.channels...)
}

// ---- reports ----

type fakeReports struct {
	mu    sync.Mutex
	rows  []model.Report
	staff []model.User
}

func (f *fakeReports) Create(_ context.Context, rep *model.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rep.ID = uint64(len(f.rows) + 1)
	f.rows = append(f.rows, *rep)
	return nil
}

func (f *fakeReports) GetByID(_ context.Context, id uint64) (model.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.ID == id {
			return r, nil
		}
	}
	return model.Report{}, repository.ErrNotFound
}

func (f *fakeReports) List(_ context.Context, flt repository.ReportFilter) ([]model.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Report{}
	for _, r := range f.rows {
		if flt.Status != "" && r.Status != flt.Status {
			continue
		}
		if flt.Floor != "" && r.Floor != flt.Floor {
			continue
		}
		if flt.UserID != nil && r.UserID != *flt.UserID {
			continue
		}
		if flt.AssignedTo != nil && (r.AssignedTo == nil || *r.AssignedTo != *flt.AssignedTo) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeReports) UpdateStatus(_ context.Context, id uint64, to model.ReportStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == id && f.rows[i].Status.Open() {
			f.rows[i].Status = to
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeReports) Assign(_ context.Context, id uint64, staffID *uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == id {
			f.rows[i].AssignedTo = staffID
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeReports) StaffLoads(_ context.Context, floor string) ([]scheduler.StaffLoad, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []scheduler.StaffLoad
	for _, s := range f.staff {
		if s.Floor == nil || *s.Floor != floor || s.Suspended {
			continue
		}
		load := scheduler.StaffLoad{StaffID: s.ID}
		for _, r := range f.rows {
			if r.AssignedTo != nil && *r.AssignedTo == s.ID && r.Status.Open() {
				load.OpenReports++
			}
		}
		out = append(out, load)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].StaffID < out[b].StaffID })
	return out, nil
}

// ---- announcements ----

type fakeAnnouncements struct {
	mu        sync.Mutex
	rows      []model.Announcement
	dismissed map[[2]uint64]bool
}

func (f *fakeAnnouncements) Create(_ context.Context, a *model.Announcement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = uint64(len(f.rows) + 1)
	f.rows = append(f.rows, *a)
	return nil
}

func (f *fakeAnnouncements) ListLiveFor(_ context.Context, userID uint64, audience model.Audience, now time.Time) ([]model.Announcement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Announcement{}
	for _, a := range f.rows {
		if a.LiveAt(now) && (a.TargetAudience == model.AudienceAll || a.TargetAudience == audience) && !f.dismissed[[2]uint64{a.ID, userID}] {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAnnouncements) Dismiss(_ context.Context, id, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id == 0 || int(id) > len(f.rows) {
		return repository.ErrNotFound
	}
	if f.dismissed == nil {
		f.dismissed = map[[2]uint64]bool{}
	}
	f.dismissed[[2]uint64{id, userID}] = true
	return nil
}

func (f *fakeAnnouncements) Deactivate(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id == 0 || int(id) > len(f.rows) {
		return repository.ErrNotFound
	}
	f.rows[id-1].IsActive = false
	return nil
}

// ---- pending signups and mail ----

type fakePending struct {
	mu   sync.Mutex
	rows map[string]model.PendingSignup
}

func newFakePending() *fakePending { return &fakePending{rows: map[string]model.PendingSignup{}} }

func (f *fakePending) Put(_ context.Context, p model.PendingSignup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[strings.ToLower(p.Email)] = p
	return nil
}

func (f *fakePending) Get(_ context.Context, email string) (model.PendingSignup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[strings.ToLower(email)]
	if !ok {
		return model.PendingSignup{}, repository.ErrNotFound
	}
	return p, nil
}

func (f *fakePending) IncrAttempts(_ context.Context, email string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[strings.ToLower(email)]
	if !ok {
		return 0, repository.ErrNotFound
	}
	p.Attempts++
	f.rows[strings.ToLower(email)] = p
	return p.Attempts, nil
}

func (f *fakePending) Delete(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, strings.ToLower(email))
	return nil
}

type fakeMailer struct {
	mu    sync.Mutex
	codes map[string]string
	fail  bool
}

func (m *fakeMailer) SendOTP(_ context.Context, to, _, code string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("mail down")
	}
	if m.codes == nil {
		m.codes = map[string]string{}
	}
	m.codes[to] = code
	return nil
}

func (m *fakeMailer) SendWelcome(context.Context, string, string) error { return nil }

func (m *fakeMailer) code(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[to]
}

func strPtr(s string) *string { return &s }

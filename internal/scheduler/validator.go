package scheduler

import (
	"strings"
	"time"

	"github.com/iliyamo/circulink/internal/model"
)

// Policy carries the booking limits.  The zero value is not useful; use
// DefaultPolicy and override fields from configuration.
type Policy struct {
	MaxDuration    time.Duration  // longest allowed session
	WindowDays     int            // how many days ahead a date may be booked
	WeeklyDayLimit int            // distinct days per week a user may book
	DailyLimit     int            // active reservations per user per day
	Location       *time.Location // campus timezone used for every calendar rule
}

// DefaultPolicy returns the library's standing rules: 4 hour sessions,
// a 7 day window, 2 days per week and one reservation per day.
func DefaultPolicy() Policy {
	return Policy{
		MaxDuration:    4 * time.Hour,
		WindowDays:     7,
		WeeklyDayLimit: 2,
		DailyLimit:     1,
		Location:       time.UTC,
	}
}

// Candidate is a reservation request after parsing but before any rule
// has been applied.  Start and End are absolute instants on Date.
type Candidate struct {
	Room              string
	Floor             string
	Date              time.Time
	Start             time.Time
	End               time.Time
	RequesterID       uint64
	RequesterIDNumber string
	Participants      []string
}

// ApprovedCandidate is a candidate that passed every rule.  It can only
// be produced by Validator.Validate and is read through accessors so the
// persisted values are exactly the validated ones.
type ApprovedCandidate struct {
	c Candidate
}

func (a ApprovedCandidate) Room() string              { return a.c.Room }
func (a ApprovedCandidate) Floor() string             { return a.c.Floor }
func (a ApprovedCandidate) Date() time.Time           { return a.c.Date }
func (a ApprovedCandidate) Start() time.Time          { return a.c.Start }
func (a ApprovedCandidate) End() time.Time            { return a.c.End }
func (a ApprovedCandidate) RequesterID() uint64       { return a.c.RequesterID }
func (a ApprovedCandidate) RequesterIDNumber() string { return a.c.RequesterIDNumber }

// Participants returns a copy of the participant id numbers.
func (a ApprovedCandidate) Participants() []string {
	return append([]string(nil), a.c.Participants...)
}

// Validator applies the reservation rules against a snapshot of existing
// reservations.  It keeps no state between calls.
type Validator struct {
	policy Policy
	now    func() time.Time
}

// NewValidator builds a validator.  A nil clock means time.Now.
func NewValidator(p Policy, now func() time.Time) *Validator {
	if p.Location == nil {
		p.Location = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Validator{policy: p, now: now}
}

// Policy returns the limits the validator enforces.
func (v *Validator) Policy() Policy { return v.policy }

// Validate checks c against existing, in a fixed order, and returns the
// first failing rule as a *Rejection.  existing must contain every
// reservation of the candidate's week that involves the candidate's room,
// requester or participants; Cancelled rows are ignored and Completed rows
// only count towards the weekly limit.
func (v *Validator) Validate(c Candidate, existing []model.Reservation) (ApprovedCandidate, error) {
	loc := v.policy.Location
	cand := Range{Start: c.Start, End: c.End}

	if cand.Empty() {
		return ApprovedCandidate{}, reject(ReasonInvalidDuration, "end time must be after start time")
	}
	if cand.Duration() > v.policy.MaxDuration {
		return ApprovedCandidate{}, reject(ReasonInvalidDuration, "sessions may last at most %s", v.policy.MaxDuration)
	}

	now := v.now()
	today := DayStart(now, loc)
	day := DayStart(c.Date, loc)
	last := today.AddDate(0, 0, v.policy.WindowDays)
	if day.Before(today) || day.After(last) {
		return ApprovedCandidate{}, reject(ReasonOutOfBookingWindow, "reservations are accepted from %s to %s",
			DayKey(today, loc), DayKey(last, loc))
	}
	if c.Start.Before(now) {
		return ApprovedCandidate{}, reject(ReasonOutOfBookingWindow, "start time has already passed")
	}

	for _, r := range existing {
		if !r.Status.Active() || !sameRoom(r.Room, c.Room) {
			continue
		}
		if cand.Overlaps(Range{Start: r.StartAt, End: r.EndAt}) {
			return ApprovedCandidate{}, reject(ReasonRoomConflict, "%s is booked from %s to %s",
				r.Room, ToZoned(r.StartAt, loc).Format(clockLayout), ToZoned(r.EndAt, loc).Format(clockLayout))
		}
	}

	holders := make(map[string]struct{}, len(c.Participants)+1)
	if k := idKey(c.RequesterIDNumber); k != "" {
		holders[k] = struct{}{}
	}
	for _, p := range c.Participants {
		holders[idKey(p)] = struct{}{}
	}
	for _, r := range existing {
		if !r.Status.Active() || !SameDay(r.Date, c.Date, loc) {
			continue
		}
		if !cand.Overlaps(Range{Start: r.StartAt, End: r.EndAt}) {
			continue
		}
		if id, clash := sharedHolder(holders, r); clash {
			return ApprovedCandidate{}, reject(ReasonParticipantConflict, "%s already has a reservation in %s at that time", id, r.Room)
		}
	}

	week := WeekStart(c.Date, loc)
	days := make(map[string]struct{})
	for _, r := range existing {
		if r.RequesterID != c.RequesterID || r.Status == model.ReservationCancelled {
			continue
		}
		if WeekStart(r.Date, loc).Equal(week) {
			days[DayKey(r.Date, loc)] = struct{}{}
		}
	}
	if _, used := days[DayKey(c.Date, loc)]; !used && len(days) >= v.policy.WeeklyDayLimit {
		return ApprovedCandidate{}, reject(ReasonWeeklyLimitExceeded, "you may reserve on at most %d days per week", v.policy.WeeklyDayLimit)
	}

	sameDay := 0
	for _, r := range existing {
		if r.RequesterID == c.RequesterID && r.Status.Active() && SameDay(r.Date, c.Date, loc) {
			sameDay++
		}
	}
	if sameDay >= v.policy.DailyLimit {
		return ApprovedCandidate{}, reject(ReasonDailyLimitExceeded, "you already have a reservation on %s", DayKey(c.Date, loc))
	}

	seen := make(map[string]struct{}, len(c.Participants))
	for _, p := range c.Participants {
		k := idKey(p)
		if _, dup := seen[k]; dup {
			return ApprovedCandidate{}, reject(ReasonDuplicateParticipant, "%s is listed more than once", strings.TrimSpace(p))
		}
		seen[k] = struct{}{}
	}

	c.Participants = append([]string(nil), c.Participants...)
	return ApprovedCandidate{c: c}, nil
}

func sameRoom(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func idKey(id string) string { return strings.ToUpper(strings.TrimSpace(id)) }

// sharedHolder returns the first id number that both the candidate and r
// involve, r's requester first.
func sharedHolder(holders map[string]struct{}, r model.Reservation) (string, bool) {
	if _, ok := holders[idKey(r.RequesterIDNumber)]; ok && r.RequesterIDNumber != "" {
		return r.RequesterIDNumber, true
	}
	for _, p := range r.Participants {
		if _, ok := holders[idKey(p.IDNumber)]; ok {
			return p.IDNumber, true
		}
	}
	return "", false
}

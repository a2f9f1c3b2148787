package scheduler

import "fmt"

// Reason identifies why a candidate reservation was rejected.  The values
// are stable and returned to clients, which pick a different follow-up
// action per reason.
type Reason string

const (
	ReasonInvalidDuration      Reason = "InvalidDuration"
	ReasonOutOfBookingWindow   Reason = "OutOfBookingWindow"
	ReasonRoomConflict         Reason = "RoomConflict"
	ReasonParticipantConflict  Reason = "ParticipantConflict"
	ReasonWeeklyLimitExceeded  Reason = "WeeklyLimitExceeded"
	ReasonDailyLimitExceeded   Reason = "DailyLimitExceeded"
	ReasonDuplicateParticipant Reason = "DuplicateParticipant"
)

// Kind groups reasons into bad input versus a clash with existing state.
type Kind string

const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
)

// Kind returns the error kind a reason belongs to.
func (r Reason) Kind() Kind {
	switch r {
	case ReasonInvalidDuration, ReasonOutOfBookingWindow:
		return KindValidation
	}
	return KindConflict
}

var reasonMessages = map[Reason]string{
	ReasonInvalidDuration:      "Invalid duration",
	ReasonOutOfBookingWindow:   "Date is outside the booking window",
	ReasonRoomConflict:         "Room conflict",
	ReasonParticipantConflict:  "Participant already has a reservation at this time",
	ReasonWeeklyLimitExceeded:  "Weekly limit exceeded",
	ReasonDailyLimitExceeded:   "Daily limit exceeded",
	ReasonDuplicateParticipant: "Duplicate participant",
}

// Message is the human readable label for the reason.
func (r Reason) Message() string {
	if m, ok := reasonMessages[r]; ok {
		return m
	}
	return string(r)
}

// Rejection is returned by Validate when a candidate fails a rule.
type Rejection struct {
	Reason Reason
	Detail string
}

func reject(reason Reason, format string, args ...any) *Rejection {
	return &Rejection{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Error implements error.
func (r *Rejection) Error() string {
	if r.Detail == "" {
		return r.Reason.Message()
	}
	return r.Reason.Message() + ": " + r.Detail
}

// Kind returns the kind of the underlying reason.
func (r *Rejection) Kind() Kind { return r.Reason.Kind() }

package model

import "strings"

// ReservationStatus is the lifecycle state of a reservation.  Reservations
// are never deleted; they move from Pending/Approved into one of the
// terminal states.
type ReservationStatus string

const (
    ReservationPending   ReservationStatus = "Pending"
    ReservationApproved  ReservationStatus = "Approved"
    ReservationCancelled ReservationStatus = "Cancelled"
    ReservationCompleted ReservationStatus = "Completed"
)

// Active reports whether the reservation still occupies its room.
func (s ReservationStatus) Active() bool {
    return s == ReservationPending || s == ReservationApproved
}

// ReportStatus is the lifecycle state of a maintenance report.
type ReportStatus string

const (
    ReportPending    ReportStatus = "Pending"
    ReportInProgress ReportStatus = "InProgress"
    ReportResolved   ReportStatus = "Resolved"
    ReportArchived   ReportStatus = "Archived"
)

// Open reports whether staff still have work to do on the report.  Open
// reports count against a staff member's load during auto-assignment.
func (s ReportStatus) Open() bool {
    return s == ReportPending || s == ReportInProgress
}

// statusTable is the single canonical spelling table for every status
// string accepted from callers.  Keys are lower-cased with spaces,
// underscores and dashes removed.
var statusTable = map[string]string{
    "pending":    "Pending",
    "approved":   "Approved",
    "accepted":   "Approved",
    "confirmed":  "Approved",
    "rejected":   "Rejected",
    "declined":   "Rejected",
    "denied":     "Rejected",
    "cancelled":  "Cancelled",
    "canceled":   "Cancelled",
    "completed":  "Completed",
    "done":       "Completed",
    "finished":   "Completed",
    "inprogress": "InProgress",
    "ongoing":    "InProgress",
    "resolved":   "Resolved",
    "fixed":      "Resolved",
    "archived":   "Archived",
    "info":       "Info",
}

// DefaultStatus is what unrecognised status strings normalise to.
const DefaultStatus = "Pending"

func statusKey(raw string) string {
    r := strings.NewReplacer(" ", "", "_", "", "-", "")
    return r.Replace(strings.ToLower(strings.TrimSpace(raw)))
}

// NormalizeStatus maps a caller supplied status onto its canonical
// spelling.  Unknown values map to DefaultStatus and ok is false; callers
// decide whether that is acceptable.
func NormalizeStatus(raw string) (status string, ok bool) {
    if s, found := statusTable[statusKey(raw)]; found {
        return s, true
    }
    return DefaultStatus, false
}

// ParseReservationStatus accepts any spelling NormalizeStatus knows and
// returns it only when it names a reservation state.
func ParseReservationStatus(raw string) (ReservationStatus, bool) {
    s, ok := NormalizeStatus(raw)
    if !ok {
        return "", false
    }
    switch rs := ReservationStatus(s); rs {
    case ReservationPending, ReservationApproved, ReservationCancelled, ReservationCompleted:
        return rs, true
    }
    return "", false
}

// ParseReportStatus is the report counterpart of ParseReservationStatus.
func ParseReportStatus(raw string) (ReportStatus, bool) {
    s, ok := NormalizeStatus(raw)
    if !ok {
        return "", false
    }
    switch rs := ReportStatus(s); rs {
    case ReportPending, ReportInProgress, ReportResolved, ReportArchived:
        return rs, true
    }
    return "", false
}

package model

import (
    "strings"
    "time"
)

// NotificationType tags what a notification is about.
type NotificationType string

const (
    NotificationReservation  NotificationType = "reservation"
    NotificationReport       NotificationType = "report"
    NotificationSystem       NotificationType = "system"
    NotificationAnnouncement NotificationType = "announcement"
    NotificationAccount      NotificationType = "account"
)

// TargetRole is the audience column of a notification.  A notification
// is addressed to exactly one user, one role, or everyone.  Student and
// faculty targets are only used for announcements.
type TargetRole string

const (
    TargetUser    TargetRole = "user"
    TargetStudent TargetRole = "student"
    TargetFaculty TargetRole = "faculty"
    TargetStaff   TargetRole = "staff"
    TargetAdmin   TargetRole = "admin"
    TargetAll     TargetRole = "all"
)

// ParseTargetRole accepts any casing; empty means everyone.
func ParseTargetRole(raw string) (TargetRole, bool) {
    switch t := TargetRole(strings.ToLower(strings.TrimSpace(raw))); t {
    case "":
        return TargetAll, true
    case TargetUser, TargetStudent, TargetFaculty, TargetStaff, TargetAdmin, TargetAll:
        return t, true
    }
    return "", false
}

// Notification mirrors the `notifications` table.
type Notification struct {
    ID            uint64           `json:"id"`                       // notifications.id
    TargetUserID  *uint64          `json:"target_user_id,omitempty"` // notifications.target_user_id (nullable)
    TargetRole    TargetRole       `json:"target_role"`              // notifications.target_role
    Message       string           `json:"message"`                  // notifications.message
    Status        string           `json:"status"`                   // notifications.status (canonical spelling)
    Type          NotificationType `json:"type"`                     // notifications.type
    ReservationID *uint64          `json:"reservation_id,omitempty"` // notifications.reservation_id (nullable)
    ReportID      *uint64          `json:"report_id,omitempty"`      // notifications.report_id (nullable)
    IsRead        bool             `json:"is_read"`                  // notifications.is_read
    Dismissed     bool             `json:"dismissed"`                // notifications.dismissed
    CreatedAt     time.Time        `json:"created_at"`               // notifications.created_at
}

// ParseNotificationType accepts any casing; empty means system.
func ParseNotificationType(raw string) (NotificationType, bool) {
    switch t := NotificationType(strings.ToLower(strings.TrimSpace(raw))); t {
    case "":
        return NotificationSystem, true
    case NotificationReservation, NotificationReport, NotificationSystem, NotificationAnnouncement, NotificationAccount:
        return t, true
    }
    return "", false
}

package model

import (
    "strings"
    "time"
)

// Audience is who an announcement is shown to.
type Audience string

const (
    AudienceAll     Audience = "all"
    AudienceStudent Audience = "student"
    AudienceFaculty Audience = "faculty"
    AudienceStaff   Audience = "staff"
    AudienceAdmin   Audience = "admin"
)

// ParseAudience accepts any casing; an empty value means everyone.
func ParseAudience(raw string) (Audience, bool) {
    switch a := Audience(strings.ToLower(strings.TrimSpace(raw))); a {
    case "":
        return AudienceAll, true
    case AudienceAll, AudienceStudent, AudienceFaculty, AudienceStaff, AudienceAdmin:
        return a, true
    }
    return "", false
}

// Includes reports whether a user with the given role is in the audience.
func (a Audience) Includes(r Role) bool {
    return a == AudienceAll || strings.EqualFold(string(a), string(r))
}

// Announcement mirrors the `announcements` table.  Dismissals live in
// `announcement_dismissals` keyed by (announcement_id, user_id) so a user
// can dismiss an announcement at most once.
type Announcement struct {
    ID             uint64     `json:"id"`              // announcements.id
    Title          string     `json:"title"`           // announcements.title
    Message        string     `json:"message"`         // announcements.message
    TargetAudience Audience   `json:"target_audience"` // announcements.target_audience
    StartDate      time.Time  `json:"start_date"`      // announcements.start_date
    EndDate        *time.Time `json:"end_date"`        // announcements.end_date (nullable)
    IsActive       bool       `json:"is_active"`       // announcements.is_active
    CreatedBy      uint64     `json:"created_by"`      // announcements.created_by
    CreatedAt      time.Time  `json:"created_at"`      // announcements.created_at
}

// Dismissal records that a user hid an announcement.
type Dismissal struct {
    UserID      uint64    `json:"user"`
    DismissedAt time.Time `json:"dismissed_at"`
}

// LiveAt reports whether the announcement should be shown at t.
func (a Announcement) LiveAt(t time.Time) bool {
    if !a.IsActive || t.Before(a.StartDate) {
        return false
    }
    return a.EndDate == nil || a.EndDate.After(t)
}

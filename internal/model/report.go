package model

import "time"

// Report is a maintenance or incident report about a room.  Reports are
// auto-assigned to the least loaded staff member of their floor.
type Report struct {
    ID         uint64       `json:"id"`                    // reports.id
    ReportedBy string       `json:"reported_by"`           // reports.reported_by (display name)
    UserID     uint64       `json:"user_id"`               // reports.user_id
    Category   string       `json:"category"`              // reports.category
    Details    string       `json:"details"`               // reports.details
    Floor      string       `json:"floor"`                 // reports.floor
    Room       string       `json:"room"`                  // reports.room
    Status     ReportStatus `json:"status"`                // reports.status
    AssignedTo *uint64      `json:"assigned_to,omitempty"` // reports.assigned_to (nullable)
    CreatedAt  time.Time    `json:"created_at"`            // reports.created_at
    UpdatedAt  time.Time    `json:"updated_at"`            // reports.updated_at
}

package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/iliyamo/circulink/internal/model"
)

// AnnouncementRepo persists announcements and per-user dismissals.
type AnnouncementRepo struct {
    db *sql.DB
}

func NewAnnouncementRepo(db *sql.DB) *AnnouncementRepo { return &AnnouncementRepo{db: db} }

// Create inserts a and fills in ID and CreatedAt.
func (r *AnnouncementRepo) Create(ctx context.Context, a *model.Announcement) error {
    now := time.Now().UTC().Truncate(time.Second)
    var end any
    if a.EndDate != nil {
        end = a.EndDate.UTC()
    }
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO announcements (title, message, target_audience, start_date, end_date, is_active, created_by, created_at)
         VALUES (?,?,?,?,?,?,?,?)`,
        a.Title, a.Message, a.TargetAudience, a.StartDate.UTC(), end, a.IsActive, a.CreatedBy, now)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    a.ID = uint64(id)
    a.CreatedAt = now
    return nil
}

// ListLiveFor returns active announcements that have started, have not
// ended, target audience or everyone, and were not dismissed by userID.
func (r *AnnouncementRepo) ListLiveFor(ctx context.Context, userID uint64, audience model.Audience, now time.Time) ([]model.Announcement, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT a.id, a.title, a.message, a.target_audience, a.start_date, a.end_date, a.is_active, a.created_by, a.created_at
         FROM announcements a
         LEFT JOIN announcement_dismissals d ON d.announcement_id = a.id AND d.user_id = ?
         WHERE a.is_active = TRUE AND a.start_date <= ? AND (a.end_date IS NULL OR a.end_date > ?)
           AND a.target_audience IN ('all', ?) AND d.user_id IS NULL
         ORDER BY a.start_date DESC, a.id DESC`,
        userID, now.UTC(), now.UTC(), audience)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []model.Announcement{}
    for rows.Next() {
        var a model.Announcement
        var end sql.NullTime
        if err := rows.Scan(&a.ID, &a.Title, &a.Message, &a.TargetAudience, &a.StartDate, &end,
            &a.IsActive, &a.CreatedBy, &a.CreatedAt); err != nil {
            return nil, err
        }
        if end.Valid {
            t := end.Time
            a.EndDate = &t
        }
        out = append(out, a)
    }
    return out, rows.Err()
}

// Dismiss records that userID hid the announcement.  Repeating it is a
// no-op thanks to the composite primary key.
func (r *AnnouncementRepo) Dismiss(ctx context.Context, id, userID uint64) error {
    var exists uint64
    if err := r.db.QueryRowContext(ctx, "SELECT id FROM announcements WHERE id = ?", id).Scan(&exists); err != nil {
        return notFound(err)
    }
    _, err := r.db.ExecContext(ctx,
        "INSERT IGNORE INTO announcement_dismissals (announcement_id, user_id, dismissed_at) VALUES (?,?,UTC_TIMESTAMP())",
        id, userID)
    return err
}

// Deactivate hides an announcement from everyone.
func (r *AnnouncementRepo) Deactivate(ctx context.Context, id uint64) error {
    res, err := r.db.ExecContext(ctx, "UPDATE announcements SET is_active = FALSE WHERE id = ?", id)
    if err != nil {
        return err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return ErrNotFound
    }
    return nil
}

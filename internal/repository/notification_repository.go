package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/iliyamo/circulink/internal/model"
)

// NotificationRepo stores the notification inbox.
type NotificationRepo struct {
    db *sql.DB
}

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// Create inserts n and fills in ID and CreatedAt.
func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
    now := time.Now().UTC().Truncate(time.Second)
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO notifications (target_user_id, target_role, message, status, type, reservation_id, report_id, created_at)
         VALUES (?,?,?,?,?,?,?,?)`,
        n.TargetUserID, n.TargetRole, n.Message, n.Status, n.Type, n.ReservationID, n.ReportID, now)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    n.ID = uint64(id)
    n.CreatedAt = now
    return nil
}

// audienceFor lists the target_role values a user with role receives in
// addition to notifications addressed to them directly.
func audienceFor(role model.Role) []any {
    switch role {
    case model.RoleStaff:
        return []any{model.TargetStaff, model.TargetAll}
    case model.RoleAdmin:
        return []any{model.TargetAdmin, model.TargetAll}
    case model.RoleFaculty:
        return []any{model.TargetFaculty, model.TargetAll}
    case model.RoleStudent:
        return []any{model.TargetStudent, model.TargetAll}
    }
    return []any{model.TargetAll}
}

// ListForUser returns the undismissed notifications visible to the user,
// newest first.
func (r *NotificationRepo) ListForUser(ctx context.Context, userID uint64, role model.Role, limit int) ([]model.Notification, error) {
    if limit <= 0 || limit > 200 {
        limit = 50
    }
    roles := audienceFor(role)
    args := append([]any{userID}, roles...)
    args = append(args, limit)
    rows, err := r.db.QueryContext(ctx,
        `SELECT id, target_user_id, target_role, message, status, type, reservation_id, report_id, is_read, dismissed, created_at
         FROM notifications
         WHERE dismissed = FALSE AND (target_user_id = ? OR (target_user_id IS NULL AND target_role IN (`+placeholders(len(roles))+`)))
         ORDER BY created_at DESC, id DESC LIMIT ?`, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []model.Notification{}
    for rows.Next() {
        var n model.Notification
        var uid, resID, repID sql.NullInt64
        if err := rows.Scan(&n.ID, &uid, &n.TargetRole, &n.Message, &n.Status, &n.Type,
            &resID, &repID, &n.IsRead, &n.Dismissed, &n.CreatedAt); err != nil {
            return nil, err
        }
        n.TargetUserID, n.ReservationID, n.ReportID = nullUint(uid), nullUint(resID), nullUint(repID)
        out = append(out, n)
    }
    return out, rows.Err()
}

// MarkRead sets is_read on a notification visible to the user.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, userID uint64, role model.Role) error {
    return r.flag(ctx, "is_read", id, userID, role)
}

// Dismiss hides a notification visible to the user.
func (r *NotificationRepo) Dismiss(ctx context.Context, id, userID uint64, role model.Role) error {
    return r.flag(ctx, "dismissed", id, userID, role)
}

func (r *NotificationRepo) flag(ctx context.Context, column string, id, userID uint64, role model.Role) error {
    roles := audienceFor(role)
    args := append([]any{id, userID}, roles...)
    var found uint64
    err := r.db.QueryRowContext(ctx,
        `SELECT id FROM notifications
         WHERE id = ? AND (target_user_id = ? OR (target_user_id IS NULL AND target_role IN (`+placeholders(len(roles))+`)))`,
        args...).Scan(&found)
    if err != nil {
        return notFound(err)
    }
    // column is one of two literals chosen above, never caller input.
    _, err = r.db.ExecContext(ctx, "UPDATE notifications SET "+column+" = TRUE WHERE id = ?", id)
    return err
}

package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/iliyamo/circulink/internal/model"
    "github.com/iliyamo/circulink/internal/scheduler"
)

// ReportRepo persists maintenance reports and answers the staff workload
// query used by auto-assignment.
type ReportRepo struct {
    db *sql.DB
}

func NewReportRepo(db *sql.DB) *ReportRepo { return &ReportRepo{db: db} }

// ReportFilter narrows List.  Zero values mean "any".
type ReportFilter struct {
    Status     model.ReportStatus
    Floor      string
    AssignedTo *uint64
    UserID     *uint64
}

const reportColumns = `id, reported_by, user_id, category, details, floor, room, status, assigned_to, created_at, updated_at`

func scanReport(row interface{ Scan(...any) error }) (model.Report, error) {
    var rep model.Report
    var assigned sql.NullInt64
    err := row.Scan(&rep.ID, &rep.ReportedBy, &rep.UserID, &rep.Category, &rep.Details, &rep.Floor,
        &rep.Room, &rep.Status, &assigned, &rep.CreatedAt, &rep.UpdatedAt)
    rep.AssignedTo = nullUint(assigned)
    return rep, err
}

// Create inserts rep and reloads it to pick up defaults.
func (r *ReportRepo) Create(ctx context.Context, rep *model.Report) error {
    if rep.Status == "" {
        rep.Status = model.ReportPending
    }
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO reports (reported_by, user_id, category, details, floor, room, status, assigned_to)
         VALUES (?,?,?,?,?,?,?,?)`,
        rep.ReportedBy, rep.UserID, rep.Category, rep.Details, rep.Floor, rep.Room, rep.Status, rep.AssignedTo)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    stored, err := r.GetByID(ctx, uint64(id))
    if err != nil {
        return err
    }
    *rep = stored
    return nil
}

// GetByID loads a single report.
func (r *ReportRepo) GetByID(ctx context.Context, id uint64) (model.Report, error) {
    rep, err := scanReport(r.db.QueryRowContext(ctx, "SELECT "+reportColumns+" FROM reports WHERE id = ?", id))
    return rep, notFound(err)
}

// List returns reports matching f, newest first.
func (r *ReportRepo) List(ctx context.Context, f ReportFilter) ([]model.Report, error) {
    var where []string
    var args []any
    if f.Status != "" {
        where = append(where, "status = ?")
        args = append(args, f.Status)
    }
    if f.Floor != "" {
        where = append(where, "floor = ?")
        args = append(args, f.Floor)
    }
    if f.AssignedTo != nil {
        where = append(where, "assigned_to = ?")
        args = append(args, *f.AssignedTo)
    }
    if f.UserID != nil {
        where = append(where, "user_id = ?")
        args = append(args, *f.UserID)
    }
    q := "SELECT " + reportColumns + " FROM reports"
    if len(where) > 0 {
        q += " WHERE " + strings.Join(where, " AND ")
    }
    rows, err := r.db.QueryContext(ctx, q+" ORDER BY created_at DESC, id DESC", args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []model.Report{}
    for rows.Next() {
        rep, err := scanReport(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, rep)
    }
    return out, rows.Err()
}

// UpdateStatus changes the status of a report that is still open.  It
// reports false when the report is already Resolved or Archived.
func (r *ReportRepo) UpdateStatus(ctx context.Context, id uint64, to model.ReportStatus) (bool, error) {
    res, err := r.db.ExecContext(ctx,
        "UPDATE reports SET status = ? WHERE id = ? AND status IN ('Pending','InProgress')", to, id)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    return n > 0, err
}

// Assign sets or clears the assignee.
func (r *ReportRepo) Assign(ctx context.Context, id uint64, staffID *uint64) error {
    res, err := r.db.ExecContext(ctx, "UPDATE reports SET assigned_to = ? WHERE id = ?", staffID, id)
    if err != nil {
        return err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        _, err := r.GetByID(ctx, id)
        return err
    }
    return nil
}

// StaffLoads returns the non-suspended staff of floor ordered by id, each
// with the number of open reports assigned to them.
func (r *ReportRepo) StaffLoads(ctx context.Context, floor string) ([]scheduler.StaffLoad, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT u.id, COUNT(rep.id)
         FROM users u
         LEFT JOIN reports rep ON rep.assigned_to = u.id AND rep.status IN ('Pending','InProgress')
         WHERE u.role = 'Staff' AND u.floor = ? AND u.suspended = FALSE
         GROUP BY u.id
         ORDER BY u.id`, floor)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []scheduler.StaffLoad
    for rows.Next() {
        var s scheduler.StaffLoad
        if err := rows.Scan(&s.StaffID, &s.OpenReports); err != nil {
            return nil, err
        }
        out = append(out, s)
    }
    return out, rows.Err()
}

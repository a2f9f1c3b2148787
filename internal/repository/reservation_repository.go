package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/iliyamo/circulink/internal/model"
)

// ReservationRepo provides persistence for reservations and their
// participants.  start_at/end_at are stored in UTC; the calendar date is a
// campus-local DATE which is returned as local midnight in loc.
type ReservationRepo struct {
    db  *sql.DB
    loc *time.Location
}

// NewReservationRepo returns a ReservationRepo bound to db.  loc is the
// campus timezone dates are interpreted in.
func NewReservationRepo(db *sql.DB, loc *time.Location) *ReservationRepo {
    if loc == nil {
        loc = time.UTC
    }
    return &ReservationRepo{db: db, loc: loc}
}

const reservationColumns = `r.id, r.room, r.floor, r.date, r.start_at, r.end_at, r.requester_id,
    r.requester_id_number, r.purpose, r.status, r.created_at, r.updated_at`

// DecideFunc receives the week snapshot and returns the reservation to
// insert, or an error to abort without writing anything.
type DecideFunc func(existing []model.Reservation) (*model.Reservation, error)

// CreateLocked serialises reservation creation per calendar week.  Inside a
// single transaction it locks the week's row in reservation_locks, loads
// every non-cancelled reservation dated in [week, week+7d), hands them to
// decide and inserts whatever decide returns.  Two concurrent requests for
// the same week therefore see each other's rows, and a room can never be
// double-booked.
func (r *ReservationRepo) CreateLocked(ctx context.Context, week time.Time, decide DecideFunc) (*model.Reservation, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    weekKey := r.dayKey(week)
    if _, err := tx.ExecContext(ctx, "INSERT IGNORE INTO reservation_locks (week_start) VALUES (?)", weekKey); err != nil {
        return nil, err
    }
    var locked time.Time
    if err := tx.QueryRowContext(ctx,
        "SELECT week_start FROM reservation_locks WHERE week_start = ? FOR UPDATE", weekKey).Scan(&locked); err != nil {
        return nil, err
    }

    existing, err := r.list(ctx, tx,
        "WHERE r.date >= ? AND r.date < ? AND r.status <> 'Cancelled' ORDER BY r.start_at",
        weekKey, r.dayKey(week.AddDate(0, 0, 7)))
    if err != nil {
        return nil, err
    }

    res, err := decide(existing)
    if err != nil {
        return nil, err
    }
    if err := r.insertTx(ctx, tx, res); err != nil {
        return nil, err
    }
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    committed = true
    return res, nil
}

func (r *ReservationRepo) insertTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
    if res.Status == "" {
        res.Status = model.ReservationPending
    }
    result, err := tx.ExecContext(ctx,
        `INSERT INTO reservations (room, floor, date, start_at, end_at, requester_id, requester_id_number, purpose, status)
         VALUES (?,?,?,?,?,?,?,?,?)`,
        res.Room, res.Floor, r.dayKey(res.Date), res.StartAt.UTC(), res.EndAt.UTC(),
        res.RequesterID, res.RequesterIDNumber, res.Purpose, res.Status)
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    res.ID = uint64(id)
    if len(res.Participants) > 0 {
        q := "INSERT INTO reservation_participants (reservation_id, id_number) VALUES "
        args := make([]any, 0, len(res.Participants)*2)
        for i, p := range res.Participants {
            if i > 0 {
                q += ","
            }
            q += "(?, ?)"
            args = append(args, res.ID, p.IDNumber)
        }
        if _, err := tx.ExecContext(ctx, q, args...); err != nil {
            return err
        }
    }
    now := time.Now().UTC()
    res.CreatedAt, res.UpdatedAt = now, now
    return nil
}

// GetByID returns one reservation with its participants.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (model.Reservation, error) {
    list, err := r.list(ctx, r.db, "WHERE r.id = ?", id)
    if err != nil {
        return model.Reservation{}, err
    }
    if len(list) == 0 {
        return model.Reservation{}, ErrNotFound
    }
    return list[0], nil
}

// ListForUser returns reservations the user requested or joins as a
// participant, newest date first.
func (r *ReservationRepo) ListForUser(ctx context.Context, userID uint64, idNumber string) ([]model.Reservation, error) {
    return r.list(ctx, r.db,
        `WHERE r.requester_id = ? OR r.id IN (SELECT reservation_id FROM reservation_participants WHERE id_number = ?)
         ORDER BY r.date DESC, r.start_at DESC`, userID, idNumber)
}

// ListByDate returns every reservation on date regardless of status.
func (r *ReservationRepo) ListByDate(ctx context.Context, date time.Time) ([]model.Reservation, error) {
    return r.list(ctx, r.db, "WHERE r.date = ? ORDER BY r.room, r.start_at", r.dayKey(date))
}

// ListActiveByDate returns the Pending and Approved reservations on date.
func (r *ReservationRepo) ListActiveByDate(ctx context.Context, date time.Time) ([]model.Reservation, error) {
    return r.list(ctx, r.db,
        "WHERE r.date = ? AND r.status IN ('Pending','Approved') ORDER BY r.room, r.start_at", r.dayKey(date))
}

// Transition moves a reservation from one of from into to.  It reports
// false when the row was not in an allowed state, so callers can
// distinguish a lost race from success.
func (r *ReservationRepo) Transition(ctx context.Context, id uint64, from []model.ReservationStatus, to model.ReservationStatus) (bool, error) {
    args := []any{to, id}
    for _, s := range from {
        args = append(args, s)
    }
    res, err := r.db.ExecContext(ctx,
        "UPDATE reservations SET status = ? WHERE id = ? AND status IN ("+placeholders(len(from))+")", args...)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    return n > 0, err
}

// CancelBeforeStart cancels an active reservation that has not started yet.
func (r *ReservationRepo) CancelBeforeStart(ctx context.Context, id uint64, now time.Time) (bool, error) {
    res, err := r.db.ExecContext(ctx,
        `UPDATE reservations SET status = 'Cancelled'
         WHERE id = ? AND status IN ('Pending','Approved') AND start_at > ?`, id, now.UTC())
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    return n > 0, err
}

// CompleteExpired marks every active reservation whose end has passed as
// Completed in one statement and returns how many rows changed.  Running
// it again without new expiries changes nothing.
func (r *ReservationRepo) CompleteExpired(ctx context.Context, now time.Time) (int64, error) {
    res, err := r.db.ExecContext(ctx,
        `UPDATE reservations SET status = 'Completed'
         WHERE status IN ('Pending','Approved') AND end_at <= ?`, now.UTC())
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

func (r *ReservationRepo) list(ctx context.Context, q querier, where string, args ...any) ([]model.Reservation, error) {
    rows, err := q.QueryContext(ctx, "SELECT "+reservationColumns+" FROM reservations r "+where, args...)
    if err != nil {
        return nil, err
    }
    out := []model.Reservation{}
    for rows.Next() {
        var res model.Reservation
        if err := rows.Scan(&res.ID, &res.Room, &res.Floor, &res.Date, &res.StartAt, &res.EndAt,
            &res.RequesterID, &res.RequesterIDNumber, &res.Purpose, &res.Status,
            &res.CreatedAt, &res.UpdatedAt); err != nil {
            rows.Close()
            return nil, err
        }
        res.Date = r.localDate(res.Date)
        res.Participants = []model.Participant{}
        out = append(out, res)
    }
    if err := rows.Close(); err != nil {
        return nil, err
    }
    if err := r.attachParticipants(ctx, q, out); err != nil {
        return nil, err
    }
    return out, nil
}

func (r *ReservationRepo) attachParticipants(ctx context.Context, q querier, list []model.Reservation) error {
    if len(list) == 0 {
        return nil
    }
    index := make(map[uint64]int, len(list))
    args := make([]any, len(list))
    for i, res := range list {
        index[res.ID] = i
        args[i] = res.ID
    }
    rows, err := q.QueryContext(ctx,
        "SELECT reservation_id, id_number FROM reservation_participants WHERE reservation_id IN ("+
            placeholders(len(list))+") ORDER BY reservation_id, id_number", args...)
    if err != nil {
        return err
    }
    defer rows.Close()
    for rows.Next() {
        var id uint64
        var p model.Participant
        if err := rows.Scan(&id, &p.IDNumber); err != nil {
            return err
        }
        if i, ok := index[id]; ok {
            list[i].Participants = append(list[i].Participants, p)
        }
    }
    return rows.Err()
}

// dayKey renders the campus-local calendar day of t for a DATE column.
func (r *ReservationRepo) dayKey(t time.Time) string {
    return t.In(r.loc).Format("2006-01-02")
}

// localDate turns a DATE scanned as UTC midnight back into local midnight.
func (r *ReservationRepo) localDate(d time.Time) time.Time {
    return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, r.loc)
}

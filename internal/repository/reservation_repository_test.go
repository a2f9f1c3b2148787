package repository

import (
    "context"
    "errors"
    "regexp"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"

    "github.com/iliyamo/circulink/internal/model"
)

var reservationCols = []string{"id", "room", "floor", "date", "start_at", "end_at", "requester_id",
    "requester_id_number", "purpose", "status", "created_at", "updated_at"}

func newMockRepo(t *testing.T) (*ReservationRepo, sqlmock.Sqlmock) {
    t.Helper()
    db, mock, err := sqlmock.New()
    if err != nil {
        t.Fatal(err)
    }
    t.Cleanup(func() { _ = db.Close() })
    return NewReservationRepo(db, time.UTC), mock
}

// expectWeekLock expects the lock row to be created and then locked, in
// that order, inside an open transaction.
func expectWeekLock(mock sqlmock.Sqlmock, week string) {
    mock.ExpectBegin()
    mock.ExpectExec(regexp.QuoteMeta("INSERT IGNORE INTO reservation_locks (week_start) VALUES (?)")).
        WithArgs(week).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectQuery(regexp.QuoteMeta("SELECT week_start FROM reservation_locks WHERE week_start = ? FOR UPDATE")).
        WithArgs(week).
        WillReturnRows(sqlmock.NewRows([]string{"week_start"}).AddRow(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)))
}

func TestCreateLockedLocksWeekBeforeInsert(t *testing.T) {
    repo, mock := newMockRepo(t)
    week := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

    expectWeekLock(mock, "2025-06-02")
    mock.ExpectQuery(regexp.QuoteMeta("FROM reservations r WHERE r.date >= ? AND r.date < ? AND r.status <> 'Cancelled'")).
        WithArgs("2025-06-02", "2025-06-09").
        WillReturnRows(sqlmock.NewRows(reservationCols))
    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reservations (room, floor, date, start_at, end_at")).
        WillReturnResult(sqlmock.NewResult(42, 1))
    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reservation_participants (reservation_id, id_number) VALUES (?, ?)")).
        WithArgs(sqlmock.AnyArg(), "B2").
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectCommit()

    var seen []model.Reservation
    res, err := repo.CreateLocked(context.Background(), week, func(existing []model.Reservation) (*model.Reservation, error) {
        seen = existing
        return &model.Reservation{
            Room:              "Collab-A",
            Floor:             "2nd Floor",
            Date:              time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC),
            StartAt:           time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC),
            EndAt:             time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC),
            RequesterID:       1,
            RequesterIDNumber: "A1",
            Participants:      []model.Participant{{IDNumber: "B2"}},
        }, nil
    })
    if err != nil {
        t.Fatalf("CreateLocked: %v", err)
    }
    if len(seen) != 0 {
        t.Fatalf("expected an empty week snapshot, got %d rows", len(seen))
    }
    if res.ID != 42 || res.Status != model.ReservationPending {
        t.Fatalf("unexpected reservation: %+v", res)
    }
    if err := mock.ExpectationsWereMet(); err != nil {
        t.Fatal(err)
    }
}

func TestCreateLockedRollsBackOnRejection(t *testing.T) {
    repo, mock := newMockRepo(t)
    week := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
    start := time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)

    expectWeekLock(mock, "2025-06-02")
    mock.ExpectQuery(regexp.QuoteMeta("FROM reservations r WHERE r.date >= ?")).
        WithArgs("2025-06-02", "2025-06-09").
        WillReturnRows(sqlmock.NewRows(reservationCols).AddRow(
            7, "Collab-A", "2nd Floor", time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC), start, start.Add(2*time.Hour),
            9, "C3", "study", "Approved", start, start))
    mock.ExpectQuery(regexp.QuoteMeta("FROM reservation_participants WHERE reservation_id IN (?)")).
        WithArgs(sqlmock.AnyArg()).
        WillReturnRows(sqlmock.NewRows([]string{"reservation_id", "id_number"}).AddRow(7, "D4"))
    mock.ExpectRollback()

    conflict := errors.New("room conflict")
    var seen []model.Reservation
    _, err := repo.CreateLocked(context.Background(), week, func(existing []model.Reservation) (*model.Reservation, error) {
        seen = existing
        return nil, conflict
    })
    if !errors.Is(err, conflict) {
        t.Fatalf("got %v, want the decide error", err)
    }
    if len(seen) != 1 || seen[0].ID != 7 || seen[0].Status != model.ReservationApproved ||
        len(seen[0].Participants) != 1 || seen[0].Participants[0].IDNumber != "D4" {
        t.Fatalf("decide saw an unexpected snapshot: %+v", seen)
    }
    if err := mock.ExpectationsWereMet(); err != nil {
        t.Fatal(err)
    }
}

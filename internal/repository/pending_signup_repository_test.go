package repository

import (
    "context"
    "errors"
    "regexp"
    "testing"

    "github.com/DATA-DOG/go-sqlmock"
)

func TestSQLPendingIncrAttempts(t *testing.T) {
    db, mock, err := sqlmock.New()
    if err != nil {
        t.Fatal(err)
    }
    defer db.Close()
    store := NewSQLPendingStore(db)

    mock.ExpectBegin()
    mock.ExpectExec(regexp.QuoteMeta("UPDATE pending_signups SET attempts = attempts + 1 WHERE email = ?")).
        WithArgs("ana@uni.edu", sqlmock.AnyArg()).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectQuery(regexp.QuoteMeta("SELECT attempts FROM pending_signups WHERE email = ?")).
        WithArgs("ana@uni.edu").
        WillReturnRows(sqlmock.NewRows([]string{"attempts"}).AddRow(3))
    mock.ExpectCommit()

    n, err := store.IncrAttempts(context.Background(), " Ana@Uni.edu ")
    if err != nil || n != 3 {
        t.Fatalf("IncrAttempts = %d, %v; want 3", n, err)
    }

    mock.ExpectBegin()
    mock.ExpectExec(regexp.QuoteMeta("UPDATE pending_signups SET attempts = attempts + 1")).
        WillReturnResult(sqlmock.NewResult(0, 0))
    mock.ExpectRollback()

    if _, err := store.IncrAttempts(context.Background(), "gone@uni.edu"); !errors.Is(err, ErrNotFound) {
        t.Fatalf("expired entry: got %v, want ErrNotFound", err)
    }
    if err := mock.ExpectationsWereMet(); err != nil {
        t.Fatal(err)
    }
}

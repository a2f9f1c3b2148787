// Package repository holds the MySQL, Redis and MongoDB data access for
// CircuLink.  Sentinel values below let services and handlers tell failure
// scenarios apart without inspecting driver errors: ErrNotFound becomes a
// 404 and the duplicate errors a 409.
package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"

    "github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

var (
    ErrEmailExists    = errors.New("email already exists")
    ErrIDNumberExists = errors.New("id number already exists")
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
    ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
    QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
    QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// notFound maps sql.ErrNoRows onto ErrNotFound and leaves other errors alone.
func notFound(err error) error {
    if errors.Is(err, sql.ErrNoRows) {
        return ErrNotFound
    }
    return err
}

// duplicateKey reports whether err is a MySQL 1062 duplicate entry error and
// returns the offending key name when it is.
func duplicateKey(err error) (string, bool) {
    var me *mysql.MySQLError
    if !errors.As(err, &me) || me.Number != 1062 {
        return "", false
    }
    // Message: Duplicate entry 'x' for key 'users.uq_users_email'
    msg := me.Message
    if i := strings.LastIndex(msg, "for key '"); i >= 0 {
        return strings.TrimSuffix(msg[i+len("for key '"):], "'"), true
    }
    return "", true
}

// placeholders returns "?,?,?" for n arguments.
func placeholders(n int) string {
    if n <= 0 {
        return ""
    }
    return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func nullString(ns sql.NullString) *string {
    if !ns.Valid {
        return nil
    }
    s := ns.String
    return &s
}

func nullUint(n sql.NullInt64) *uint64 {
    if !n.Valid {
        return nil
    }
    v := uint64(n.Int64)
    return &v
}

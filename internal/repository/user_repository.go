package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/iliyamo/circulink/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id, id_number, name, email, password_hash, role, department, course,
    year_level, floor, verified, suspended, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
    var u model.User
    var dept, course, year, floor sql.NullString
    err := row.Scan(&u.ID, &u.IDNumber, &u.Name, &u.Email, &u.PasswordHash, &u.Role,
        &dept, &course, &year, &floor, &u.Verified, &u.Suspended, &u.CreatedAt, &u.UpdatedAt)
    if err != nil {
        return model.User{}, err
    }
    u.Department, u.Course, u.YearLevel, u.Floor = nullString(dept), nullString(course), nullString(year), nullString(floor)
    return u, nil
}

// Create inserts u and fills in its ID.  The email is stored lower-cased.
// Duplicate email or id number map to ErrEmailExists / ErrIDNumberExists.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
    u.Email = strings.ToLower(strings.TrimSpace(u.Email))
    u.IDNumber = strings.TrimSpace(u.IDNumber)
    res, err := r.DB.ExecContext(ctx,
        `INSERT INTO users (id_number, name, email, password_hash, role, department, course, year_level, floor, verified)
         VALUES (?,?,?,?,?,?,?,?,?,?)`,
        u.IDNumber, u.Name, u.Email, u.PasswordHash, u.Role, u.Department, u.Course, u.YearLevel, u.Floor, u.Verified)
    if err != nil {
        if key, dup := duplicateKey(err); dup {
            if strings.Contains(key, "id_number") {
                return ErrIDNumberExists
            }
            return ErrEmailExists
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    u.ID = uint64(id)
    return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
    email = strings.ToLower(strings.TrimSpace(email))
    u, err := scanUser(r.DB.QueryRowContext(ctx,
        "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
    return u, notFound(err)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
    u, err := scanUser(r.DB.QueryRowContext(ctx,
        "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
    return u, notFound(err)
}

// Taken reports which of email and idNumber already belong to a user.
func (r *UserRepo) Taken(ctx context.Context, email, idNumber string) (emailTaken, idTaken bool, err error) {
    rows, err := r.DB.QueryContext(ctx,
        "SELECT LOWER(email), id_number FROM users WHERE email=? OR id_number=?",
        strings.ToLower(strings.TrimSpace(email)), strings.TrimSpace(idNumber))
    if err != nil {
        return false, false, err
    }
    defer rows.Close()
    for rows.Next() {
        var e, id string
        if err := rows.Scan(&e, &id); err != nil {
            return false, false, err
        }
        if e == strings.ToLower(strings.TrimSpace(email)) {
            emailTaken = true
        }
        if strings.EqualFold(id, strings.TrimSpace(idNumber)) {
            idTaken = true
        }
    }
    return emailTaken, idTaken, rows.Err()
}

// UnknownIDNumbers returns the entries of ids that no user holds.
func (r *UserRepo) UnknownIDNumbers(ctx context.Context, ids []string) ([]string, error) {
    if len(ids) == 0 {
        return nil, nil
    }
    args := make([]any, len(ids))
    for i, id := range ids {
        args[i] = strings.TrimSpace(id)
    }
    rows, err := r.DB.QueryContext(ctx,
        "SELECT UPPER(id_number) FROM users WHERE id_number IN ("+placeholders(len(ids))+")", args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    known := make(map[string]bool, len(ids))
    for rows.Next() {
        var id string
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        known[id] = true
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    var missing []string
    for _, id := range ids {
        if !known[strings.ToUpper(strings.TrimSpace(id))] {
            missing = append(missing, id)
        }
    }
    return missing, nil
}

// SetSuspended flips the suspension flag.  ErrNotFound when no such user.
func (r *UserRepo) SetSuspended(ctx context.Context, id uint64, suspended bool) error {
    res, err := r.DB.ExecContext(ctx, "UPDATE users SET suspended=? WHERE id=?", suspended, id)
    if err != nil {
        return err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return ErrNotFound
    }
    return nil
}

// IDsByIDNumbers resolves id numbers to user ids.  Unknown numbers are
// skipped.
func (r *UserRepo) IDsByIDNumbers(ctx context.Context, ids []string) ([]uint64, error) {
    if len(ids) == 0 {
        return nil, nil
    }
    args := make([]any, len(ids))
    for i, id := range ids {
        args[i] = strings.TrimSpace(id)
    }
    rows, err := r.DB.QueryContext(ctx,
        "SELECT id FROM users WHERE id_number IN ("+placeholders(len(ids))+") ORDER BY id", args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []uint64
    for rows.Next() {
        var id uint64
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        out = append(out, id)
    }
    return out, rows.Err()
}

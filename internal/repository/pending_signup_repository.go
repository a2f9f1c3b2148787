package repository

import (
    "context"
    "database/sql"
    "encoding/json"
    "errors"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/circulink/internal/model"
)

// PendingSignupStore holds registrations waiting for their OTP.  Entries
// expire at PendingSignup.ExpiresAt; an expired entry behaves as missing.
// Put resets the attempt counter.  IncrAttempts bumps it atomically and
// returns the new value, or ErrNotFound when the entry is gone.
type PendingSignupStore interface {
    Put(ctx context.Context, p model.PendingSignup) error
    Get(ctx context.Context, email string) (model.PendingSignup, error)
    IncrAttempts(ctx context.Context, email string) (int, error)
    Delete(ctx context.Context, email string) error
}

func signupKey(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// incrAttempts bumps the attempt counter of a live entry and gives it the
// entry's remaining TTL.  It returns -1 when the entry has expired.
var incrAttempts = redis.NewScript(`
local ttl = redis.call("PTTL", KEYS[1])
if ttl <= 0 then
  return -1
end
local n = redis.call("INCR", KEYS[2])
redis.call("PEXPIRE", KEYS[2], ttl)
return n
`)

// RedisPendingStore keeps pending signups as JSON under a SETEX key so
// Redis drops them on its own.  The attempt counter lives in a sibling
// key with the same TTL.
type RedisPendingStore struct {
    rdb    *redis.Client
    prefix string
}

func NewRedisPendingStore(rdb *redis.Client, prefix string) *RedisPendingStore {
    if prefix == "" {
        prefix = "circulink:signup:"
    }
    return &RedisPendingStore{rdb: rdb, prefix: prefix}
}

func (s *RedisPendingStore) Put(ctx context.Context, p model.PendingSignup) error {
    ttl := time.Until(p.ExpiresAt)
    if ttl <= 0 {
        return s.Delete(ctx, p.Email)
    }
    data, err := json.Marshal(p)
    if err != nil {
        return err
    }
    key := s.prefix + signupKey(p.Email)
    _, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
        pipe.SetEx(ctx, key, data, ttl)
        pipe.Del(ctx, key+":attempts")
        return nil
    })
    return err
}

func (s *RedisPendingStore) Get(ctx context.Context, email string) (model.PendingSignup, error) {
    key := s.prefix + signupKey(email)
    var payload *redis.StringCmd
    var attempts *redis.StringCmd
    _, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
        payload = pipe.Get(ctx, key)
        attempts = pipe.Get(ctx, key+":attempts")
        return nil
    })
    if err != nil && !errors.Is(err, redis.Nil) {
        return model.PendingSignup{}, err
    }
    data, err := payload.Bytes()
    if errors.Is(err, redis.Nil) {
        return model.PendingSignup{}, ErrNotFound
    }
    if err != nil {
        return model.PendingSignup{}, err
    }
    var p model.PendingSignup
    if err := json.Unmarshal(data, &p); err != nil {
        return model.PendingSignup{}, err
    }
    if n, err := attempts.Int(); err == nil {
        p.Attempts = n
    }
    return p, nil
}

func (s *RedisPendingStore) IncrAttempts(ctx context.Context, email string) (int, error) {
    key := s.prefix + signupKey(email)
    n, err := incrAttempts.Run(ctx, s.rdb, []string{key, key + ":attempts"}).Int()
    if err != nil {
        return 0, err
    }
    if n < 0 {
        return 0, ErrNotFound
    }
    return n, nil
}

func (s *RedisPendingStore) Delete(ctx context.Context, email string) error {
    key := s.prefix + signupKey(email)
    return s.rdb.Del(ctx, key, key+":attempts").Err()
}

// SQLPendingStore is the MySQL fallback used when Redis is unavailable.
// Expired rows are ignored on read and removed by PurgeExpired.
type SQLPendingStore struct {
    db *sql.DB
}

func NewSQLPendingStore(db *sql.DB) *SQLPendingStore { return &SQLPendingStore{db: db} }

func (s *SQLPendingStore) Put(ctx context.Context, p model.PendingSignup) error {
    data, err := json.Marshal(p)
    if err != nil {
        return err
    }
    _, err = s.db.ExecContext(ctx,
        `INSERT INTO pending_signups (email, payload, expires_at, attempts) VALUES (?,?,?,0)
         ON DUPLICATE KEY UPDATE payload = VALUES(payload), expires_at = VALUES(expires_at), attempts = 0`,
        signupKey(p.Email), data, p.ExpiresAt.UTC())
    return err
}

func (s *SQLPendingStore) Get(ctx context.Context, email string) (model.PendingSignup, error) {
    var data []byte
    var exp time.Time
    var attempts int
    err := s.db.QueryRowContext(ctx,
        "SELECT payload, expires_at, attempts FROM pending_signups WHERE email = ?", signupKey(email)).Scan(&data, &exp, &attempts)
    if err != nil {
        return model.PendingSignup{}, notFound(err)
    }
    if !time.Now().Before(exp) {
        _ = s.Delete(ctx, email)
        return model.PendingSignup{}, ErrNotFound
    }
    var p model.PendingSignup
    if err := json.Unmarshal(data, &p); err != nil {
        return model.PendingSignup{}, err
    }
    p.Attempts = attempts
    return p, nil
}

// IncrAttempts bumps the counter and reads it back inside one transaction;
// the row lock taken by the UPDATE orders concurrent callers.
func (s *SQLPendingStore) IncrAttempts(ctx context.Context, email string) (n int, err error) {
    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil {
        return 0, err
    }
    defer func() {
        if err != nil {
            _ = tx.Rollback()
        }
    }()

    res, err := tx.ExecContext(ctx,
        "UPDATE pending_signups SET attempts = attempts + 1 WHERE email = ? AND expires_at > ?",
        signupKey(email), time.Now().UTC())
    if err != nil {
        return 0, err
    }
    rows, err := res.RowsAffected()
    if err != nil {
        return 0, err
    }
    if rows == 0 {
        err = ErrNotFound
        return 0, err
    }
    if err = tx.QueryRowContext(ctx,
        "SELECT attempts FROM pending_signups WHERE email = ?", signupKey(email)).Scan(&n); err != nil {
        return 0, err
    }
    if err = tx.Commit(); err != nil {
        return 0, err
    }
    return n, nil
}

func (s *SQLPendingStore) Delete(ctx context.Context, email string) error {
    _, err := s.db.ExecContext(ctx, "DELETE FROM pending_signups WHERE email = ?", signupKey(email))
    return err
}

// PurgeExpired deletes every expired row and returns the count.
func (s *SQLPendingStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
    res, err := s.db.ExecContext(ctx, "DELETE FROM pending_signups WHERE expires_at <= ?", now.UTC())
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

package queue

import (
    "context"
    "fmt"
    "os"
    "path/filepath"
    "sync"
    "time"

    "github.com/iliyamo/circulink/internal/model"
)

// FileSink appends audit entries to <dir>/audit.log, one line per entry.
// It is used when MongoDB is not configured.
type FileSink struct {
    dir string
    mu  sync.Mutex
}

func NewFileSink(dir string) *FileSink {
    if dir == "" {
        dir = "logs"
    }
    return &FileSink{dir: dir}
}

// Insert implements AuditSink.
func (s *FileSink) Insert(_ context.Context, e model.AuditEntry) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if err := os.MkdirAll(s.dir, 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(filepath.Join(s.dir, "audit.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    line := fmt.Sprintf("[%s] %s | id=%s | actor_id=%d | role=%s | target=%q | status=%d\n",
        e.At.UTC().Format(time.RFC3339), e.Action, e.ID, e.ActorID, e.ActorRole, e.Target, e.Status)
    if _, err := f.WriteString(line); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

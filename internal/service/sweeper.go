package service

import (
	"context"
	"fmt"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/iliyamo/circulink/internal/logging"
	"github.com/iliyamo/circulink/internal/metrics"
	"github.com/iliyamo/circulink/internal/supervisor"
)

// SweepResult reports how many reservations a sweep completed.
type SweepResult struct {
	CompletedCount int64 `json:"completed_count"`
}

// Sweeper completes reservations whose end time has passed.
type Sweeper struct {
	store ReservationStore
	now   func() time.Time
}

func NewSweeper(store ReservationStore, now func() time.Time) *Sweeper {
	if now == nil {
		now = time.Now
	}
	return &Sweeper{store: store, now: now}
}

// SweepExpired runs one conditional bulk update.  Running it twice in a
// row completes nothing the second time.
func (s *Sweeper) SweepExpired(ctx context.Context) (SweepResult, error) {
	n, err := s.store.CompleteExpired(ctx, s.now())
	metrics.RecordSweep(n, err)
	if err != nil {
		return SweepResult{}, fmt.Errorf("sweep expired reservations: %w", err)
	}
	if n > 0 {
		logging.Ctx(ctx).Info().Int64("completed", n).Msg("expired reservations completed")
	}
	return SweepResult{CompletedCount: n}, nil
}

// Service runs the sweep every interval under the supervisor.
func (s *Sweeper) Service(interval time.Duration) suture.Service {
	return supervisor.NewPeriodic("expiry-sweeper", interval, func(ctx context.Context) error {
		_, err := s.SweepExpired(ctx)
		return err
	})
}

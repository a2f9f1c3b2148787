package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/circulink/internal/logging"
	"github.com/iliyamo/circulink/internal/metrics"
	"github.com/iliyamo/circulink/internal/model"
)

// AuditPublisher is implemented by *queue.Publisher.
type AuditPublisher interface {
	PublishAudit(ctx context.Context, e model.AuditEntry) error
}

// AuditSink is implemented by *repository.AuditRepo and *queue.FileSink.
type AuditSink interface {
	Insert(ctx context.Context, e model.AuditEntry) error
}

// AuditReader is implemented by *repository.AuditRepo.
type AuditReader interface {
	ListByActor(ctx context.Context, actorID uint64, limit int64) ([]model.AuditEntry, error)
}

// AuditService records who changed what.  With a publisher configured
// entries go through the broker and a consumer stores them; when the
// broker is down or absent they are written to sink directly.
type AuditService struct {
	publisher AuditPublisher
	sink      AuditSink
	reader    AuditReader
}

// NewAuditService accepts nil for any collaborator it can live without.
func NewAuditService(publisher AuditPublisher, sink AuditSink, reader AuditReader) *AuditService {
	return &AuditService{publisher: publisher, sink: sink, reader: reader}
}

// Record never fails the request that triggered it; errors are logged.
func (s *AuditService) Record(ctx context.Context, e model.AuditEntry) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	if s.publisher != nil {
		err := s.publisher.PublishAudit(ctx, e)
		if err == nil {
			return
		}
		logging.Ctx(ctx).Warn().Err(err).Str("action", e.Action).Msg("audit publish failed, writing directly")
	}
	if s.sink == nil {
		return
	}
	if err := s.sink.Insert(ctx, e); err != nil {
		metrics.AuditEvents.WithLabelValues("failed").Inc()
		logging.Ctx(ctx).Error().Err(err).Str("action", e.Action).Msg("audit write failed")
		return
	}
	metrics.AuditEvents.WithLabelValues("stored").Inc()
}

// ListActivity returns the newest entries written by userID (admin only).
func (s *AuditService) ListActivity(ctx context.Context, actor Actor, userID uint64, limit int64) ([]model.AuditEntry, error) {
	if actor.Role != model.RoleAdmin {
		return nil, ErrForbidden
	}
	if s.reader == nil {
		return nil, ErrUnavailable
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	list, err := s.reader.ListByActor(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return list, nil
}

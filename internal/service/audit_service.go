package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/pkg/metrics"
)

type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}

// AuditEntry describes one audited action. Changes is stored as JSON.
type AuditEntry struct {
	Actor        Actor
	Action       domain.AuditAction
	ResourceType string
	ResourceID   string
	Changes      any
}

const (
	auditQueueSize    = 10_000
	auditWriteTimeout = 5 * time.Second
	auditDrainTimeout = 10 * time.Second
)

// AuditService persists audit rows either inside the caller's transaction
// (Record) or from a background queue (LogAsync) for reads and other
// non-mutating events.
type AuditService struct {
	repo    AuditRepository
	metrics *metrics.Collector
	log     *zap.Logger
	queue   chan *domain.AuditLog
	drained chan struct{}
}

func NewAuditService(repo AuditRepository, m *metrics.Collector, log *zap.Logger) *AuditService {
	s := &AuditService{
		repo:    repo,
		metrics: m,
		log:     log,
		queue:   make(chan *domain.AuditLog, auditQueueSize),
		drained: make(chan struct{}),
	}
	go s.drain()
	return s
}

// Record writes the entry with ctx, so inside a transaction it commits or
// rolls back together with the audited change.
func (s *AuditService) Record(ctx context.Context, entry AuditEntry) error {
	if err := s.repo.Create(ctx, s.row(entry)); err != nil {
		return fmt.Errorf("writing audit log: %w", err)
	}
	s.metrics.AuditEntriesTotal.Inc()
	return nil
}

// LogAsync queues the entry. A full queue drops it.
func (s *AuditService) LogAsync(_ context.Context, entry AuditEntry) {
	select {
	case s.queue <- s.row(entry):
	default:
		s.metrics.AuditBufferDropped.Inc()
		s.log.Warn("audit queue full, entry dropped",
			zap.String("action", string(entry.Action)),
			zap.String("resource_type", entry.ResourceType),
			zap.String("resource_id", entry.ResourceID),
		)
	}
}

// Shutdown stops accepting entries and waits for the queue to flush.
func (s *AuditService) Shutdown() {
	close(s.queue)
	select {
	case <-s.drained:
	case <-time.After(auditDrainTimeout):
		s.log.Warn("audit queue not drained before shutdown", zap.Int("pending", len(s.queue)))
	}
}

func (s *AuditService) drain() {
	defer close(s.drained)
	for row := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
		err := s.repo.Create(ctx, row)
		cancel()
		if err != nil {
			s.log.Error("persisting audit log",
				zap.String("resource_type", row.ResourceType),
				zap.Error(err),
			)
			continue
		}
		s.metrics.AuditEntriesTotal.Inc()
	}
}

func (s *AuditService) row(entry AuditEntry) *domain.AuditLog {
	al := &domain.AuditLog{
		UserRole:     entry.Actor.Role,
		IPAddress:    entry.Actor.IP,
		RequestID:    entry.Actor.RequestID,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		Changes:      "{}",
	}
	if entry.Actor.UserID != uuid.Nil {
		id := entry.Actor.UserID
		al.UserID = &id
	}
	if entry.Changes == nil {
		return al
	}
	b, err := json.Marshal(entry.Changes)
	if err != nil {
		s.log.Warn("audit changes not serialisable", zap.Error(err))
		return al
	}
	al.Changes = string(b)
	return al
}

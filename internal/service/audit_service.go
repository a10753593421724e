package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/roboclub-my/console-api/internal/models"
	"github.com/roboclub-my/console-api/pkg/config"
	"github.com/roboclub-my/console-api/pkg/jobs"
)

type auditLogStore interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuditService writes the audit trail asynchronously through a worker queue
// so lifecycle actions never block or fail on audit persistence.
type AuditService struct {
	repo   auditLogStore
	queue  *jobs.Queue[*models.AuditLog]
	logger *zap.Logger
}

// NewAuditService constructs the service and its backing queue.
func NewAuditService(repo auditLogStore, logger *zap.Logger, cfg config.AuditConfig) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuditService{repo: repo, logger: logger}
	s.queue = jobs.New[*models.AuditLog]("audit", s.handle, jobs.Options{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the queue workers.
func (s *AuditService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the queue workers.
func (s *AuditService) Stop() {
	s.queue.Stop()
}

// Record enqueues an audit entry. Failures are logged and swallowed; audit
// must never break the action it describes.
func (s *AuditService) Record(log *models.AuditLog) {
	if log == nil {
		return
	}
	if err := s.queue.Enqueue(log); err != nil {
		s.logger.Warn("audit enqueue failed", zap.String("action", log.Action), zap.Error(err))
	}
}

func (s *AuditService) handle(ctx context.Context, log *models.AuditLog) error {
	return s.repo.CreateAuditLog(ctx, log)
}

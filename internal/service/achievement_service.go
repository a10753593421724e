package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/roboclub-my/console-api/internal/assignment"
	"github.com/roboclub-my/console-api/internal/models"
	"github.com/roboclub-my/console-api/internal/repository"
	appErrors "github.com/roboclub-my/console-api/pkg/errors"
)

type achievementRepository interface {
	ListAll(ctx context.Context) ([]models.Achievement, error)
	Create(ctx context.Context, achievement *models.Achievement) error
	Update(ctx context.Context, achievement *models.Achievement) error
	Delete(ctx context.Context, id string) error
	ListAssigned(ctx context.Context, studentID string) ([]string, error)
	ApplyAssignmentDiff(ctx context.Context, studentID string, toAdd, toRemove []string) error
}

// CatalogueCache is the cache surface used for the small read-heavy
// catalogues. A nil implementation disables caching.
type CatalogueCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string)
}

// AchievementRequest holds the payload for creating or editing a badge.
type AchievementRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
}

// AssignRequest carries the full desired set of achievement IDs for a
// student; the service diffs it against the stored baseline.
type AssignRequest struct {
	AchievementIDs []string `json:"achievementIds"`
}

// AchievementService manages the badge catalogue and per-student
// assignments. The catalogue is small and read-heavy, so it sits behind the
// redis cache with invalidation on every write.
type AchievementService struct {
	repo      achievementRepository
	cache     CatalogueCache
	validator *validator.Validate
	logger    *zap.Logger
	audit     AuditRecorder
	metrics   *MetricsService
	cacheTTL  time.Duration
}

// NewAchievementService constructs the achievement service.
func NewAchievementService(repo achievementRepository, cache CatalogueCache, validate *validator.Validate, logger *zap.Logger, audit AuditRecorder, metrics *MetricsService, cacheTTL time.Duration) *AchievementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &AchievementService{
		repo:      repo,
		cache:     cache,
		validator: validate,
		logger:    logger,
		audit:     audit,
		metrics:   metrics,
		cacheTTL:  cacheTTL,
	}
}

// List returns the full badge catalogue, cache-first.
func (s *AchievementService) List(ctx context.Context) ([]models.Achievement, error) {
	if s.cache != nil {
		var cached []models.Achievement
		if err := s.cache.Get(ctx, repository.CacheKeyAchievements, &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			return cached, nil
		}
		s.metrics.RecordCacheOperation(false)
	}

	achievements, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list achievements")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, repository.CacheKeyAchievements, achievements, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache achievements", zap.Error(err))
		}
	}
	return achievements, nil
}

// Create adds a badge to the catalogue.
func (s *AchievementService) Create(ctx context.Context, actor models.UserInfo, req AchievementRequest) (*models.Achievement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid achievement payload")
	}

	achievement := &models.Achievement{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, achievement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create achievement")
	}
	s.invalidate(models.AuditActionCatalogueEdit, actor, achievement.ID)
	return achievement, nil
}

// Update edits a badge's title or description.
func (s *AchievementService) Update(ctx context.Context, actor models.UserInfo, id string, req AchievementRequest) (*models.Achievement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid achievement payload")
	}

	achievement := &models.Achievement{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Update(ctx, achievement); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "achievement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update achievement")
	}
	s.invalidate(models.AuditActionCatalogueEdit, actor, id)
	return achievement, nil
}

// Delete removes a badge and its assignments.
func (s *AchievementService) Delete(ctx context.Context, actor models.UserInfo, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "achievement not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete achievement")
	}
	s.invalidate(models.AuditActionCatalogueEdit, actor, id)
	return nil
}

// Assigned returns the achievement IDs currently held by a student.
func (s *AchievementService) Assigned(ctx context.Context, studentID string) ([]string, error) {
	assigned, err := s.repo.ListAssigned(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assigned achievements")
	}
	return assigned, nil
}

// Assign reconciles a student's assignments against the requested full set.
// The request always carries the complete desired membership, never a delta;
// the stored baseline decides what actually changes.
func (s *AchievementService) Assign(ctx context.Context, actor models.UserInfo, studentID string, req AssignRequest) error {
	baseline, err := s.repo.ListAssigned(ctx, studentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment baseline")
	}

	toggle := assignment.New(baseline)
	toggle.SetMembers(req.AchievementIDs)
	if !toggle.Dirty() {
		return nil
	}

	toAdd, toRemove := toggle.Diff()
	if err := s.repo.ApplyAssignmentDiff(ctx, studentID, toAdd, toRemove); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply assignment changes")
	}

	if s.audit != nil {
		s.audit.Record(&models.AuditLog{
			UserID:     &actor.ID,
			Action:     models.AuditActionAssign,
			Resource:   "student",
			ResourceID: &studentID,
		})
	}
	return nil
}

func (s *AchievementService) invalidate(action string, actor models.UserInfo, id string) {
	if s.cache != nil {
		s.cache.Delete(context.Background(), repository.CacheKeyAchievements)
	}
	if s.audit != nil {
		s.audit.Record(&models.AuditLog{
			UserID:     &actor.ID,
			Action:     action,
			Resource:   "achievement",
			ResourceID: &id,
		})
	}
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/roboclub-my/console-api/internal/models"
	"github.com/roboclub-my/console-api/internal/repository"
	appErrors "github.com/roboclub-my/console-api/pkg/errors"
)

type levelRepository interface {
	ListAll(ctx context.Context) ([]models.Level, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, level *models.Level) error
	Delete(ctx context.Context, id string) error
}

// LevelRequest holds the payload for creating a level.
type LevelRequest struct {
	Name string `json:"name" validate:"required"`
}

// LevelService manages the proficiency tier catalogue.
type LevelService struct {
	repo      levelRepository
	cache     CatalogueCache
	validator *validator.Validate
	logger    *zap.Logger
	audit     AuditRecorder
	cacheTTL  time.Duration
}

// NewLevelService constructs the level service.
func NewLevelService(repo levelRepository, cache CatalogueCache, validate *validator.Validate, logger *zap.Logger, audit AuditRecorder, cacheTTL time.Duration) *LevelService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &LevelService{repo: repo, cache: cache, validator: validate, logger: logger, audit: audit, cacheTTL: cacheTTL}
}

// List returns all levels, cache-first.
func (s *LevelService) List(ctx context.Context) ([]models.Level, error) {
	if s.cache != nil {
		var cached []models.Level
		if err := s.cache.Get(ctx, repository.CacheKeyLevels, &cached); err == nil {
			return cached, nil
		}
	}

	levels, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list levels")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, repository.CacheKeyLevels, levels, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache levels", zap.Error(err))
		}
	}
	return levels, nil
}

// Create adds a level, rejecting duplicate names case-insensitively.
func (s *LevelService) Create(ctx context.Context, actor models.UserInfo, req LevelRequest) (*models.Level, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid level payload")
	}
	name := strings.TrimSpace(req.Name)

	exists, err := s.repo.ExistsByName(ctx, name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check level name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "level with this name already exists")
	}

	level := &models.Level{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, level); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create level")
	}
	s.invalidate(actor, level.ID)
	return level, nil
}

// Delete removes a level.
func (s *LevelService) Delete(ctx context.Context, actor models.UserInfo, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "level not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete level")
	}
	s.invalidate(actor, id)
	return nil
}

func (s *LevelService) invalidate(actor models.UserInfo, id string) {
	if s.cache != nil {
		s.cache.Delete(context.Background(), repository.CacheKeyLevels)
	}
	if s.audit != nil {
		s.audit.Record(&models.AuditLog{
			UserID:     &actor.ID,
			Action:     models.AuditActionCatalogueEdit,
			Resource:   "level",
			ResourceID: &id,
		})
	}
}

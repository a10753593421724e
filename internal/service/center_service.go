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

	"github.com/roboclub-my/console-api/internal/collection"
	"github.com/roboclub-my/console-api/internal/lifecycle"
	"github.com/roboclub-my/console-api/internal/models"
	appErrors "github.com/roboclub-my/console-api/pkg/errors"
)

type centerRepository interface {
	ListAll(ctx context.Context) ([]models.Center, error)
	FindByID(ctx context.Context, id string) (*models.Center, error)
	Create(ctx context.Context, center *models.Center) error
	ApplyPatch(ctx context.Context, id string, patch map[string]interface{}) error
	UpdateStatus(ctx context.Context, id, status, reviewerID string) error
}

// CreateCenterRequest holds the payload for registering a centre.
type CreateCenterRequest struct {
	Name     string `json:"centerName" validate:"required"`
	Location string `json:"centerLocation" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
}

// CenterService manages centre registrations. The centre table is small, so
// listing loads the full set and filters it in memory.
type CenterService struct {
	repo      centerRepository
	validator *validator.Validate
	logger    *zap.Logger
	audit     AuditRecorder
	metrics   *MetricsService
	machine   *lifecycle.Machine
	resolver  *lifecycle.Resolver
}

// NewCenterService constructs the centre service.
func NewCenterService(repo centerRepository, validate *validator.Validate, logger *zap.Logger, audit AuditRecorder, metrics *MetricsService) *CenterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	machine := lifecycle.CenterMachine()
	return &CenterService{
		repo:      repo,
		validator: validate,
		logger:    logger,
		audit:     audit,
		metrics:   metrics,
		machine:   machine,
		resolver:  lifecycle.NewResolver(machine),
	}
}

// centerField projects filterable and sortable fields out of a centre row.
func centerField(c models.Center, field string) string {
	switch field {
	case "name":
		return c.Name
	case "location":
		return c.Location
	case "email":
		return c.Email
	case "status":
		return c.Status
	}
	return ""
}

// List serves one page of the centre table, filtered and sorted in memory.
func (s *CenterService) List(ctx context.Context, q collection.Query) ([]models.Center, *models.Pagination, error) {
	centers, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list centres")
	}

	view := collection.NewLocal[models.Center](centers, centerField, q.PageSize)
	for field, p := range q.Filters {
		if err := view.ApplyFilter(ctx, field, p); err != nil {
			return nil, nil, err
		}
	}
	if len(q.Sort) > 0 {
		if err := view.ApplySort(ctx, q.Sort[0].Field, q.Sort[0].Direction); err != nil {
			return nil, nil, err
		}
	}
	if q.PageIndex > 0 {
		if err := view.GotoPage(ctx, q.PageIndex); err != nil {
			return nil, nil, err
		}
	}

	page := view.CurrentPage()
	pagination := &models.Pagination{
		Page:       page.PageIndex + 1,
		PageSize:   q.PageSize,
		TotalCount: page.TotalRecords,
		PageCount:  page.PageCount,
	}
	return page.Rows, pagination, nil
}

// Get returns one centre.
func (s *CenterService) Get(ctx context.Context, id string) (*models.Center, error) {
	center, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "centre not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load centre")
	}
	return center, nil
}

// Create registers a centre in the pending review state.
func (s *CenterService) Create(ctx context.Context, req CreateCenterRequest) (*models.Center, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid centre payload")
	}

	center := &models.Center{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(req.Name),
		Location:  strings.TrimSpace(req.Location),
		Email:     req.Email,
		Status:    string(lifecycle.StatusPending),
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, center); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create centre")
	}
	return center, nil
}

// Approve moves a pending centre to approved.
func (s *CenterService) Approve(ctx context.Context, actor lifecycle.Actor, id string) error {
	editor := s.newEditor(actor)
	if err := editor.Open(ctx, id); err != nil {
		return err
	}
	defer editor.Close()

	if editor.Status() == lifecycle.StatusApproved {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "centre is already approved")
	}
	err := editor.Submit(ctx)
	s.metrics.ObserveTransition("center", string(lifecycle.ActionApprove), err)
	if err != nil {
		return err
	}

	if s.audit != nil {
		s.audit.Record(&models.AuditLog{
			UserID:     &actor.UserID,
			Action:     models.AuditActionApprove,
			Resource:   "center",
			ResourceID: &id,
		})
	}
	return nil
}

// Update applies a post-approval edit to a centre. Edit mode is required,
// matching the student flow.
func (s *CenterService) Update(ctx context.Context, actor lifecycle.Actor, id string, fields lifecycle.FieldMap, editMode bool) error {
	if !editMode {
		return appErrors.Clone(appErrors.ErrForbidden, "approved records are read-only outside edit mode")
	}

	editor := s.newEditor(actor)
	if err := editor.Open(ctx, id); err != nil {
		return err
	}
	defer editor.Close()

	if err := editor.BeginEdit(); err != nil {
		return err
	}
	for field, value := range fields {
		if err := editor.SetField(field, value); err != nil {
			return err
		}
	}
	patch := editor.Patch()
	if err := editor.Submit(ctx); err != nil {
		s.metrics.ObserveTransition("center", string(lifecycle.ActionUpdate), err)
		return err
	}
	if len(patch) == 0 {
		return nil
	}
	s.metrics.ObserveTransition("center", string(lifecycle.ActionUpdate), nil)
	s.metrics.ObservePatchSize(len(patch))

	if s.audit != nil {
		s.audit.Record(&models.AuditLog{
			UserID:     &actor.UserID,
			Action:     models.AuditActionUpdate,
			Resource:   "center",
			ResourceID: &id,
		})
	}
	return nil
}

func (s *CenterService) newEditor(actor lifecycle.Actor) *lifecycle.Editor {
	store := &centerLifecycleStore{repo: s.repo, machine: s.machine, reviewerID: actor.UserID}
	return lifecycle.NewEditor(s.machine, s.resolver, store, store, actor)
}

// centerLifecycleStore adapts the repository to the editor contracts.
type centerLifecycleStore struct {
	repo       centerRepository
	machine    *lifecycle.Machine
	reviewerID string
}

// FetchRecord implements lifecycle.Loader.
func (a *centerLifecycleStore) FetchRecord(ctx context.Context, id string) (*lifecycle.Record, error) {
	center, err := a.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "centre not found")
		}
		return nil, err
	}
	return &lifecycle.Record{
		ID:     center.ID,
		Status: lifecycle.Status(center.Status),
		Fields: centerFieldMap(center),
	}, nil
}

// DispatchAction implements lifecycle.Dispatcher.
func (a *centerLifecycleStore) DispatchAction(ctx context.Context, id string, action lifecycle.Action, patch lifecycle.FieldMap) error {
	if action == lifecycle.ActionUpdate {
		return a.repo.ApplyPatch(ctx, id, patch)
	}

	center, err := a.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	next, err := a.machine.NextStatus(lifecycle.Status(center.Status), action)
	if err != nil {
		return err
	}
	if len(patch) > 0 {
		if err := a.repo.ApplyPatch(ctx, id, patch); err != nil {
			return err
		}
	}
	return a.repo.UpdateStatus(ctx, id, string(next), a.reviewerID)
}

func centerFieldMap(c *models.Center) lifecycle.FieldMap {
	return lifecycle.FieldMap{
		"id":             c.ID,
		"center":         c.ID,
		"status":         c.Status,
		"centerName":     c.Name,
		"centerLocation": c.Location,
		"email":          c.Email,
	}
}

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/roboclub-my/console-api/internal/collection"
	"github.com/roboclub-my/console-api/internal/lifecycle"
	"github.com/roboclub-my/console-api/internal/models"
	appErrors "github.com/roboclub-my/console-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentRow, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	ApplyPatch(ctx context.Context, id string, patch map[string]interface{}) error
	UpdateStatus(ctx context.Context, id, status, reviewerID string) error
	Delete(ctx context.Context, id string) error
}

// AuditRecorder receives audit entries without blocking the caller.
type AuditRecorder interface {
	Record(log *models.AuditLog)
}

// CreateStudentRequest holds the registration payload for a new student.
type CreateStudentRequest struct {
	Email         string `json:"email" validate:"required,email"`
	CenterID      string `json:"centerId" validate:"required"`
	FullName      string `json:"fullName" validate:"required"`
	DOB           string `json:"dob" validate:"required"`
	Gender        string `json:"gender" validate:"required"`
	Nationality   string `json:"nationality"`
	NRIC          string `json:"nric"`
	Passport      string `json:"passport"`
	Contact       string `json:"contact"`
	Race          string `json:"race"`
	MOEEmail      string `json:"moeEmail" validate:"omitempty,email"`
	PersonalEmail string `json:"personalEmail" validate:"omitempty,email"`
	School        string `json:"school"`
	ParentName    string `json:"parentName"`
	Relationship  string `json:"relationship"`
	ParentEmail   string `json:"parentEmail" validate:"omitempty,email"`
	ParentContact string `json:"parentContact"`
	ShirtSize     string `json:"size"`
	Level         string `json:"level"`
	RoboticID     string `json:"roboticId"`
	JoinedDate    string `json:"joinedDate"`
}

// StudentDetail is the full record together with the per-field and per-action
// permissions computed for the requesting actor.
type StudentDetail struct {
	Student        *models.Student `json:"student"`
	EditableFields []string        `json:"editableFields"`
	Actions        []string        `json:"actions"`
}

// StudentService drives the student review lifecycle: listing, detail with
// permissions, approve/reject with corrections and post-approval editing.
type StudentService struct {
	repo      studentRepository
	validator *validator.Validate
	logger    *zap.Logger
	audit     AuditRecorder
	metrics   *MetricsService
	machine   *lifecycle.Machine
	resolver  *lifecycle.Resolver
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, validate *validator.Validate, logger *zap.Logger, audit AuditRecorder, metrics *MetricsService) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	machine := lifecycle.StudentMachine()
	return &StudentService{
		repo:      repo,
		validator: validate,
		logger:    logger,
		audit:     audit,
		metrics:   metrics,
		machine:   machine,
		resolver:  lifecycle.NewResolver(machine),
	}
}

// studentFetcher maps a collection query onto the repository listing.
type studentFetcher struct {
	repo studentRepository
}

// FetchPage implements collection.Fetcher.
func (f studentFetcher) FetchPage(ctx context.Context, q collection.Query) ([]models.StudentRow, int, error) {
	filter := models.StudentFilter{
		Page:     q.PageIndex + 1,
		PageSize: q.PageSize,
	}
	if p, ok := q.Filters["search"]; ok && len(p.Values) == 1 {
		filter.Search = p.Values[0]
	}
	if p, ok := q.Filters["center"]; ok && len(p.Values) == 1 {
		filter.CenterID = p.Values[0]
	}
	if p, ok := q.Filters["status"]; ok {
		filter.Statuses = p.Values
	}
	if len(q.Sort) > 0 {
		filter.SortBy = q.Sort[0].Field
		filter.SortOrder = string(q.Sort[0].Direction)
	}
	return f.repo.List(ctx, filter)
}

// List materialises one page of the student table. Centre operators are
// always scoped to their own centre regardless of the requested filters.
func (s *StudentService) List(ctx context.Context, actor lifecycle.Actor, q collection.Query) ([]models.StudentRow, *models.Pagination, error) {
	if actor.Role == models.RoleCenter {
		if actor.CenterID == nil {
			return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "centre operator has no centre")
		}
		if q.Filters == nil {
			q.Filters = map[string]collection.Predicate{}
		}
		q.Filters["center"] = collection.Exact(*actor.CenterID)
	}

	view := collection.NewRemoteAt[models.StudentRow](studentFetcher{repo: s.repo}, q)
	if err := view.Refresh(ctx); err != nil {
		return nil, nil, err
	}

	page := view.CurrentPage()
	// The seeded index is only validated once the fetch reports the real
	// total. Reject pages past the end instead of serving them empty.
	if page.TotalRecords > 0 && page.PageIndex >= page.PageCount {
		return nil, nil, appErrors.ErrPageOutOfRange
	}
	pagination := &models.Pagination{
		Page:       page.PageIndex + 1,
		PageSize:   q.PageSize,
		TotalCount: page.TotalRecords,
		PageCount:  page.PageCount,
	}
	return page.Rows, pagination, nil
}

// Get returns the full record plus the fields and actions the actor may use.
func (s *StudentService) Get(ctx context.Context, actor lifecycle.Actor, id string) (*StudentDetail, error) {
	student, err := s.findScoped(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	status := lifecycle.Status(student.Status)
	editable := make([]string, 0)
	for field := range studentFieldMap(student) {
		if s.resolver.FieldEditable(actor.Role, status, false, field) {
			editable = append(editable, field)
		}
	}
	sort.Strings(editable)

	actions := make([]string, 0)
	for _, action := range []lifecycle.Action{lifecycle.ActionApprove, lifecycle.ActionReject} {
		if s.resolver.ActionAllowed(actor.Role, status, false, action) {
			actions = append(actions, string(action))
		}
	}
	if s.resolver.ActionAllowed(actor.Role, status, true, lifecycle.ActionUpdate) {
		actions = append(actions, string(lifecycle.ActionUpdate))
	}

	return &StudentDetail{Student: student, EditableFields: editable, Actions: actions}, nil
}

// Create registers a new student. Centre-submitted registrations enter the
// centre review stage; admin-created ones skip straight to admin review.
func (s *StudentService) Create(ctx context.Context, actor lifecycle.Actor, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if actor.Role == models.RoleCenter {
		if actor.CenterID == nil || *actor.CenterID != req.CenterID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "centre operators may only register into their own centre")
		}
	}

	student := &models.Student{
		ID:            uuid.NewString(),
		Email:         req.Email,
		Status:        string(lifecycle.InitialStudentStatus(actor.Role == models.RoleCenter)),
		CenterID:      req.CenterID,
		FullName:      req.FullName,
		DOB:           req.DOB,
		Gender:        req.Gender,
		Nationality:   req.Nationality,
		NRIC:          req.NRIC,
		Passport:      req.Passport,
		Contact:       req.Contact,
		Race:          req.Race,
		MOEEmail:      req.MOEEmail,
		PersonalEmail: req.PersonalEmail,
		School:        req.School,
		ParentName:    req.ParentName,
		Relationship:  req.Relationship,
		ParentEmail:   req.ParentEmail,
		ParentContact: req.ParentContact,
		ShirtSize:     req.ShirtSize,
		Level:         req.Level,
		RoboticID:     req.RoboticID,
		JoinedDate:    req.JoinedDate,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return student, nil
}

// Approve advances the record to the next review stage, applying any
// corrections staged by the reviewer first.
func (s *StudentService) Approve(ctx context.Context, actor lifecycle.Actor, id string, corrections lifecycle.FieldMap) error {
	if _, err := s.findScoped(ctx, actor, id); err != nil {
		return err
	}

	editor := s.newEditor(actor)
	if err := editor.Open(ctx, id); err != nil {
		return err
	}
	defer editor.Close()

	if editor.Status() == lifecycle.StatusApproved {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "student is already approved")
	}
	for field, value := range corrections {
		if err := editor.SetField(field, value); err != nil {
			return err
		}
	}
	patch := editor.Patch()
	err := editor.Submit(ctx)
	s.metrics.ObserveTransition("student", string(lifecycle.ActionApprove), err)
	if err != nil {
		return err
	}
	s.metrics.ObservePatchSize(len(patch))

	s.recordAudit(actor, models.AuditActionApprove, id, patch)
	return nil
}

// Reject moves the record to the terminal rejected state.
func (s *StudentService) Reject(ctx context.Context, actor lifecycle.Actor, id string) error {
	if _, err := s.findScoped(ctx, actor, id); err != nil {
		return err
	}

	editor := s.newEditor(actor)
	if err := editor.Open(ctx, id); err != nil {
		return err
	}
	defer editor.Close()

	err := editor.Reject(ctx)
	s.metrics.ObserveTransition("student", string(lifecycle.ActionReject), err)
	if err != nil {
		return err
	}

	s.recordAudit(actor, models.AuditActionReject, id, nil)
	return nil
}

// Update applies a post-approval field edit. The caller must have explicitly
// entered edit mode; without it the approved record stays read-only.
func (s *StudentService) Update(ctx context.Context, actor lifecycle.Actor, id string, fields lifecycle.FieldMap, editMode bool) error {
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
		s.metrics.ObserveTransition("student", string(lifecycle.ActionUpdate), err)
		return err
	}
	if len(patch) == 0 {
		// Nothing changed; the session cancelled itself.
		return nil
	}
	s.metrics.ObserveTransition("student", string(lifecycle.ActionUpdate), nil)
	s.metrics.ObservePatchSize(len(patch))

	s.recordAudit(actor, models.AuditActionUpdate, id, patch)
	return nil
}

// Delete removes a student registration. Admin only.
func (s *StudentService) Delete(ctx context.Context, actor lifecycle.Actor, id string) error {
	if actor.Role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only admins may delete students")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	return nil
}

func (s *StudentService) newEditor(actor lifecycle.Actor) *lifecycle.Editor {
	store := &studentLifecycleStore{repo: s.repo, machine: s.machine, reviewerID: actor.UserID}
	return lifecycle.NewEditor(s.machine, s.resolver, store, store, actor)
}

// findScoped loads the student and enforces centre visibility.
func (s *StudentService) findScoped(ctx context.Context, actor lifecycle.Actor, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if actor.Role == models.RoleCenter {
		if actor.CenterID == nil || *actor.CenterID != student.CenterID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "student belongs to another centre")
		}
	}
	return student, nil
}

func (s *StudentService) recordAudit(actor lifecycle.Actor, action, id string, patch lifecycle.FieldMap) {
	if s.audit == nil {
		return
	}
	var newValues []byte
	if len(patch) > 0 {
		if payload, err := json.Marshal(patch); err == nil {
			newValues = payload
		}
	}
	s.audit.Record(&models.AuditLog{
		UserID:     &actor.UserID,
		Action:     action,
		Resource:   "student",
		ResourceID: &id,
		NewValues:  newValues,
	})
}

// studentLifecycleStore adapts the repository to the editor's loader and
// dispatcher contracts.
type studentLifecycleStore struct {
	repo       studentRepository
	machine    *lifecycle.Machine
	reviewerID string
}

// FetchRecord implements lifecycle.Loader.
func (a *studentLifecycleStore) FetchRecord(ctx context.Context, id string) (*lifecycle.Record, error) {
	student, err := a.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, err
	}
	return &lifecycle.Record{
		ID:     student.ID,
		Status: lifecycle.Status(student.Status),
		Fields: studentFieldMap(student),
	}, nil
}

// DispatchAction implements lifecycle.Dispatcher. Approve and reject re-read
// the stored status so a concurrent transition fails instead of being
// clobbered.
func (a *studentLifecycleStore) DispatchAction(ctx context.Context, id string, action lifecycle.Action, patch lifecycle.FieldMap) error {
	if action == lifecycle.ActionUpdate {
		return a.repo.ApplyPatch(ctx, id, patch)
	}

	student, err := a.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	next, err := a.machine.NextStatus(lifecycle.Status(student.Status), action)
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

// studentFieldMap flattens the record into the editor's form snapshot. The
// identity keys are present so permission checks can refuse writes to them.
func studentFieldMap(st *models.Student) lifecycle.FieldMap {
	return lifecycle.FieldMap{
		"id":            st.ID,
		"center":        st.CenterID,
		"status":        st.Status,
		"email":         st.Email,
		"fullName":      st.FullName,
		"dob":           st.DOB,
		"gender":        st.Gender,
		"nationality":   st.Nationality,
		"nric":          st.NRIC,
		"passport":      st.Passport,
		"contact":       st.Contact,
		"race":          st.Race,
		"moeEmail":      st.MOEEmail,
		"personalEmail": st.PersonalEmail,
		"school":        st.School,
		"parentName":    st.ParentName,
		"relationship":  st.Relationship,
		"parentEmail":   st.ParentEmail,
		"parentContact": st.ParentContact,
		"size":          st.ShirtSize,
		"level":         st.Level,
		"roboticId":     st.RoboticID,
		"joinedDate":    st.JoinedDate,
	}
}

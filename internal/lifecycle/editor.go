package lifecycle

import (
	"context"
	"sync"

	"github.com/roboclub-my/console-api/internal/models"
	appErrors "github.com/roboclub-my/console-api/pkg/errors"
)

// SessionState tracks where an editing session is in its own lifecycle.
type SessionState string

const (
	SessionViewing    SessionState = "viewing"
	SessionEditing    SessionState = "editing"
	SessionSubmitting SessionState = "submitting"
	SessionClosed     SessionState = "closed"
)

// Record is the editor's working view of a reviewable record.
type Record struct {
	ID     string
	Status Status
	Fields FieldMap
}

// Loader fetches the full record when a session opens.
type Loader interface {
	FetchRecord(ctx context.Context, id string) (*Record, error)
}

// Dispatcher executes a lifecycle action upstream. A nil or empty patch is
// legal for approve and reject.
type Dispatcher interface {
	DispatchAction(ctx context.Context, id string, action Action, patch FieldMap) error
}

// Actor identifies the operator driving the session.
type Actor struct {
	UserID   string
	Role     models.UserRole
	CenterID *string
}

// Editor orchestrates one record editing session: it loads the record,
// gates edits through the permission resolver, diffs the form on submit and
// dispatches the lifecycle action matching the record's status. A session
// owns its snapshots exclusively; nothing is shared across sessions.
type Editor struct {
	machine    *Machine
	resolver   *Resolver
	loader     Loader
	dispatcher Dispatcher
	actor      Actor

	mu       sync.Mutex
	state    SessionState
	editMode bool
	record   *Record
	original FieldMap
	edited   FieldMap
	cancel   context.CancelFunc
}

// NewEditor builds a session for the given actor. Open must be called before
// any other method.
func NewEditor(machine *Machine, resolver *Resolver, loader Loader, dispatcher Dispatcher, actor Actor) *Editor {
	return &Editor{
		machine:    machine,
		resolver:   resolver,
		loader:     loader,
		dispatcher: dispatcher,
		actor:      actor,
		state:      SessionClosed,
	}
}

// Open fetches the record and initialises the original snapshot.
func (e *Editor) Open(ctx context.Context, id string) error {
	record, err := e.loader.FetchRecord(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load record")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.record = record
	e.original = record.Fields.Clone()
	e.edited = record.Fields.Clone()
	e.state = SessionViewing
	e.editMode = false
	return nil
}

// State returns the current session state.
func (e *Editor) State() SessionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Status returns the record's current lifecycle status.
func (e *Editor) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.record == nil {
		return ""
	}
	return e.record.Status
}

// FieldEditable reports whether the session actor may write the named field
// right now.
func (e *Editor) FieldEditable(field string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.record == nil || e.state == SessionClosed || e.state == SessionSubmitting {
		return false
	}
	return e.resolver.FieldEditable(e.actor.Role, e.record.Status, e.editMode, field)
}

// BeginEdit toggles admin edit mode on an approved record.
func (e *Editor) BeginEdit() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.record == nil || e.state != SessionViewing {
		return appErrors.Clone(appErrors.ErrConflict, "session is not viewing a record")
	}
	if e.actor.Role != models.RoleAdmin || e.record.Status != StatusApproved {
		return appErrors.Clone(appErrors.ErrForbidden, "edit mode is limited to admins on approved records")
	}
	e.state = SessionEditing
	e.editMode = true
	return nil
}

// CancelEdit discards pending edits and leaves edit mode.
func (e *Editor) CancelEdit() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != SessionEditing {
		return
	}
	e.edited = e.original.Clone()
	e.editMode = false
	e.state = SessionViewing
}

// SetField stages a new value for a field, subject to the permission rules.
func (e *Editor) SetField(field string, value interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.record == nil || e.state == SessionClosed || e.state == SessionSubmitting {
		return appErrors.Clone(appErrors.ErrConflict, "session does not accept edits")
	}
	if !e.resolver.FieldEditable(e.actor.Role, e.record.Status, e.editMode, field) {
		return appErrors.Clone(appErrors.ErrForbidden, "field is not editable in the current state")
	}
	e.edited[field] = value
	return nil
}

// Patch returns the current minimal diff between the original snapshot and
// the staged edits.
func (e *Editor) Patch() FieldMap {
	e.mu.Lock()
	defer e.mu.Unlock()
	return BuildPatch(e.original, e.edited)
}

// Submit diffs the form and dispatches the action matching the record's
// status: update for an approved record in edit mode, approve with
// corrections otherwise. An empty patch on an approved record is treated as
// cancel and dispatches nothing. Only one submit may be in flight; a failed
// dispatch leaves the session state untouched.
func (e *Editor) Submit(ctx context.Context) error {
	e.mu.Lock()
	if e.record == nil || e.state == SessionClosed {
		e.mu.Unlock()
		return appErrors.Clone(appErrors.ErrConflict, "session is closed")
	}
	if e.state == SessionSubmitting {
		e.mu.Unlock()
		return appErrors.ErrSubmitInFlight
	}

	patch := BuildPatch(e.original, e.edited)
	status := e.record.Status

	action := ActionApprove
	if status == StatusApproved {
		action = ActionUpdate
	}

	if action == ActionUpdate {
		if len(patch) == 0 {
			// No-op edit: leave edit mode without touching the store.
			e.edited = e.original.Clone()
			e.editMode = false
			e.state = SessionViewing
			e.mu.Unlock()
			return nil
		}
		if !e.resolver.ActionAllowed(e.actor.Role, status, e.editMode, ActionUpdate) {
			e.mu.Unlock()
			return appErrors.Clone(appErrors.ErrForbidden, "update is not allowed in the current state")
		}
	} else {
		if !e.resolver.ActionAllowed(e.actor.Role, status, e.editMode, ActionApprove) {
			e.mu.Unlock()
			return appErrors.ErrInvalidTransition
		}
	}

	previous := e.state
	e.state = SessionSubmitting
	dispatchCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	id := e.record.ID
	e.mu.Unlock()

	err := e.dispatcher.DispatchAction(dispatchCtx, id, action, patch)
	cancel()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == SessionClosed {
		// Closed mid-flight: the response is discarded either way.
		return nil
	}
	if err != nil {
		e.state = previous
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "lifecycle dispatch failed")
	}

	if action == ActionApprove {
		next, nerr := e.machine.NextStatus(status, ActionApprove)
		if nerr != nil {
			return nerr
		}
		e.record.Status = next
		e.state = SessionClosed
	} else {
		e.state = SessionViewing
	}
	e.original = e.edited.Clone()
	e.editMode = false
	return nil
}

// Reject dispatches the reject action. No payload accompanies a rejection.
func (e *Editor) Reject(ctx context.Context) error {
	e.mu.Lock()
	if e.record == nil || e.state == SessionClosed {
		e.mu.Unlock()
		return appErrors.Clone(appErrors.ErrConflict, "session is closed")
	}
	if e.state == SessionSubmitting {
		e.mu.Unlock()
		return appErrors.ErrSubmitInFlight
	}
	status := e.record.Status
	if !e.resolver.ActionAllowed(e.actor.Role, status, e.editMode, ActionReject) {
		e.mu.Unlock()
		return appErrors.ErrInvalidTransition
	}

	previous := e.state
	e.state = SessionSubmitting
	dispatchCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	id := e.record.ID
	e.mu.Unlock()

	err := e.dispatcher.DispatchAction(dispatchCtx, id, ActionReject, nil)
	cancel()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == SessionClosed {
		return nil
	}
	if err != nil {
		e.state = previous
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "lifecycle dispatch failed")
	}

	next, nerr := e.machine.NextStatus(status, ActionReject)
	if nerr != nil {
		return nerr
	}
	e.record.Status = next
	e.state = SessionClosed
	return nil
}

// Close abandons the session. Any in-flight dispatch is cancelled and its
// eventual outcome discarded.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
	e.state = SessionClosed
	e.editMode = false
}

package lifecycle

import "github.com/roboclub-my/console-api/internal/models"

// Immutable field names. Identity and computed fields stay read-only in every
// state, including admin edit mode.
var immutableFields = map[string]struct{}{
	"id":     {},
	"center": {},
	"status": {},
}

// Resolver derives field- and action-level permissions from the actor role,
// the record status and the edit-mode toggle. Every rule defaults to deny.
type Resolver struct {
	machine *Machine
}

// NewResolver builds a resolver over the given transition machine.
func NewResolver(machine *Machine) *Resolver {
	return &Resolver{machine: machine}
}

// FieldEditable reports whether the named field may be written by the actor in
// the record's current state.
func (r *Resolver) FieldEditable(role models.UserRole, status Status, editMode bool, field string) bool {
	if _, immutable := immutableFields[field]; immutable {
		return false
	}
	switch {
	case role == models.RoleCenter && status == StatusPendingCenter:
		return true
	case role == models.RoleAdmin && (status == StatusPendingAdmin || status == StatusPending):
		return true
	case role == models.RoleAdmin && status == StatusApproved && editMode:
		return true
	}
	return false
}

// ActionAllowed reports whether the actor may dispatch the lifecycle action
// from the record's current state. Approve and reject belong to the
// owning-stage reviewer; update additionally requires admin edit mode.
func (r *Resolver) ActionAllowed(role models.UserRole, status Status, editMode bool, action Action) bool {
	switch action {
	case ActionApprove, ActionReject:
		return r.machine.CanTransition(status, action, role)
	case ActionUpdate:
		return role == models.RoleAdmin && status == StatusApproved && editMode &&
			r.machine.CanTransition(status, action, role)
	}
	return false
}

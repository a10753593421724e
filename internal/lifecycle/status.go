package lifecycle

import (
	"fmt"

	"github.com/roboclub-my/console-api/internal/models"
	appErrors "github.com/roboclub-my/console-api/pkg/errors"
)

// Status is a reviewable record's lifecycle state. The values are the wire
// strings persisted in the store and shown in the console.
type Status string

const (
	StatusPendingCenter Status = "pending center"
	StatusPendingAdmin  Status = "pending admin"
	StatusApproved      Status = "approved"
	StatusRejected      Status = "rejected"

	// StatusPending is the single review stage of the centre variant.
	StatusPending Status = "pending"
)

// Action is a lifecycle operation dispatched against a record.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionUpdate  Action = "update"
)

type edge struct {
	next     Status
	reviewer models.UserRole
}

// Machine is a pure transition table for one record variant. Rejected is
// absorbing; approved accepts field updates only.
type Machine struct {
	name  string
	edges map[Status]map[Action]edge
}

// StudentMachine returns the two-stage student review machine.
func StudentMachine() *Machine {
	return &Machine{
		name: "student",
		edges: map[Status]map[Action]edge{
			StatusPendingCenter: {
				ActionApprove: {next: StatusPendingAdmin, reviewer: models.RoleCenter},
				ActionReject:  {next: StatusRejected, reviewer: models.RoleCenter},
			},
			StatusPendingAdmin: {
				ActionApprove: {next: StatusApproved, reviewer: models.RoleAdmin},
				ActionReject:  {next: StatusRejected, reviewer: models.RoleAdmin},
			},
			StatusApproved: {
				ActionUpdate: {next: StatusApproved, reviewer: models.RoleAdmin},
			},
		},
	}
}

// CenterMachine returns the single-stage centre review machine.
func CenterMachine() *Machine {
	return &Machine{
		name: "center",
		edges: map[Status]map[Action]edge{
			StatusPending: {
				ActionApprove: {next: StatusApproved, reviewer: models.RoleAdmin},
			},
			StatusApproved: {
				ActionUpdate: {next: StatusApproved, reviewer: models.RoleAdmin},
			},
		},
	}
}

// InitialStudentStatus picks the entry state for a new student record.
// Records registered through a centre start at the centre review stage.
func InitialStudentStatus(hasCenterStage bool) Status {
	if hasCenterStage {
		return StatusPendingCenter
	}
	return StatusPendingAdmin
}

// CanTransition reports whether the action is a legal edge from the current
// status for the given actor.
func (m *Machine) CanTransition(current Status, action Action, role models.UserRole) bool {
	e, ok := m.edges[current][action]
	return ok && e.reviewer == role
}

// NextStatus resolves the target status for an action. It fails with
// ErrInvalidTransition when the action is not a legal edge; callers must
// surface this, never swallow it.
func (m *Machine) NextStatus(current Status, action Action) (Status, error) {
	e, ok := m.edges[current][action]
	if !ok {
		return "", appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("%s record cannot %s while %s", m.name, action, current))
	}
	return e.next, nil
}

// Reviewer returns the role that owns the given review stage, or false when
// the status has no pending reviewer (approved, rejected).
func (m *Machine) Reviewer(current Status) (models.UserRole, bool) {
	for _, e := range m.edges[current] {
		if e.next != current {
			return e.reviewer, true
		}
	}
	return "", false
}

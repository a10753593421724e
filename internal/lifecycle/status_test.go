package lifecycle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roboclub-my/console-api/internal/models"
	appErrors "github.com/roboclub-my/console-api/pkg/errors"
)

func TestStudentMachineTransitions(t *testing.T) {
	m := StudentMachine()

	cases := []struct {
		name    string
		current Status
		action  Action
		want    Status
		wantErr bool
	}{
		{"center approve advances to admin review", StatusPendingCenter, ActionApprove, StatusPendingAdmin, false},
		{"center reject is terminal", StatusPendingCenter, ActionReject, StatusRejected, false},
		{"admin approve finalises", StatusPendingAdmin, ActionApprove, StatusApproved, false},
		{"admin reject is terminal", StatusPendingAdmin, ActionReject, StatusRejected, false},
		{"approved accepts update", StatusApproved, ActionUpdate, StatusApproved, false},
		{"approved cannot be approved again", StatusApproved, ActionApprove, "", true},
		{"approved cannot be rejected", StatusApproved, ActionReject, "", true},
		{"rejected is absorbing for approve", StatusRejected, ActionApprove, "", true},
		{"rejected is absorbing for update", StatusRejected, ActionUpdate, "", true},
		{"pending center cannot update", StatusPendingCenter, ActionUpdate, "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, err := m.NextStatus(tc.current, tc.action)
			if tc.wantErr {
				require.Error(t, err)
				var appErr *appErrors.Error
				require.True(t, errors.As(err, &appErr))
				assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, next)
		})
	}
}

func TestStudentMachineReviewerOwnership(t *testing.T) {
	m := StudentMachine()

	assert.True(t, m.CanTransition(StatusPendingCenter, ActionApprove, models.RoleCenter))
	assert.False(t, m.CanTransition(StatusPendingCenter, ActionApprove, models.RoleAdmin))
	assert.True(t, m.CanTransition(StatusPendingAdmin, ActionApprove, models.RoleAdmin))
	assert.False(t, m.CanTransition(StatusPendingAdmin, ActionApprove, models.RoleCenter))
	assert.False(t, m.CanTransition(StatusPendingAdmin, ActionReject, models.RoleCenter))
}

func TestCenterMachineTransitions(t *testing.T) {
	m := CenterMachine()

	next, err := m.NextStatus(StatusPending, ActionApprove)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, next)

	// The centre variant has no reject edge.
	_, err = m.NextStatus(StatusPending, ActionReject)
	require.Error(t, err)

	next, err = m.NextStatus(StatusApproved, ActionUpdate)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, next)
}

func TestInitialStudentStatus(t *testing.T) {
	assert.Equal(t, StatusPendingCenter, InitialStudentStatus(true))
	assert.Equal(t, StatusPendingAdmin, InitialStudentStatus(false))
}

func TestReviewer(t *testing.T) {
	m := StudentMachine()

	role, ok := m.Reviewer(StatusPendingCenter)
	require.True(t, ok)
	assert.Equal(t, models.RoleCenter, role)

	role, ok = m.Reviewer(StatusPendingAdmin)
	require.True(t, ok)
	assert.Equal(t, models.RoleAdmin, role)

	_, ok = m.Reviewer(StatusRejected)
	assert.False(t, ok)
}

package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roboclub-my/console-api/internal/models"
	appErrors "github.com/roboclub-my/console-api/pkg/errors"
)

type dispatchCall struct {
	id     string
	action Action
	patch  FieldMap
}

type mockStore struct {
	mu       sync.Mutex
	record   *Record
	err      error
	blockOn  chan struct{}
	started  chan struct{}
	dispatch []dispatchCall
}

func (m *mockStore) FetchRecord(ctx context.Context, id string) (*Record, error) {
	if m.record == nil {
		return nil, errors.New("no record")
	}
	return &Record{ID: m.record.ID, Status: m.record.Status, Fields: m.record.Fields.Clone()}, nil
}

func (m *mockStore) DispatchAction(ctx context.Context, id string, action Action, patch FieldMap) error {
	if m.started != nil {
		close(m.started)
		m.started = nil
	}
	if m.blockOn != nil {
		<-m.blockOn
	}
	m.mu.Lock()
	m.dispatch = append(m.dispatch, dispatchCall{id: id, action: action, patch: patch})
	m.mu.Unlock()
	return m.err
}

func (m *mockStore) calls() []dispatchCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]dispatchCall, len(m.dispatch))
	copy(out, m.dispatch)
	return out
}

func newStudentEditor(store *mockStore, actor Actor) *Editor {
	machine := StudentMachine()
	return NewEditor(machine, NewResolver(machine), store, store, actor)
}

func pendingCenterRecord() *Record {
	return &Record{
		ID:     "stu-1",
		Status: StatusPendingCenter,
		Fields: FieldMap{"id": "stu-1", "center": "ctr-1", "status": string(StatusPendingCenter), "fullName": "Aina", "school": "SK Taman Tun"},
	}
}

func approvedRecord() *Record {
	return &Record{
		ID:     "stu-1",
		Status: StatusApproved,
		Fields: FieldMap{"id": "stu-1", "center": "ctr-1", "status": string(StatusApproved), "fullName": "Aina", "school": "SK Taman Tun"},
	}
}

func TestEditorCenterApproveWithCorrection(t *testing.T) {
	store := &mockStore{record: pendingCenterRecord()}
	centerID := "ctr-1"
	editor := newStudentEditor(store, Actor{UserID: "op-1", Role: models.RoleCenter, CenterID: &centerID})

	require.NoError(t, editor.Open(context.Background(), "stu-1"))
	assert.Equal(t, SessionViewing, editor.State())
	assert.True(t, editor.FieldEditable("fullName"))

	require.NoError(t, editor.SetField("fullName", "Aina Sofea"))
	require.NoError(t, editor.Submit(context.Background()))

	calls := store.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, ActionApprove, calls[0].action)
	assert.Equal(t, FieldMap{"fullName": "Aina Sofea"}, calls[0].patch)
	assert.Equal(t, StatusPendingAdmin, editor.Status())
	assert.Equal(t, SessionClosed, editor.State())
}

func TestEditorApproveWithoutChangesSendsEmptyPatch(t *testing.T) {
	store := &mockStore{record: pendingCenterRecord()}
	centerID := "ctr-1"
	editor := newStudentEditor(store, Actor{UserID: "op-1", Role: models.RoleCenter, CenterID: &centerID})

	require.NoError(t, editor.Open(context.Background(), "stu-1"))
	require.NoError(t, editor.Submit(context.Background()))

	calls := store.calls()
	require.Len(t, calls, 1)
	assert.Empty(t, calls[0].patch)
}

func TestEditorApprovedIsReadOnlyUntilEditMode(t *testing.T) {
	store := &mockStore{record: approvedRecord()}
	editor := newStudentEditor(store, Actor{UserID: "admin-1", Role: models.RoleAdmin})

	require.NoError(t, editor.Open(context.Background(), "stu-1"))
	assert.False(t, editor.FieldEditable("fullName"))
	require.Error(t, editor.SetField("fullName", "changed"))

	require.NoError(t, editor.BeginEdit())
	assert.True(t, editor.FieldEditable("fullName"))
	assert.False(t, editor.FieldEditable("status"))

	require.NoError(t, editor.SetField("fullName", "Aina Sofea"))
	require.NoError(t, editor.Submit(context.Background()))

	calls := store.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, ActionUpdate, calls[0].action)
	assert.Equal(t, FieldMap{"fullName": "Aina Sofea"}, calls[0].patch)
	assert.Equal(t, SessionViewing, editor.State())
	assert.Equal(t, StatusApproved, editor.Status())
}

func TestEditorBeginEditRequiresAdminOnApproved(t *testing.T) {
	store := &mockStore{record: pendingCenterRecord()}
	editor := newStudentEditor(store, Actor{UserID: "admin-1", Role: models.RoleAdmin})

	require.NoError(t, editor.Open(context.Background(), "stu-1"))
	require.Error(t, editor.BeginEdit())

	store2 := &mockStore{record: approvedRecord()}
	centerID := "ctr-1"
	editor2 := newStudentEditor(store2, Actor{UserID: "op-1", Role: models.RoleCenter, CenterID: &centerID})
	require.NoError(t, editor2.Open(context.Background(), "stu-1"))
	require.Error(t, editor2.BeginEdit())
}

func TestEditorEmptyPatchInEditModeIsCancel(t *testing.T) {
	store := &mockStore{record: approvedRecord()}
	editor := newStudentEditor(store, Actor{UserID: "admin-1", Role: models.RoleAdmin})

	require.NoError(t, editor.Open(context.Background(), "stu-1"))
	require.NoError(t, editor.BeginEdit())
	// Setting a field back to its original value yields an empty patch.
	require.NoError(t, editor.SetField("fullName", "Aina"))
	require.NoError(t, editor.Submit(context.Background()))

	assert.Empty(t, store.calls())
	assert.Equal(t, SessionViewing, editor.State())
}

func TestEditorCancelEditDiscardsStagedValues(t *testing.T) {
	store := &mockStore{record: approvedRecord()}
	editor := newStudentEditor(store, Actor{UserID: "admin-1", Role: models.RoleAdmin})

	require.NoError(t, editor.Open(context.Background(), "stu-1"))
	require.NoError(t, editor.BeginEdit())
	require.NoError(t, editor.SetField("fullName", "changed"))
	require.NotEmpty(t, editor.Patch())

	editor.CancelEdit()
	assert.Empty(t, editor.Patch())
	assert.Equal(t, SessionViewing, editor.State())
}

func TestEditorSecondSubmitWhileInFlight(t *testing.T) {
	store := &mockStore{record: approvedRecord(), blockOn: make(chan struct{}), started: make(chan struct{})}
	started := store.started
	editor := newStudentEditor(store, Actor{UserID: "admin-1", Role: models.RoleAdmin})

	require.NoError(t, editor.Open(context.Background(), "stu-1"))
	require.NoError(t, editor.BeginEdit())
	require.NoError(t, editor.SetField("fullName", "Aina Sofea"))

	done := make(chan error, 1)
	go func() { done <- editor.Submit(context.Background()) }()

	<-started
	err := editor.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSubmitInFlight.Code, appErrors.FromError(err).Code)

	close(store.blockOn)
	require.NoError(t, <-done)
	assert.Len(t, store.calls(), 1)
}

func TestEditorCloseMidFlightDiscardsResponse(t *testing.T) {
	store := &mockStore{record: approvedRecord(), blockOn: make(chan struct{}), started: make(chan struct{})}
	started := store.started
	editor := newStudentEditor(store, Actor{UserID: "admin-1", Role: models.RoleAdmin})

	require.NoError(t, editor.Open(context.Background(), "stu-1"))
	require.NoError(t, editor.BeginEdit())
	require.NoError(t, editor.SetField("fullName", "Aina Sofea"))

	done := make(chan error, 1)
	go func() { done <- editor.Submit(context.Background()) }()

	<-started
	editor.Close()
	close(store.blockOn)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("submit did not return")
	}
	assert.Equal(t, SessionClosed, editor.State())
}

func TestEditorFailedDispatchRestoresState(t *testing.T) {
	store := &mockStore{record: approvedRecord(), err: errors.New("backend down")}
	editor := newStudentEditor(store, Actor{UserID: "admin-1", Role: models.RoleAdmin})

	require.NoError(t, editor.Open(context.Background(), "stu-1"))
	require.NoError(t, editor.BeginEdit())
	require.NoError(t, editor.SetField("fullName", "Aina Sofea"))

	require.Error(t, editor.Submit(context.Background()))
	assert.Equal(t, SessionEditing, editor.State())
	// The staged edit survives for a retry.
	assert.Equal(t, FieldMap{"fullName": "Aina Sofea"}, editor.Patch())
}

func TestEditorReject(t *testing.T) {
	record := pendingCenterRecord()
	record.Status = StatusPendingAdmin
	record.Fields["status"] = string(StatusPendingAdmin)
	store := &mockStore{record: record}
	editor := newStudentEditor(store, Actor{UserID: "admin-1", Role: models.RoleAdmin})

	require.NoError(t, editor.Open(context.Background(), "stu-1"))
	require.NoError(t, editor.Reject(context.Background()))

	calls := store.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, ActionReject, calls[0].action)
	assert.Nil(t, calls[0].patch)
	assert.Equal(t, StatusRejected, editor.Status())
	assert.Equal(t, SessionClosed, editor.State())
}

func TestEditorRejectWrongStageDenied(t *testing.T) {
	store := &mockStore{record: pendingCenterRecord()}
	editor := newStudentEditor(store, Actor{UserID: "admin-1", Role: models.RoleAdmin})

	require.NoError(t, editor.Open(context.Background(), "stu-1"))
	err := editor.Reject(context.Background())
	require.Error(t, err)
	assert.Empty(t, store.calls())
}

func TestEditorClosedSessionRefusesWork(t *testing.T) {
	store := &mockStore{record: approvedRecord()}
	editor := newStudentEditor(store, Actor{UserID: "admin-1", Role: models.RoleAdmin})

	require.NoError(t, editor.Open(context.Background(), "stu-1"))
	editor.Close()

	assert.False(t, editor.FieldEditable("fullName"))
	require.Error(t, editor.SetField("fullName", "x"))
	require.Error(t, editor.Submit(context.Background()))
	require.Error(t, editor.Reject(context.Background()))
}

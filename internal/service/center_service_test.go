package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roboclub-my/console-api/internal/collection"
	"github.com/roboclub-my/console-api/internal/lifecycle"
	"github.com/roboclub-my/console-api/internal/models"
	appErrors "github.com/roboclub-my/console-api/pkg/errors"
)

type mockCenterRepo struct {
	centers     map[string]models.Center
	order       []string
	patches     map[string]map[string]interface{}
	statusCalls []string
}

func newMockCenterRepo(centers ...models.Center) *mockCenterRepo {
	repo := &mockCenterRepo{centers: make(map[string]models.Center)}
	for _, c := range centers {
		repo.centers[c.ID] = c
		repo.order = append(repo.order, c.ID)
	}
	return repo
}

func (m *mockCenterRepo) ListAll(ctx context.Context) ([]models.Center, error) {
	out := make([]models.Center, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.centers[id])
	}
	return out, nil
}

func (m *mockCenterRepo) FindByID(ctx context.Context, id string) (*models.Center, error) {
	if c, ok := m.centers[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCenterRepo) Create(ctx context.Context, center *models.Center) error {
	m.centers[center.ID] = *center
	m.order = append(m.order, center.ID)
	return nil
}

func (m *mockCenterRepo) ApplyPatch(ctx context.Context, id string, patch map[string]interface{}) error {
	if m.patches == nil {
		m.patches = make(map[string]map[string]interface{})
	}
	m.patches[id] = patch
	return nil
}

func (m *mockCenterRepo) UpdateStatus(ctx context.Context, id, status, reviewerID string) error {
	if c, ok := m.centers[id]; ok {
		c.Status = status
		m.centers[id] = c
	}
	m.statusCalls = append(m.statusCalls, status)
	return nil
}

func TestCenterListFiltersInMemory(t *testing.T) {
	repo := newMockCenterRepo(
		models.Center{ID: "ctr-1", Name: "RoboClub Bangsar", Status: "approved"},
		models.Center{ID: "ctr-2", Name: "RoboClub Penang", Status: "pending"},
		models.Center{ID: "ctr-3", Name: "STEM Lab Ipoh", Status: "approved"},
	)
	svc := NewCenterService(repo, nil, nil, nil, nil)

	q := collection.Query{
		Filters:  map[string]collection.Predicate{"name": collection.Contains("roboclub")},
		PageSize: 10,
	}
	rows, pagination, err := svc.List(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, pagination.TotalCount)

	q.Filters["status"] = collection.Exact("pending")
	rows, _, err = svc.List(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ctr-2", rows[0].ID)
}

func TestCenterListSortAndPage(t *testing.T) {
	repo := newMockCenterRepo(
		models.Center{ID: "ctr-1", Name: "Charlie"},
		models.Center{ID: "ctr-2", Name: "Alpha"},
		models.Center{ID: "ctr-3", Name: "Bravo"},
	)
	svc := NewCenterService(repo, nil, nil, nil, nil)

	q := collection.Query{
		Sort:      []collection.SortKey{{Field: "name", Direction: collection.Ascending}},
		PageIndex: 1,
		PageSize:  2,
	}
	rows, pagination, err := svc.List(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Charlie", rows[0].Name)
	assert.Equal(t, 2, pagination.PageCount)
}

func TestCenterCreateStartsPending(t *testing.T) {
	repo := newMockCenterRepo()
	svc := NewCenterService(repo, nil, nil, nil, nil)

	center, err := svc.Create(context.Background(), CreateCenterRequest{
		Name:     "  RoboClub Shah Alam ",
		Location: "Selangor",
		Email:    "shahalam@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, string(lifecycle.StatusPending), center.Status)
	assert.Equal(t, "RoboClub Shah Alam", center.Name)
}

func TestCenterApprovePendingOnly(t *testing.T) {
	repo := newMockCenterRepo(models.Center{ID: "ctr-1", Name: "RoboClub Bangsar", Status: string(lifecycle.StatusPending)})
	audit := &mockAudit{}
	svc := NewCenterService(repo, nil, nil, audit, nil)

	require.NoError(t, svc.Approve(context.Background(), adminActor(), "ctr-1"))
	assert.Equal(t, []string{string(lifecycle.StatusApproved)}, repo.statusCalls)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionApprove, audit.logs[0].Action)

	// Approving twice has no edge to follow.
	err := svc.Approve(context.Background(), adminActor(), "ctr-1")
	require.Error(t, err)
	assert.Len(t, repo.statusCalls, 1)
}

func TestCenterUpdateRequiresEditMode(t *testing.T) {
	repo := newMockCenterRepo(models.Center{ID: "ctr-1", Name: "RoboClub Bangsar", Status: string(lifecycle.StatusApproved)})
	svc := NewCenterService(repo, nil, nil, nil, nil)

	err := svc.Update(context.Background(), adminActor(), "ctr-1", lifecycle.FieldMap{"centerName": "Renamed"}, false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Update(context.Background(), adminActor(), "ctr-1", lifecycle.FieldMap{"centerName": "Renamed"}, true))
	assert.Equal(t, map[string]interface{}{"centerName": "Renamed"}, repo.patches["ctr-1"])
	assert.Empty(t, repo.statusCalls)
}

func TestCenterUpdateRejectsImmutableFields(t *testing.T) {
	repo := newMockCenterRepo(models.Center{ID: "ctr-1", Name: "RoboClub Bangsar", Status: string(lifecycle.StatusApproved)})
	svc := NewCenterService(repo, nil, nil, nil, nil)

	err := svc.Update(context.Background(), adminActor(), "ctr-1", lifecycle.FieldMap{"id": "ctr-2"}, true)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.patches)
}

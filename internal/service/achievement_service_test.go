package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roboclub-my/console-api/internal/models"
	"github.com/roboclub-my/console-api/internal/repository"
	appErrors "github.com/roboclub-my/console-api/pkg/errors"
)

type mockAchievementRepo struct {
	catalogue   []models.Achievement
	listCalls   int
	assigned    map[string][]string
	lastAdd     []string
	lastRemove  []string
	diffApplied bool
}

func (m *mockAchievementRepo) ListAll(ctx context.Context) ([]models.Achievement, error) {
	m.listCalls++
	return m.catalogue, nil
}

func (m *mockAchievementRepo) Create(ctx context.Context, achievement *models.Achievement) error {
	m.catalogue = append(m.catalogue, *achievement)
	return nil
}

func (m *mockAchievementRepo) Update(ctx context.Context, achievement *models.Achievement) error {
	return nil
}

func (m *mockAchievementRepo) Delete(ctx context.Context, id string) error {
	return nil
}

func (m *mockAchievementRepo) ListAssigned(ctx context.Context, studentID string) ([]string, error) {
	return m.assigned[studentID], nil
}

func (m *mockAchievementRepo) ApplyAssignmentDiff(ctx context.Context, studentID string, toAdd, toRemove []string) error {
	m.diffApplied = true
	m.lastAdd = toAdd
	m.lastRemove = toRemove
	return nil
}

// fakeCatalogueCache is a map-backed stand-in for the redis layer.
type fakeCatalogueCache struct {
	entries map[string][]byte
	deleted []string
}

func newFakeCatalogueCache() *fakeCatalogueCache {
	return &fakeCatalogueCache{entries: make(map[string][]byte)}
}

func (c *fakeCatalogueCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *fakeCatalogueCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *fakeCatalogueCache) Delete(ctx context.Context, keys ...string) {
	for _, key := range keys {
		delete(c.entries, key)
		c.deleted = append(c.deleted, key)
	}
}

func adminUser() models.UserInfo {
	return models.UserInfo{ID: "admin-1", Role: models.RoleAdmin}
}

func TestAchievementListPopulatesCache(t *testing.T) {
	repo := &mockAchievementRepo{catalogue: []models.Achievement{{ID: "ach-1", Title: "Line Follower"}}}
	cache := newFakeCatalogueCache()
	svc := NewAchievementService(repo, cache, nil, nil, nil, nil, time.Minute)

	first, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, repo.listCalls)

	// Second call is served from the cache.
	second, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.listCalls)
}

func TestAchievementWriteInvalidatesCache(t *testing.T) {
	repo := &mockAchievementRepo{}
	cache := newFakeCatalogueCache()
	audit := &mockAudit{}
	svc := NewAchievementService(repo, cache, nil, nil, audit, nil, time.Minute)

	_, err := svc.List(context.Background())
	require.NoError(t, err)
	_, ok := cache.entries[repository.CacheKeyAchievements]
	require.True(t, ok)

	_, err = svc.Create(context.Background(), adminUser(), AchievementRequest{Title: "Sumo Bot"})
	require.NoError(t, err)

	assert.Contains(t, cache.deleted, repository.CacheKeyAchievements)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionCatalogueEdit, audit.logs[0].Action)
}

func TestAchievementCreateValidation(t *testing.T) {
	svc := NewAchievementService(&mockAchievementRepo{}, nil, nil, nil, nil, nil, time.Minute)

	_, err := svc.Create(context.Background(), adminUser(), AchievementRequest{Description: "no title"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAssignAppliesBaselineDiff(t *testing.T) {
	repo := &mockAchievementRepo{assigned: map[string][]string{"stu-1": {"ach-1", "ach-2"}}}
	audit := &mockAudit{}
	svc := NewAchievementService(repo, nil, nil, nil, audit, nil, time.Minute)

	err := svc.Assign(context.Background(), adminUser(), "stu-1", AssignRequest{AchievementIDs: []string{"ach-2", "ach-3"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"ach-3"}, repo.lastAdd)
	assert.Equal(t, []string{"ach-1"}, repo.lastRemove)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionAssign, audit.logs[0].Action)
}

func TestAssignUnchangedSetIsNoop(t *testing.T) {
	repo := &mockAchievementRepo{assigned: map[string][]string{"stu-1": {"ach-1", "ach-2"}}}
	audit := &mockAudit{}
	svc := NewAchievementService(repo, nil, nil, nil, audit, nil, time.Minute)

	// Same membership in a different order reconciles to nothing.
	err := svc.Assign(context.Background(), adminUser(), "stu-1", AssignRequest{AchievementIDs: []string{"ach-2", "ach-1"}})
	require.NoError(t, err)

	assert.False(t, repo.diffApplied)
	assert.Empty(t, audit.logs)
}

func TestAssignEmptySetClearsAll(t *testing.T) {
	repo := &mockAchievementRepo{assigned: map[string][]string{"stu-1": {"ach-1"}}}
	svc := NewAchievementService(repo, nil, nil, nil, nil, nil, time.Minute)

	err := svc.Assign(context.Background(), adminUser(), "stu-1", AssignRequest{})
	require.NoError(t, err)

	assert.Empty(t, repo.lastAdd)
	assert.Equal(t, []string{"ach-1"}, repo.lastRemove)
}

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/class-treasury-api/internal/models"
	appErrors "github.com/noah-isme/class-treasury-api/pkg/errors"
)

type mockDashboardRepo struct {
	collections map[string]*models.Collection
	findCalls   int
}

func (m *mockDashboardRepo) List(ctx context.Context, filter models.CollectionFilter) ([]models.Collection, int, error) {
	var result []models.Collection
	for _, collection := range m.collections {
		if filter.Status != "" && collection.Status != filter.Status {
			continue
		}
		listed := *collection
		listed.Payments = nil
		result = append(result, listed)
	}
	return result, len(result), nil
}

func (m *mockDashboardRepo) FindByID(ctx context.Context, id string) (*models.Collection, error) {
	m.findCalls++
	collection, ok := m.collections[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *collection
	return &copied, nil
}

func TestFundsSumsActiveCollectionsOnly(t *testing.T) {
	repo := &mockDashboardRepo{collections: map[string]*models.Collection{
		"col-1": {
			ID: "col-1", Name: "Class Shirts", Status: models.CollectionStatusActive,
			Payments: []models.Payment{
				{CollectionID: "col-1", StudentID: "stu-1", Amount: 150},
				{CollectionID: "col-1", StudentID: "stu-2", Amount: 180},
			},
		},
		"col-2": {
			ID: "col-2", Name: "Field Trip", Status: models.CollectionStatusRemitted,
			Payments: []models.Payment{{CollectionID: "col-2", StudentID: "stu-1", Amount: 500}},
		},
		"col-3": {ID: "col-3", Name: "Empty", Status: models.CollectionStatusActive},
	}}
	svc := NewDashboardService(repo, nil, nil, DashboardServiceConfig{})

	summary, cached, err := svc.Funds(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 330.0, summary.TotalOnHand)
	require.Len(t, summary.Collections, 2)

	// Sorted by collected, descending.
	assert.Equal(t, "Class Shirts", summary.Collections[0].CollectionName)
	assert.Equal(t, 2, summary.Collections[0].PayerCount)
	assert.Equal(t, "Empty", summary.Collections[1].CollectionName)
	assert.Equal(t, 0.0, summary.Collections[1].Collected)
}

type memoryCacheStore struct {
	values map[string][]byte
}

func (m *memoryCacheStore) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.values == nil {
		m.values = make(map[string][]byte)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = raw
	return nil
}

func (m *memoryCacheStore) Invalidate(ctx context.Context, pattern string) {
	m.values = nil
}

func TestFundsServedFromCache(t *testing.T) {
	repo := &mockDashboardRepo{collections: map[string]*models.Collection{
		"col-1": {
			ID: "col-1", Name: "Class Shirts", Status: models.CollectionStatusActive,
			Payments: []models.Payment{{CollectionID: "col-1", StudentID: "stu-1", Amount: 150}},
		},
	}}
	cache := NewCacheService(&memoryCacheStore{}, nil, 0, nil, true)
	svc := NewDashboardService(repo, cache, nil, DashboardServiceConfig{})
	ctx := context.Background()

	first, cached, err := svc.Funds(ctx)
	require.NoError(t, err)
	assert.False(t, cached)

	second, cached, err := svc.Funds(ctx)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, first.TotalOnHand, second.TotalOnHand)
	assert.Equal(t, 1, repo.findCalls)

	svc.InvalidateFunds(ctx)
	_, cached, err = svc.Funds(ctx)
	require.NoError(t, err)
	assert.False(t, cached)
}

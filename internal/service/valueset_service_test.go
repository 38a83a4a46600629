package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/class-treasury-api/internal/models"
	appErrors "github.com/noah-isme/class-treasury-api/pkg/errors"
)

type mockValueSetRepo struct {
	sets map[string]models.ValueSet
}

func (m *mockValueSetRepo) List(ctx context.Context) ([]models.ValueSet, error) {
	var result []models.ValueSet
	for _, set := range m.sets {
		result = append(result, set)
	}
	return result, nil
}

func (m *mockValueSetRepo) FindByID(ctx context.Context, id string) (*models.ValueSet, error) {
	if set, ok := m.sets[id]; ok {
		return &set, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockValueSetRepo) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	for id, set := range m.sets {
		if id == excludeID {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(set.Name), strings.TrimSpace(name)) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockValueSetRepo) Create(ctx context.Context, set *models.ValueSet) error {
	if m.sets == nil {
		m.sets = make(map[string]models.ValueSet)
	}
	if set.ID == "" {
		set.ID = "vs-new"
	}
	m.sets[set.ID] = *set
	return nil
}

func (m *mockValueSetRepo) Update(ctx context.Context, set *models.ValueSet) error {
	if _, ok := m.sets[set.ID]; !ok {
		return sql.ErrNoRows
	}
	m.sets[set.ID] = *set
	return nil
}

func (m *mockValueSetRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.sets[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.sets, id)
	return nil
}

func TestValueSetCreateTrimsAndMintsIDs(t *testing.T) {
	repo := &mockValueSetRepo{}
	svc := NewValueSetService(repo, nil, nil)

	set, err := svc.Create(context.Background(), ValueSetRequest{
		Name: "  Shirt Sizes ",
		Options: []ValueSetOptionRequest{
			{Value: " Small ", Amount: amountPtr(150)},
			{Value: "Large", Amount: amountPtr(180)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Shirt Sizes", set.Name)
	require.Len(t, set.Options, 2)
	assert.Equal(t, "Small", set.Options[0].Value)
	assert.NotEmpty(t, set.Options[0].ID)
}

func TestValueSetNameUniqueCaseInsensitive(t *testing.T) {
	repo := &mockValueSetRepo{sets: map[string]models.ValueSet{
		"vs-1": {ID: "vs-1", Name: "Shirt Sizes"},
	}}
	svc := NewValueSetService(repo, nil, nil)

	_, err := svc.Create(context.Background(), ValueSetRequest{
		Name:    "shirt sizes",
		Options: []ValueSetOptionRequest{{Value: "Small"}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestValueSetUpdateKeepsOwnName(t *testing.T) {
	repo := &mockValueSetRepo{sets: map[string]models.ValueSet{
		"vs-1": {ID: "vs-1", Name: "Shirt Sizes", Options: []models.FieldOption{{ID: "o-1", Value: "Small"}}},
	}}
	svc := NewValueSetService(repo, nil, nil)

	set, err := svc.Update(context.Background(), "vs-1", ValueSetRequest{
		Name:    "Shirt Sizes",
		Options: []ValueSetOptionRequest{{ID: "o-1", Value: "Small"}, {Value: "Medium"}},
	})
	require.NoError(t, err)
	require.Len(t, set.Options, 2)
	assert.Equal(t, "o-1", set.Options[0].ID)
	assert.NotEmpty(t, set.Options[1].ID)
}

func TestValueSetRejectsDuplicateOptionValues(t *testing.T) {
	svc := NewValueSetService(&mockValueSetRepo{}, nil, nil)

	_, err := svc.Create(context.Background(), ValueSetRequest{
		Name:    "Sizes",
		Options: []ValueSetOptionRequest{{Value: "Small"}, {Value: "small "}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestValueSetDeleteUnknown(t *testing.T) {
	svc := NewValueSetService(&mockValueSetRepo{}, nil, nil)

	err := svc.Delete(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/class-treasury-api/internal/models"
	appErrors "github.com/noah-isme/class-treasury-api/pkg/errors"
)

type mockCollectionRepo struct {
	collections map[string]*models.Collection
}

func (m *mockCollectionRepo) List(ctx context.Context, filter models.CollectionFilter) ([]models.Collection, int, error) {
	var result []models.Collection
	for _, collection := range m.collections {
		if filter.Status != "" && collection.Status != filter.Status {
			continue
		}
		result = append(result, *collection)
	}
	return result, len(result), nil
}

func (m *mockCollectionRepo) FindByID(ctx context.Context, id string) (*models.Collection, error) {
	collection, ok := m.collections[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *collection
	return &copied, nil
}

func (m *mockCollectionRepo) Create(ctx context.Context, collection *models.Collection) error {
	if m.collections == nil {
		m.collections = make(map[string]*models.Collection)
	}
	if collection.ID == "" {
		collection.ID = "col-new"
	}
	if collection.Status == "" {
		collection.Status = models.CollectionStatusActive
	}
	stored := *collection
	m.collections[collection.ID] = &stored
	return nil
}

func (m *mockCollectionRepo) Update(ctx context.Context, collection *models.Collection) error {
	if _, ok := m.collections[collection.ID]; !ok {
		return sql.ErrNoRows
	}
	stored := *collection
	m.collections[collection.ID] = &stored
	return nil
}

func (m *mockCollectionRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.collections[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.collections, id)
	return nil
}

type mockPaymentScrubber struct {
	scrubbed map[string][]string
}

func (m *mockPaymentScrubber) ScrubAnswers(ctx context.Context, collectionID string, fieldIDs []string) error {
	if m.scrubbed == nil {
		m.scrubbed = make(map[string][]string)
	}
	m.scrubbed[collectionID] = append(m.scrubbed[collectionID], fieldIDs...)
	return nil
}

type mockValueSetReader struct {
	sets map[string]models.ValueSet
}

func (m *mockValueSetReader) FindByID(ctx context.Context, id string) (*models.ValueSet, error) {
	if set, ok := m.sets[id]; ok {
		return &set, nil
	}
	return nil, sql.ErrNoRows
}

func newCollectionFixture(seed ...*models.Collection) (*CollectionService, *mockCollectionRepo, *mockPaymentScrubber) {
	repo := &mockCollectionRepo{collections: make(map[string]*models.Collection)}
	for _, collection := range seed {
		repo.collections[collection.ID] = collection
	}
	scrubber := &mockPaymentScrubber{}
	valueSets := &mockValueSetReader{sets: map[string]models.ValueSet{
		"vs-sizes": {
			ID:   "vs-sizes",
			Name: "Shirt Sizes",
			Options: []models.FieldOption{
				{ID: "vo-sm", Value: "Small", Amount: amountPtr(150)},
				{ID: "vo-lg", Value: "Large", Amount: amountPtr(180)},
			},
		},
	}}
	return NewCollectionService(repo, scrubber, valueSets, nil, nil), repo, scrubber
}

func TestCreateNormalizesSubmittedSchema(t *testing.T) {
	svc, repo, _ := newCollectionFixture()

	result, err := svc.Create(context.Background(), CreateCollectionRequest{
		Name: "  Field Trip  ",
		CustomFields: []models.CustomField{
			{ID: "f-1", Name: "  Shirt ", Type: models.FieldTypeOption, Options: []models.FieldOption{
				{ID: "o-1", Value: " Small ", Amount: amountPtr(150)},
				{ID: "o-2", Value: "   "},
			}},
			{ID: "f-2", Name: "", Type: models.FieldTypeText},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Field Trip", result.Collection.Name)

	require.Len(t, result.Collection.CustomFields, 1)
	field := result.Collection.CustomFields[0]
	assert.Equal(t, "Shirt", field.Name)
	require.Len(t, field.Options, 1)
	assert.Equal(t, "Small", field.Options[0].Value)

	assert.Equal(t, []string{"f-2"}, result.Pruned.DroppedFieldIDs)
	assert.Equal(t, []string{"o-2"}, result.Pruned.DroppedOptionIDs)
	assert.Contains(t, repo.collections, result.Collection.ID)
}

func TestUpdateRemovingAnsweredFieldNeedsForce(t *testing.T) {
	collection := shirtCollection()
	collection.Payments = []models.Payment{
		{CollectionID: "col-1", StudentID: "stu-1", Amount: 150, Answers: models.AnswerSet{"f-shirt": "Small"}},
	}
	svc, repo, scrubber := newCollectionFixture(collection)
	ctx := context.Background()

	req := UpdateCollectionRequest{Name: "Class Shirts", TargetAmount: amountPtr(100)}

	_, err := svc.Update(ctx, "col-1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConfirmationRequired.Code, appErrors.FromError(err).Code)
	assert.Empty(t, scrubber.scrubbed)

	req.Force = true
	result, err := svc.Update(ctx, "col-1", req)
	require.NoError(t, err)
	assert.Empty(t, result.Collection.CustomFields)
	assert.Equal(t, []string{"f-shirt"}, scrubber.scrubbed["col-1"])
	assert.Empty(t, repo.collections["col-1"].CustomFields)
}

func TestUpdateRemovingUnansweredFieldIsQuiet(t *testing.T) {
	collection := shirtCollection()
	collection.Payments = []models.Payment{
		{CollectionID: "col-1", StudentID: "stu-1", Amount: 100},
	}
	svc, _, scrubber := newCollectionFixture(collection)

	result, err := svc.Update(context.Background(), "col-1", UpdateCollectionRequest{Name: "Class Shirts"})
	require.NoError(t, err)
	assert.Empty(t, result.Collection.CustomFields)
	assert.Empty(t, scrubber.scrubbed)
}

func TestUpdateRejectsRemittedCollection(t *testing.T) {
	collection := shirtCollection()
	collection.Status = models.CollectionStatusRemitted
	svc, _, _ := newCollectionFixture(collection)

	_, err := svc.Update(context.Background(), "col-1", UpdateCollectionRequest{Name: "Renamed"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrRemitted.Code, appErrors.FromError(err).Code)
}

func TestDeleteWithPaymentsNeedsForce(t *testing.T) {
	collection := shirtCollection()
	collection.Payments = []models.Payment{{CollectionID: "col-1", StudentID: "stu-1", Amount: 150}}
	svc, repo, _ := newCollectionFixture(collection)
	ctx := context.Background()

	err := svc.Delete(ctx, "col-1", false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConfirmationRequired.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Delete(ctx, "col-1", true))
	assert.Empty(t, repo.collections)
}

func TestDuplicateFieldMintsFreshIDs(t *testing.T) {
	collection := shirtCollection()
	svc, _, _ := newCollectionFixture(collection)

	updated, err := svc.DuplicateField(context.Background(), "col-1", "f-shirt")
	require.NoError(t, err)
	require.Len(t, updated.CustomFields, 2)

	original, clone := updated.CustomFields[0], updated.CustomFields[1]
	assert.Equal(t, "f-shirt", original.ID)
	assert.NotEqual(t, original.ID, clone.ID)
	assert.Equal(t, original.Name, clone.Name)
	require.Len(t, clone.Options, 2)
	assert.NotEqual(t, original.Options[0].ID, clone.Options[0].ID)
	assert.Equal(t, original.Options[0].Value, clone.Options[0].Value)
}

func TestDuplicateUnknownFieldFails(t *testing.T) {
	svc, _, _ := newCollectionFixture(shirtCollection())

	_, err := svc.DuplicateField(context.Background(), "col-1", "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestLinkValueSetSnapshotsOptions(t *testing.T) {
	svc, repo, _ := newCollectionFixture(shirtCollection())

	updated, err := svc.LinkValueSet(context.Background(), "col-1", "f-shirt", "vs-sizes")
	require.NoError(t, err)

	field := updated.CustomFields[0]
	assert.Equal(t, "vs-sizes", field.ValueSetID)
	require.Len(t, field.Options, 2)
	assert.Equal(t, "vo-sm", field.Options[0].ID)
	assert.Equal(t, "Small", field.Options[0].Value)

	// Snapshot persisted, not just returned.
	assert.Equal(t, "vs-sizes", repo.collections["col-1"].CustomFields[0].ValueSetID)
}

func TestUnlinkKeepsSnapshottedOptions(t *testing.T) {
	svc, _, _ := newCollectionFixture(shirtCollection())
	ctx := context.Background()

	_, err := svc.LinkValueSet(ctx, "col-1", "f-shirt", "vs-sizes")
	require.NoError(t, err)

	updated, err := svc.UnlinkValueSet(ctx, "col-1", "f-shirt")
	require.NoError(t, err)

	field := updated.CustomFields[0]
	assert.Empty(t, field.ValueSetID)
	assert.Len(t, field.Options, 2)
}

func TestAddSubFieldFromValueSet(t *testing.T) {
	svc, _, _ := newCollectionFixture(shirtCollection())

	updated, err := svc.AddSubFieldFromValueSet(context.Background(), "col-1", "f-shirt", "o-lg", "vs-sizes")
	require.NoError(t, err)

	field := updated.CustomFields[0]
	branch := field.SubFields["o-lg"]
	require.Len(t, branch, 1)
	assert.Equal(t, "Shirt Sizes", branch[0].Name)
	assert.Equal(t, models.FieldTypeOption, branch[0].Type)
	assert.Len(t, branch[0].Options, 2)
}

func TestAddSubFieldUnknownOptionFails(t *testing.T) {
	svc, _, _ := newCollectionFixture(shirtCollection())

	_, err := svc.AddSubFieldFromValueSet(context.Background(), "col-1", "f-shirt", "ghost", "vs-sizes")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

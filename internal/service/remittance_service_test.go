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

type mockRemittanceRepo struct {
	collections map[string]*models.Collection
	remittances []models.Remittance
}

func (m *mockRemittanceRepo) FindByID(ctx context.Context, id string) (*models.Collection, error) {
	collection, ok := m.collections[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *collection
	return &copied, nil
}

func (m *mockRemittanceRepo) UpdateStatus(ctx context.Context, id string, status models.CollectionStatus) error {
	collection, ok := m.collections[id]
	if !ok {
		return sql.ErrNoRows
	}
	collection.Status = status
	return nil
}

func (m *mockRemittanceRepo) CreateRemittance(ctx context.Context, remittance *models.Remittance) error {
	m.remittances = append(m.remittances, *remittance)
	return nil
}

func TestRemitActiveCollection(t *testing.T) {
	repo := &mockRemittanceRepo{collections: map[string]*models.Collection{
		"col-1": {ID: "col-1", Name: "Class Shirts", Status: models.CollectionStatusActive},
	}}
	svc := NewRemittanceService(repo, nil, nil)

	remittance, err := svc.Remit(context.Background(), "col-1", RemitRequest{PaidBy: "Ana Cruz", ReceivedBy: "Adviser"})
	require.NoError(t, err)
	assert.Equal(t, "Ana Cruz", remittance.PaidBy)
	assert.False(t, remittance.RemittedAt.IsZero())
	assert.Equal(t, models.CollectionStatusRemitted, repo.collections["col-1"].Status)
	assert.Len(t, repo.remittances, 1)
}

func TestRemitTwiceFails(t *testing.T) {
	repo := &mockRemittanceRepo{collections: map[string]*models.Collection{
		"col-1": {ID: "col-1", Status: models.CollectionStatusRemitted},
	}}
	svc := NewRemittanceService(repo, nil, nil)

	_, err := svc.Remit(context.Background(), "col-1", RemitRequest{PaidBy: "Ana", ReceivedBy: "Adviser"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrRemitted.Code, appErrors.FromError(err).Code)
}

func TestArchiveRequiresRemittedStatus(t *testing.T) {
	repo := &mockRemittanceRepo{collections: map[string]*models.Collection{
		"col-1": {ID: "col-1", Status: models.CollectionStatusActive},
		"col-2": {ID: "col-2", Status: models.CollectionStatusRemitted},
	}}
	svc := NewRemittanceService(repo, nil, nil)
	ctx := context.Background()

	err := svc.Archive(ctx, "col-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Archive(ctx, "col-2"))
	assert.Equal(t, models.CollectionStatusArchived, repo.collections["col-2"].Status)
}

func TestUnarchiveRestoresRemitted(t *testing.T) {
	repo := &mockRemittanceRepo{collections: map[string]*models.Collection{
		"col-1": {ID: "col-1", Status: models.CollectionStatusArchived},
	}}
	svc := NewRemittanceService(repo, nil, nil)

	require.NoError(t, svc.Unarchive(context.Background(), "col-1"))
	assert.Equal(t, models.CollectionStatusRemitted, repo.collections["col-1"].Status)
}

func TestRemitUnknownCollection(t *testing.T) {
	svc := NewRemittanceService(&mockRemittanceRepo{collections: map[string]*models.Collection{}}, nil, nil)

	_, err := svc.Remit(context.Background(), "ghost", RemitRequest{PaidBy: "Ana", ReceivedBy: "Adviser"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

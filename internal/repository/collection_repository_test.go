package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/class-treasury-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestCollectionRepositoryFindByIDDecodesSchema(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCollectionRepository(db)

	fields := `[{"id":"f-shirt","name":"Shirt","type":"checkbox","options":[{"id":"o1","value":"Small","amount":150}]}]`
	now := time.Now()
	mock.ExpectQuery("SELECT id, name, target_amount, deadline, notes, status, custom_fields, included_student_ids, created_at, updated_at\\s+FROM collections WHERE id = \\$1").
		WithArgs("col-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "target_amount", "deadline", "notes", "status", "custom_fields", "included_student_ids", "created_at", "updated_at"}).
			AddRow("col-1", "Shirts", 100.0, nil, "", "ACTIVE", []byte(fields), nil, now, now))
	mock.ExpectQuery("SELECT collection_id, student_id, amount, answers, recorded_at FROM payments WHERE collection_id = \\$1").
		WithArgs("col-1").
		WillReturnRows(sqlmock.NewRows([]string{"collection_id", "student_id", "amount", "answers", "recorded_at"}).
			AddRow("col-1", "stu-1", 150.0, []byte(`{"f-shirt":"Small"}`), now))
	mock.ExpectQuery("SELECT collection_id, paid_by, received_by, remitted_at FROM remittances WHERE collection_id = \\$1").
		WithArgs("col-1").
		WillReturnRows(sqlmock.NewRows([]string{"collection_id", "paid_by", "received_by", "remitted_at"}))

	collection, err := repo.FindByID(context.Background(), "col-1")
	require.NoError(t, err)
	require.Len(t, collection.CustomFields, 1)
	assert.Equal(t, "Shirt", collection.CustomFields[0].Name)
	require.Len(t, collection.Payments, 1)
	assert.Equal(t, "Small", collection.Payments[0].Answers["f-shirt"])
	assert.Nil(t, collection.Remittance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollectionRepositoryFindByIDMalformedSchema(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCollectionRepository(db)

	now := time.Now()
	mock.ExpectQuery("SELECT id, name, target_amount, deadline, notes, status, custom_fields, included_student_ids, created_at, updated_at\\s+FROM collections WHERE id = \\$1").
		WithArgs("col-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "target_amount", "deadline", "notes", "status", "custom_fields", "included_student_ids", "created_at", "updated_at"}).
			AddRow("col-1", "Shirts", nil, nil, "", "ACTIVE", []byte(`{not json`), nil, now, now))

	_, err := repo.FindByID(context.Background(), "col-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode custom fields")
}

func TestCollectionRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCollectionRepository(db)

	mock.ExpectExec("INSERT INTO collections").
		WithArgs(sqlmock.AnyArg(), "Field Trip", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	collection := &models.Collection{Name: "Field Trip"}
	require.NoError(t, repo.Create(context.Background(), collection))
	assert.NotEmpty(t, collection.ID)
	assert.Equal(t, models.CollectionStatusActive, collection.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollectionRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCollectionRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, target_amount, deadline, notes, status, custom_fields, included_student_ids, created_at, updated_at")).
		WithArgs("ACTIVE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "target_amount", "deadline", "notes", "status", "custom_fields", "included_student_ids", "created_at", "updated_at"}).
			AddRow("col-1", "Shirts", 100.0, nil, "", "ACTIVE", nil, nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM collections")).
		WithArgs("ACTIVE").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	collections, total, err := repo.List(context.Background(), models.CollectionFilter{Status: models.CollectionStatusActive})
	require.NoError(t, err)
	assert.Len(t, collections, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollectionRepositoryUpdateStatusMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCollectionRepository(db)

	mock.ExpectExec("UPDATE collections SET status").
		WithArgs("col-x", "REMITTED", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "col-x", models.CollectionStatusRemitted)
	assert.Error(t, err)
}

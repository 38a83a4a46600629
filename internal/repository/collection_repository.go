package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/class-treasury-api/internal/models"
	appErrors "github.com/noah-isme/class-treasury-api/pkg/errors"
)

// CollectionRepository manages persistence for collections, including the
// JSONB-encoded custom-field schema and the payment roster.
type CollectionRepository struct {
	db *sqlx.DB
}

// NewCollectionRepository constructs a CollectionRepository.
func NewCollectionRepository(db *sqlx.DB) *CollectionRepository {
	return &CollectionRepository{db: db}
}

type collectionRow struct {
	ID           string                 `db:"id"`
	Name         string                 `db:"name"`
	TargetAmount *float64               `db:"target_amount"`
	Deadline     *time.Time             `db:"deadline"`
	Notes        string                 `db:"notes"`
	Status       models.CollectionStatus `db:"status"`
	CustomFields []byte                 `db:"custom_fields"`
	IncludedIDs  []byte                 `db:"included_student_ids"`
	CreatedAt    time.Time              `db:"created_at"`
	UpdatedAt    time.Time              `db:"updated_at"`
}

func (row collectionRow) toModel() (*models.Collection, error) {
	collection := &models.Collection{
		ID:           row.ID,
		Name:         row.Name,
		TargetAmount: row.TargetAmount,
		Deadline:     row.Deadline,
		Notes:        row.Notes,
		Status:       row.Status,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if len(row.CustomFields) > 0 {
		if err := json.Unmarshal(row.CustomFields, &collection.CustomFields); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrMalformedSchema.Code, appErrors.ErrMalformedSchema.Status, fmt.Sprintf("decode custom fields of collection %s", row.ID))
		}
	}
	if len(row.IncludedIDs) > 0 {
		if err := json.Unmarshal(row.IncludedIDs, &collection.IncludedStudentIDs); err != nil {
			return nil, fmt.Errorf("decode included students of collection %s: %w", row.ID, err)
		}
	}
	return collection, nil
}

func encodeCollection(collection *models.Collection) (customFields, includedIDs []byte, err error) {
	if len(collection.CustomFields) > 0 {
		customFields, err = json.Marshal(collection.CustomFields)
		if err != nil {
			return nil, nil, fmt.Errorf("encode custom fields: %w", err)
		}
	}
	if len(collection.IncludedStudentIDs) > 0 {
		includedIDs, err = json.Marshal(collection.IncludedStudentIDs)
		if err != nil {
			return nil, nil, fmt.Errorf("encode included students: %w", err)
		}
	}
	return customFields, includedIDs, nil
}

// List returns collections matching the filter, without payments attached.
func (r *CollectionRepository) List(ctx context.Context, filter models.CollectionFilter) ([]models.Collection, int, error) {
	base := "FROM collections"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortColumn := map[string]string{
		"name":       "name",
		"deadline":   "deadline",
		"created_at": "created_at",
	}[filter.SortBy]
	if sortColumn == "" {
		sortColumn = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}

	query := fmt.Sprintf(`SELECT id, name, target_amount, deadline, notes, status, custom_fields, included_student_ids, created_at, updated_at
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, sortColumn, order, size, (page-1)*size)

	var rows []collectionRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list collections: %w", err)
	}

	collections := make([]models.Collection, 0, len(rows))
	for _, row := range rows {
		collection, err := row.toModel()
		if err != nil {
			return nil, 0, err
		}
		collections = append(collections, *collection)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count collections: %w", err)
	}
	return collections, total, nil
}

// FindByID loads one collection with its payments and remittance attached.
func (r *CollectionRepository) FindByID(ctx context.Context, id string) (*models.Collection, error) {
	var row collectionRow
	query := `SELECT id, name, target_amount, deadline, notes, status, custom_fields, included_student_ids, created_at, updated_at
        FROM collections WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	collection, err := row.toModel()
	if err != nil {
		return nil, err
	}

	payments, err := r.listPayments(ctx, id)
	if err != nil {
		return nil, err
	}
	collection.Payments = payments

	var remittance models.Remittance
	err = r.db.GetContext(ctx, &remittance, `SELECT collection_id, paid_by, received_by, remitted_at FROM remittances WHERE collection_id = $1`, id)
	switch err {
	case nil:
		collection.Remittance = &remittance
	case sql.ErrNoRows:
	default:
		return nil, fmt.Errorf("load remittance of collection %s: %w", id, err)
	}

	return collection, nil
}

// Create inserts a new collection.
func (r *CollectionRepository) Create(ctx context.Context, collection *models.Collection) error {
	if collection.ID == "" {
		collection.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	collection.CreatedAt = now
	collection.UpdatedAt = now
	if collection.Status == "" {
		collection.Status = models.CollectionStatusActive
	}

	customFields, includedIDs, err := encodeCollection(collection)
	if err != nil {
		return err
	}

	query := `INSERT INTO collections (id, name, target_amount, deadline, notes, status, custom_fields, included_student_ids, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err := r.db.ExecContext(ctx, query,
		collection.ID, collection.Name, collection.TargetAmount, collection.Deadline, collection.Notes,
		collection.Status, customFields, includedIDs, collection.CreatedAt, collection.UpdatedAt); err != nil {
		return fmt.Errorf("insert collection: %w", err)
	}
	return nil
}

// Update rewrites the mutable columns of a collection.
func (r *CollectionRepository) Update(ctx context.Context, collection *models.Collection) error {
	collection.UpdatedAt = time.Now().UTC()

	customFields, includedIDs, err := encodeCollection(collection)
	if err != nil {
		return err
	}

	query := `UPDATE collections SET name = $2, target_amount = $3, deadline = $4, notes = $5, status = $6,
        custom_fields = $7, included_student_ids = $8, updated_at = $9 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query,
		collection.ID, collection.Name, collection.TargetAmount, collection.Deadline, collection.Notes,
		collection.Status, customFields, includedIDs, collection.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update collection: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatus moves a collection through its remittance lifecycle.
func (r *CollectionRepository) UpdateStatus(ctx context.Context, id string, status models.CollectionStatus) error {
	result, err := r.db.ExecContext(ctx, `UPDATE collections SET status = $2, updated_at = $3 WHERE id = $1`, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update collection status: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a collection and, via cascading constraints, its payments.
func (r *CollectionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM collections WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreateRemittance records the hand-over of a collection's funds.
func (r *CollectionRepository) CreateRemittance(ctx context.Context, remittance *models.Remittance) error {
	query := `INSERT INTO remittances (collection_id, paid_by, received_by, remitted_at) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, remittance.CollectionID, remittance.PaidBy, remittance.ReceivedBy, remittance.RemittedAt); err != nil {
		return fmt.Errorf("insert remittance: %w", err)
	}
	return nil
}

type paymentRow struct {
	CollectionID string    `db:"collection_id"`
	StudentID    string    `db:"student_id"`
	Amount       float64   `db:"amount"`
	Answers      []byte    `db:"answers"`
	RecordedAt   time.Time `db:"recorded_at"`
}

func (r *CollectionRepository) listPayments(ctx context.Context, collectionID string) ([]models.Payment, error) {
	var rows []paymentRow
	query := `SELECT collection_id, student_id, amount, answers, recorded_at FROM payments WHERE collection_id = $1 ORDER BY recorded_at`
	if err := r.db.SelectContext(ctx, &rows, query, collectionID); err != nil {
		return nil, fmt.Errorf("list payments of collection %s: %w", collectionID, err)
	}
	payments := make([]models.Payment, 0, len(rows))
	for _, row := range rows {
		payment := models.Payment{
			CollectionID: row.CollectionID,
			StudentID:    row.StudentID,
			Amount:       row.Amount,
			RecordedAt:   row.RecordedAt,
		}
		if len(row.Answers) > 0 {
			if err := json.Unmarshal(row.Answers, &payment.Answers); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrMalformedSchema.Code, appErrors.ErrMalformedSchema.Status, fmt.Sprintf("decode answers of payment %s/%s", row.CollectionID, row.StudentID))
			}
		}
		payments = append(payments, payment)
	}
	return payments, nil
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/class-treasury-api/internal/models"
)

// ValueSetRepository manages the reusable option lists that fields link to.
type ValueSetRepository struct {
	db *sqlx.DB
}

// NewValueSetRepository constructs a ValueSetRepository.
func NewValueSetRepository(db *sqlx.DB) *ValueSetRepository {
	return &ValueSetRepository{db: db}
}

type valueSetRow struct {
	ID      string `db:"id"`
	Name    string `db:"name"`
	Options []byte `db:"options"`
}

func (row valueSetRow) toModel() (*models.ValueSet, error) {
	set := &models.ValueSet{ID: row.ID, Name: row.Name}
	if len(row.Options) > 0 {
		if err := json.Unmarshal(row.Options, &set.Options); err != nil {
			return nil, fmt.Errorf("decode options of value set %s: %w", row.ID, err)
		}
	}
	return set, nil
}

// List returns every value set ordered by name.
func (r *ValueSetRepository) List(ctx context.Context) ([]models.ValueSet, error) {
	var rows []valueSetRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT id, name, options FROM value_sets ORDER BY LOWER(name)`); err != nil {
		return nil, fmt.Errorf("list value sets: %w", err)
	}
	sets := make([]models.ValueSet, 0, len(rows))
	for _, row := range rows {
		set, err := row.toModel()
		if err != nil {
			return nil, err
		}
		sets = append(sets, *set)
	}
	return sets, nil
}

// FindByID returns one value set.
func (r *ValueSetRepository) FindByID(ctx context.Context, id string) (*models.ValueSet, error) {
	var row valueSetRow
	if err := r.db.GetContext(ctx, &row, `SELECT id, name, options FROM value_sets WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return row.toModel()
}

// ExistsByName reports whether another set already uses the trimmed name,
// compared case-insensitively.
func (r *ValueSetRepository) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM value_sets WHERE LOWER(TRIM(name)) = LOWER(TRIM($1)) AND id <> $2`
	if err := r.db.GetContext(ctx, &count, query, name, excludeID); err != nil {
		return false, fmt.Errorf("check value set name: %w", err)
	}
	return count > 0, nil
}

// Create inserts a new value set.
func (r *ValueSetRepository) Create(ctx context.Context, set *models.ValueSet) error {
	if set.ID == "" {
		set.ID = uuid.NewString()
	}
	options, err := json.Marshal(set.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	query := `INSERT INTO value_sets (id, name, options, created_at, updated_at) VALUES ($1, $2, $3, $4, $4)`
	if _, err := r.db.ExecContext(ctx, query, set.ID, set.Name, options, time.Now().UTC()); err != nil {
		return fmt.Errorf("insert value set: %w", err)
	}
	return nil
}

// Update rewrites a value set's name and options.
func (r *ValueSetRepository) Update(ctx context.Context, set *models.ValueSet) error {
	options, err := json.Marshal(set.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	result, err := r.db.ExecContext(ctx, `UPDATE value_sets SET name = $2, options = $3, updated_at = $4 WHERE id = $1`,
		set.ID, set.Name, options, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update value set: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a value set. Fields that linked to it keep their copied
// options and a dangling reference; no cleanup is owed.
func (r *ValueSetRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM value_sets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete value set: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

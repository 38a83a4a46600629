package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/class-treasury-api/internal/models"
)

// PaymentRepository manages the payment ledger rows of collections.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs a PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Find returns the payment of one student in one collection.
func (r *PaymentRepository) Find(ctx context.Context, collectionID, studentID string) (*models.Payment, error) {
	var row paymentRow
	query := `SELECT collection_id, student_id, amount, answers, recorded_at FROM payments WHERE collection_id = $1 AND student_id = $2`
	if err := r.db.GetContext(ctx, &row, query, collectionID, studentID); err != nil {
		return nil, err
	}
	payment := &models.Payment{
		CollectionID: row.CollectionID,
		StudentID:    row.StudentID,
		Amount:       row.Amount,
		RecordedAt:   row.RecordedAt,
	}
	if len(row.Answers) > 0 {
		if err := json.Unmarshal(row.Answers, &payment.Answers); err != nil {
			return nil, fmt.Errorf("decode answers of payment %s/%s: %w", collectionID, studentID, err)
		}
	}
	return payment, nil
}

// Upsert inserts or overwrites a student's payment for a collection.
func (r *PaymentRepository) Upsert(ctx context.Context, payment *models.Payment) error {
	var answers []byte
	if len(payment.Answers) > 0 {
		var err error
		answers, err = json.Marshal(payment.Answers)
		if err != nil {
			return fmt.Errorf("encode answers: %w", err)
		}
	}

	query := `INSERT INTO payments (collection_id, student_id, amount, answers, recorded_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (collection_id, student_id)
        DO UPDATE SET amount = EXCLUDED.amount, answers = EXCLUDED.answers, recorded_at = EXCLUDED.recorded_at`
	if _, err := r.db.ExecContext(ctx, query, payment.CollectionID, payment.StudentID, payment.Amount, answers, payment.RecordedAt); err != nil {
		return fmt.Errorf("upsert payment: %w", err)
	}
	return nil
}

// Delete removes a student's payment from a collection.
func (r *PaymentRepository) Delete(ctx context.Context, collectionID, studentID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE collection_id = $1 AND student_id = $2`, collectionID, studentID)
	if err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteByCollection clears every payment of a collection.
func (r *PaymentRepository) DeleteByCollection(ctx context.Context, collectionID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE collection_id = $1`, collectionID); err != nil {
		return fmt.Errorf("delete payments of collection %s: %w", collectionID, err)
	}
	return nil
}

// ScrubAnswers removes the given field ids from every recorded answer set of
// a collection. Used after a confirmed destructive schema edit.
func (r *PaymentRepository) ScrubAnswers(ctx context.Context, collectionID string, fieldIDs []string) error {
	if len(fieldIDs) == 0 {
		return nil
	}
	query := `UPDATE payments SET answers = answers - $2::text[] WHERE collection_id = $1 AND answers IS NOT NULL`
	if _, err := r.db.ExecContext(ctx, query, collectionID, pq.Array(fieldIDs)); err != nil {
		return fmt.Errorf("scrub answers of collection %s: %w", collectionID, err)
	}
	return nil
}

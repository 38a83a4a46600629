package models

import "time"

// HistoryType labels the payment ledger transitions recorded in history.
type HistoryType string

const (
	// HistoryPaymentAdd records a payment coming into existence.
	HistoryPaymentAdd HistoryType = "payment_add"
	// HistoryPaymentUpdate records a change to a recorded amount.
	HistoryPaymentUpdate HistoryType = "payment_update"
	// HistoryPaymentRemove records a payment being deleted.
	HistoryPaymentRemove HistoryType = "payment_remove"
)

// HistoryEntry is one audit row of the payment ledger. Entries are raised only
// when the numeric amount actually changes; pure answer edits do not appear.
type HistoryEntry struct {
	ID             string      `db:"id" json:"id"`
	Type           HistoryType `db:"type" json:"type"`
	StudentID      string      `db:"student_id" json:"student_id"`
	StudentName    string      `db:"student_name" json:"student_name"`
	CollectionID   string      `db:"collection_id" json:"collection_id"`
	CollectionName string      `db:"collection_name" json:"collection_name"`
	Amount         *float64    `db:"amount" json:"amount,omitempty"`
	PreviousAmount *float64    `db:"previous_amount" json:"previous_amount,omitempty"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
}

// HistoryFilter scopes history listings.
type HistoryFilter struct {
	CollectionID string
	StudentID    string
	Type         HistoryType
	Page         int
	PageSize     int
}

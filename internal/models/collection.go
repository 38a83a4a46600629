package models

import "time"

// CollectionStatus tracks a collection through its remittance lifecycle.
type CollectionStatus string

const (
	// CollectionStatusActive accepts payments.
	CollectionStatusActive CollectionStatus = "ACTIVE"
	// CollectionStatusRemitted has been handed over; payments are read-only.
	CollectionStatusRemitted CollectionStatus = "REMITTED"
	// CollectionStatusArchived is a remitted collection moved out of the
	// remitted list for long-term record keeping.
	CollectionStatusArchived CollectionStatus = "ARCHIVED"
)

// Collection is a fundraising campaign with an optional custom-field schema
// and a roster of payments. TargetAmount is the flat per-student fallback used
// only when no priced option was selected anywhere in the field tree.
type Collection struct {
	ID                 string           `db:"id" json:"id"`
	Name               string           `db:"name" json:"name"`
	TargetAmount       *float64         `db:"target_amount" json:"target_amount,omitempty"`
	Deadline           *time.Time       `db:"deadline" json:"deadline,omitempty"`
	Notes              string           `db:"notes" json:"notes,omitempty"`
	Status             CollectionStatus `db:"status" json:"status"`
	CustomFields       []CustomField    `db:"-" json:"custom_fields,omitempty"`
	IncludedStudentIDs []string         `db:"-" json:"included_student_ids,omitempty"`
	Payments           []Payment        `db:"-" json:"payments,omitempty"`
	Remittance         *Remittance      `db:"-" json:"remittance,omitempty"`
	CreatedAt          time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time        `db:"updated_at" json:"updated_at"`
}

// Payment is the recorded contribution of one student to one collection,
// including the answers to the collection's custom fields.
type Payment struct {
	CollectionID string    `db:"collection_id" json:"collection_id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	Amount       float64   `db:"amount" json:"amount"`
	Answers      AnswerSet `db:"-" json:"custom_field_values,omitempty"`
	RecordedAt   time.Time `db:"recorded_at" json:"recorded_at"`
}

// Remittance records the hand-over of a collection's funds.
type Remittance struct {
	CollectionID string    `db:"collection_id" json:"collection_id"`
	PaidBy       string    `db:"paid_by" json:"paid_by"`
	ReceivedBy   string    `db:"received_by" json:"received_by"`
	RemittedAt   time.Time `db:"remitted_at" json:"remitted_at"`
}

// CollectionFilter captures listing criteria for collections.
type CollectionFilter struct {
	Status    CollectionStatus
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// PaymentOf returns the payment recorded for the student, if any.
func (c *Collection) PaymentOf(studentID string) (Payment, bool) {
	for _, p := range c.Payments {
		if p.StudentID == studentID {
			return p, true
		}
	}
	return Payment{}, false
}

// FundsSummary aggregates cash-on-hand figures for the dashboard.
type FundsSummary struct {
	TotalOnHand float64            `json:"total_on_hand"`
	Collections []CollectionOnHand `json:"collections"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// CollectionOnHand is one collection's contribution to cash on hand.
type CollectionOnHand struct {
	CollectionID   string  `json:"collection_id"`
	CollectionName string  `json:"collection_name"`
	Collected      float64 `json:"collected"`
	PayerCount     int     `json:"payer_count"`
}

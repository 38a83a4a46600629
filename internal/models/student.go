package models

import "time"

// Student is one member of the class roster.
type Student struct {
	ID        string    `db:"id" json:"id"`
	StudentNo string    `db:"student_no" json:"student_no"`
	FullName  string    `db:"full_name" json:"full_name"`
	Notes     string    `db:"notes" json:"notes,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter captures filtering criteria for listing students. Unpaged
// disables pagination for roster-wide operations.
type StudentFilter struct {
	Search    string
	Active    *bool
	Unpaged   bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

package models

import "time"

// PaymentRowStatus is the persisted state of one billing-period obligation.
type PaymentRowStatus string

const (
	PaymentRowOpen PaymentRowStatus = "open"
	PaymentRowPaid PaymentRowStatus = "paid"
)

// Payment represents one billing period's obligation for a student. More
// than one row may exist for the same calendar month (corrections); the
// engine selects the authoritative one.
type Payment struct {
	ID        string           `db:"id" json:"id"`
	StudentID string           `db:"student_id" json:"student_id"`
	Amount    float64          `db:"amount" json:"amount"`
	StartDate time.Time        `db:"start_date" json:"start_date"`
	EndDate   *time.Time       `db:"end_date" json:"end_date,omitempty"`
	Status    PaymentRowStatus `db:"status" json:"status"`
	PaidAt    *time.Time       `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// PaymentFilter defines query filters for payment listings.
type PaymentFilter struct {
	StudentID string
	From      *time.Time
	To        *time.Time
	Status    *PaymentRowStatus
	Page      int
	PageSize  int
}

// PaymentRecord extends a payment row with student metadata and the
// derived financial standing for display.
type PaymentRecord struct {
	Payment
	StudentName   string `db:"student_name" json:"student_name"`
	DerivedStatus string `json:"derived_status"`
}

package models

import "time"

// Session represents a scheduled class slot used for capacity grouping
// during check-in.
type Session struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Instructor  string    `db:"instructor" json:"instructor"`
	ScheduledAt time.Time `db:"scheduled_at" json:"scheduled_at"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

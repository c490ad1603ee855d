package models

import "time"

// CheckinSource distinguishes how a check-in was initiated.
type CheckinSource string

const (
	CheckinSourceManual CheckinSource = "manual"
	CheckinSourceScan   CheckinSource = "scan"
)

// Valid returns true when the source is a supported value.
func (s CheckinSource) Valid() bool {
	return s == CheckinSourceManual || s == CheckinSourceScan
}

// Attendance represents a single accepted check-in. Rows are written once
// and never mutated; counters can be recomputed from them.
type Attendance struct {
	ID         string        `db:"id" json:"id"`
	StudentID  string        `db:"student_id" json:"student_id"`
	SessionID  *string       `db:"session_id" json:"session_id,omitempty"`
	Belt       Belt          `db:"belt" json:"belt"`
	Source     CheckinSource `db:"source" json:"source"`
	AttendedAt time.Time     `db:"attended_at" json:"attended_at"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
}

// AttendanceFilter defines query filters for attendance listings.
type AttendanceFilter struct {
	StudentID string
	SessionID string
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
}

// AttendanceRecord extends an attendance row with student metadata.
type AttendanceRecord struct {
	Attendance
	StudentName string `db:"student_name" json:"student_name"`
}

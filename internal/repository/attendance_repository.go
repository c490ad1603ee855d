package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dojoflow/dojoflow-api/internal/models"
)

// AttendanceRepository manages persistence for check-in records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs an AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Insert writes a single attendance row. Rows are append-only.
func (r *AttendanceRepository) Insert(ctx context.Context, att *models.Attendance) error {
	if att.ID == "" {
		att.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if att.AttendedAt.IsZero() {
		att.AttendedAt = now
	}
	if att.CreatedAt.IsZero() {
		att.CreatedAt = now
	}
	const query = `INSERT INTO attendances (id, student_id, session_id, belt, source, attended_at, created_at)
        VALUES (:id, :student_id, :session_id, :belt, :source, :attended_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, att); err != nil {
		return fmt.Errorf("insert attendance: %w", err)
	}
	return nil
}

// CountBySession returns the current attendee count for a session.
func (r *AttendanceRepository) CountBySession(ctx context.Context, sessionID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM attendances WHERE session_id = $1", sessionID); err != nil {
		return 0, fmt.Errorf("count session attendance: %w", err)
	}
	return count, nil
}

// MostRecentSince returns the timestamp of the student's latest check-in
// at or after the given instant, or nil when none exists.
func (r *AttendanceRepository) MostRecentSince(ctx context.Context, studentID string, since time.Time) (*time.Time, error) {
	const query = `SELECT attended_at FROM attendances WHERE student_id = $1 AND attended_at >= $2 ORDER BY attended_at DESC LIMIT 1`
	var ts time.Time
	if err := r.db.GetContext(ctx, &ts, query, studentID, since); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("most recent attendance: %w", err)
	}
	return &ts, nil
}

// ListTimesSince returns the attendance timestamps for a student at or
// after the given instant, oldest first.
func (r *AttendanceRepository) ListTimesSince(ctx context.Context, studentID string, since time.Time) ([]time.Time, error) {
	const query = `SELECT attended_at FROM attendances WHERE student_id = $1 AND attended_at >= $2 ORDER BY attended_at ASC`
	var times []time.Time
	if err := r.db.SelectContext(ctx, &times, query, studentID, since); err != nil {
		return nil, fmt.Errorf("list attendance times: %w", err)
	}
	return times, nil
}

// CountBetween returns the number of check-ins inside [from, to).
func (r *AttendanceRepository) CountBetween(ctx context.Context, from, to time.Time) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM attendances WHERE attended_at >= $1 AND attended_at < $2", from, to); err != nil {
		return 0, fmt.Errorf("count attendance between: %w", err)
	}
	return count, nil
}

// List returns attendance rows with student metadata matching the filter.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	base := "FROM attendances a JOIN students s ON s.id = a.student_id"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("a.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.SessionID != "" {
		conditions = append(conditions, fmt.Sprintf("a.session_id = $%d", len(args)+1))
		args = append(args, filter.SessionID)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("a.attended_at >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("a.attended_at <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT a.id, a.student_id, a.session_id, a.belt, a.source, a.attended_at, a.created_at,
        s.full_name AS student_name
        %s ORDER BY a.attended_at DESC LIMIT %d OFFSET %d`, base, size, offset)

	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}
	return rows, total, nil
}

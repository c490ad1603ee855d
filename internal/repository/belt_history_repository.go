package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dojoflow/dojoflow-api/internal/models"
)

// BeltHistoryRepository manages the append-only award history.
type BeltHistoryRepository struct {
	db *sqlx.DB
}

// NewBeltHistoryRepository constructs a BeltHistoryRepository.
func NewBeltHistoryRepository(db *sqlx.DB) *BeltHistoryRepository {
	return &BeltHistoryRepository{db: db}
}

// Append records a degree or belt award. History rows are never updated.
func (r *BeltHistoryRepository) Append(ctx context.Context, entry *models.BeltHistory) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.AwardedAt.IsZero() {
		entry.AwardedAt = time.Now().UTC()
	}
	const query = `INSERT INTO belt_history (id, student_id, belt, degree, notes, awarded_at)
        VALUES (:id, :student_id, :belt, :degree, :notes, :awarded_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("append belt history: %w", err)
	}
	return nil
}

// ListByStudent returns a student's award history, newest first.
func (r *BeltHistoryRepository) ListByStudent(ctx context.Context, studentID string) ([]models.BeltHistory, error) {
	const query = `SELECT id, student_id, belt, degree, notes, awarded_at
        FROM belt_history WHERE student_id = $1 ORDER BY awarded_at DESC`
	var entries []models.BeltHistory
	if err := r.db.SelectContext(ctx, &entries, query, studentID); err != nil {
		return nil, fmt.Errorf("list belt history: %w", err)
	}
	return entries, nil
}

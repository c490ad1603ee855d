package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dojoflow/dojoflow-api/internal/models"
)

// PaymentRepository manages persistence for billing-period obligations.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs a PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// ListForPeriod returns a student's payment rows whose period starts
// inside [from, to). Corrections may yield several rows for one month;
// the engine picks the authoritative one.
func (r *PaymentRepository) ListForPeriod(ctx context.Context, studentID string, from, to time.Time) ([]models.Payment, error) {
	const query = `SELECT id, student_id, amount, start_date, end_date, status, paid_at, created_at
        FROM payments WHERE student_id = $1 AND start_date >= $2 AND start_date < $3
        ORDER BY created_at DESC`
	var rows []models.Payment
	if err := r.db.SelectContext(ctx, &rows, query, studentID, from, to); err != nil {
		return nil, fmt.Errorf("list payments for period: %w", err)
	}
	return rows, nil
}

// ListAllForPeriod returns every payment row whose period starts inside
// [from, to), across students, for delinquency summaries.
func (r *PaymentRepository) ListAllForPeriod(ctx context.Context, from, to time.Time) ([]models.Payment, error) {
	const query = `SELECT id, student_id, amount, start_date, end_date, status, paid_at, created_at
        FROM payments WHERE start_date >= $1 AND start_date < $2
        ORDER BY student_id, created_at DESC`
	var rows []models.Payment
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("list payments for month: %w", err)
	}
	return rows, nil
}

// List returns payment rows with student metadata matching the filter.
func (r *PaymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentRecord, int, error) {
	base := "FROM payments p JOIN students s ON s.id = p.student_id"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("p.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("p.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("p.start_date >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("p.start_date < $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT p.id, p.student_id, p.amount, p.start_date, p.end_date, p.status, p.paid_at, p.created_at,
        s.full_name AS student_name
        %s ORDER BY p.start_date DESC, p.created_at DESC LIMIT %d OFFSET %d`, base, size, offset)

	var rows []models.PaymentRecord
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}
	return rows, total, nil
}

// FindByID fetches a payment row by ID.
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	const query = `SELECT id, student_id, amount, start_date, end_date, status, paid_at, created_at
        FROM payments WHERE id = $1`
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, id); err != nil {
		return nil, err
	}
	return &payment, nil
}

// Create inserts a new payment obligation.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO payments (id, student_id, amount, start_date, end_date, status, paid_at, created_at)
        VALUES (:id, :student_id, :amount, :start_date, :end_date, :status, :paid_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// MarkPaid settles an open payment row.
func (r *PaymentRepository) MarkPaid(ctx context.Context, id string, paidAt time.Time) error {
	const query = `UPDATE payments SET status = $2, paid_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.PaymentRowPaid, paidAt); err != nil {
		return fmt.Errorf("mark payment paid: %w", err)
	}
	return nil
}

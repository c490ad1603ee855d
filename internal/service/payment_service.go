package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/dojoflow/dojoflow-api/internal/belt"
	"github.com/dojoflow/dojoflow-api/internal/models"
	appErrors "github.com/dojoflow/dojoflow-api/pkg/errors"
)

type paymentRepository interface {
	List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentRecord, int, error)
	ListForPeriod(ctx context.Context, studentID string, from, to time.Time) ([]models.Payment, error)
	ListAllForPeriod(ctx context.Context, from, to time.Time) ([]models.Payment, error)
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	Create(ctx context.Context, payment *models.Payment) error
	MarkPaid(ctx context.Context, id string, paidAt time.Time) error
}

type paymentStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// PaymentService manages billing-period obligations and derives the
// financial standing used by admission and the front desk.
type PaymentService struct {
	repo        paymentRepository
	studentRepo paymentStudentRepository
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewPaymentService constructs the payment service.
func NewPaymentService(repo paymentRepository, students paymentStudentRepository, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		repo:        repo,
		studentRepo: students,
		validator:   validate,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// List returns payment rows with their derived standing at evaluation
// time.
func (s *PaymentService) List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentRecord, *models.Pagination, error) {
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, err
	}
	now := s.now()
	for i := range records {
		records[i].DerivedStatus = string(belt.ComputePaymentStatus(&records[i].Payment, now))
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return records, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// CreatePaymentRequest opens a billing-period obligation.
type CreatePaymentRequest struct {
	StudentID string     `json:"student_id" validate:"required"`
	Amount    float64    `json:"amount" validate:"required,gt=0"`
	StartDate time.Time  `json:"start_date" validate:"required"`
	EndDate   *time.Time `json:"end_date"`
}

// Create opens a new obligation for a student.
func (s *PaymentService) Create(ctx context.Context, req CreatePaymentRequest) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if req.EndDate != nil && req.EndDate.Before(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not precede start_date")
	}

	if _, err := s.studentRepo.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, fmt.Errorf("load student: %w", err)
	}

	payment := &models.Payment{
		StudentID: req.StudentID,
		Amount:    req.Amount,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Status:    models.PaymentRowOpen,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	return payment, nil
}

// MarkPaid settles an open payment. Settling an already-paid row is a
// conflict.
func (s *PaymentService) MarkPaid(ctx context.Context, id string) (*models.Payment, error) {
	payment, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load payment: %w", err)
	}
	if payment.Status == models.PaymentRowPaid {
		return nil, appErrors.Clone(appErrors.ErrConflict, "payment is already settled")
	}

	paidAt := s.now()
	if err := s.repo.MarkPaid(ctx, id, paidAt); err != nil {
		return nil, fmt.Errorf("mark payment paid: %w", err)
	}
	payment.Status = models.PaymentRowPaid
	payment.PaidAt = &paidAt

	s.logger.Info("payment settled",
		zap.String("payment_id", id),
		zap.String("student_id", payment.StudentID))
	return payment, nil
}

// StudentStanding reports a student's derived standing for the current
// month.
type StudentStanding struct {
	StudentID string             `json:"student_id"`
	Status    belt.PaymentStatus `json:"status"`
	Payment   *models.Payment    `json:"payment,omitempty"`
}

// Standing derives a student's financial standing for the month
// containing now, using the same selection the admission rules apply.
func (s *PaymentService) Standing(ctx context.Context, studentID string) (*StudentStanding, error) {
	if _, err := s.studentRepo.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, fmt.Errorf("load student: %w", err)
	}

	now := s.now()
	from, to := belt.MonthRange(now)
	rows, err := s.repo.ListForPeriod(ctx, studentID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}

	authoritative := belt.AuthoritativePayment(rows)
	return &StudentStanding{
		StudentID: studentID,
		Status:    belt.ComputePaymentStatus(authoritative, now),
		Payment:   authoritative,
	}, nil
}

// DelinquencySummary aggregates standings across the month's obligations.
type DelinquencySummary struct {
	Month      time.Time `json:"month"`
	Paid       int       `json:"paid"`
	Pending    int       `json:"pending"`
	Late       int       `json:"late"`
	Delinquent int       `json:"delinquent"`
	BlockedIDs []string  `json:"blocked_student_ids"`
}

// Delinquency summarises per-student standings for the current month.
func (s *PaymentService) Delinquency(ctx context.Context) (*DelinquencySummary, error) {
	now := s.now()
	from, to := belt.MonthRange(now)
	rows, err := s.repo.ListAllForPeriod(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load month payments: %w", err)
	}

	byStudent := make(map[string][]models.Payment)
	for _, row := range rows {
		byStudent[row.StudentID] = append(byStudent[row.StudentID], row)
	}

	summary := &DelinquencySummary{Month: from}
	for studentID, studentRows := range byStudent {
		status := belt.ComputePaymentStatus(belt.AuthoritativePayment(studentRows), now)
		switch status {
		case belt.PaymentPaid:
			summary.Paid++
		case belt.PaymentPending:
			summary.Pending++
		case belt.PaymentLate:
			summary.Late++
		case belt.PaymentDelinquent:
			summary.Delinquent++
			summary.BlockedIDs = append(summary.BlockedIDs, studentID)
		}
	}
	return summary, nil
}

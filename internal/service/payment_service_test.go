package service

import (
	"context"
	"database/sql"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dojoflow/dojoflow-api/internal/belt"
	"github.com/dojoflow/dojoflow-api/internal/models"
	appErrors "github.com/dojoflow/dojoflow-api/pkg/errors"
)

type mockFullPaymentRepo struct {
	byID    map[string]models.Payment
	monthly []models.Payment
	paid    []string
}

func (m *mockFullPaymentRepo) List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentRecord, int, error) {
	var out []models.PaymentRecord
	for _, p := range m.byID {
		out = append(out, models.PaymentRecord{Payment: p})
	}
	return out, len(out), nil
}

func (m *mockFullPaymentRepo) ListForPeriod(ctx context.Context, studentID string, from, to time.Time) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range m.monthly {
		if p.StudentID == studentID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockFullPaymentRepo) ListAllForPeriod(ctx context.Context, from, to time.Time) ([]models.Payment, error) {
	return m.monthly, nil
}

func (m *mockFullPaymentRepo) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	if p, ok := m.byID[id]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockFullPaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	if m.byID == nil {
		m.byID = make(map[string]models.Payment)
	}
	if payment.ID == "" {
		payment.ID = "new-payment"
	}
	m.byID[payment.ID] = *payment
	return nil
}

func (m *mockFullPaymentRepo) MarkPaid(ctx context.Context, id string, paidAt time.Time) error {
	if p, ok := m.byID[id]; ok {
		p.Status = models.PaymentRowPaid
		p.PaidAt = &paidAt
		m.byID[id] = p
	}
	m.paid = append(m.paid, id)
	return nil
}

func paymentServiceFixture(now time.Time) (*mockFullPaymentRepo, *PaymentService) {
	repo := &mockFullPaymentRepo{}
	students := &mockStudentRepo{students: map[string]models.Student{
		"stu-1": {ID: "stu-1", Active: true},
	}}
	svc := NewPaymentService(repo, students, nil, nil)
	svc.now = func() time.Time { return now }
	return repo, svc
}

func TestPaymentCreateRejectsInvertedPeriod(t *testing.T) {
	now := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	_, svc := paymentServiceFixture(now)

	end := now.AddDate(0, -1, 0)
	_, err := svc.Create(context.Background(), CreatePaymentRequest{
		StudentID: "stu-1",
		Amount:    150,
		StartDate: now,
		EndDate:   &end,
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestPaymentCreateUnknownStudent(t *testing.T) {
	now := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	_, svc := paymentServiceFixture(now)

	_, err := svc.Create(context.Background(), CreatePaymentRequest{
		StudentID: "ghost",
		Amount:    150,
		StartDate: now,
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestPaymentMarkPaid(t *testing.T) {
	now := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	repo, svc := paymentServiceFixture(now)
	repo.byID = map[string]models.Payment{
		"pay-1": {ID: "pay-1", StudentID: "stu-1", Status: models.PaymentRowOpen},
	}

	payment, err := svc.MarkPaid(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRowPaid, payment.Status)
	require.NotNil(t, payment.PaidAt)
	assert.True(t, payment.PaidAt.Equal(now))
}

func TestPaymentMarkPaidTwiceConflicts(t *testing.T) {
	now := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	repo, svc := paymentServiceFixture(now)
	repo.byID = map[string]models.Payment{
		"pay-1": {ID: "pay-1", StudentID: "stu-1", Status: models.PaymentRowPaid},
	}

	_, err := svc.MarkPaid(context.Background(), "pay-1")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestPaymentStandingPicksAuthoritativeRow(t *testing.T) {
	now := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	repo, svc := paymentServiceFixture(now)
	paidAt := now.AddDate(0, 0, -3)
	overdue := now.AddDate(0, 0, -10)
	repo.monthly = []models.Payment{
		{ID: "pay-1", StudentID: "stu-1", Status: models.PaymentRowOpen, EndDate: &overdue, CreatedAt: now.AddDate(0, 0, -20)},
		{ID: "pay-2", StudentID: "stu-1", Status: models.PaymentRowPaid, PaidAt: &paidAt, CreatedAt: now.AddDate(0, 0, -19)},
	}

	standing, err := svc.Standing(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, belt.PaymentPaid, standing.Status)
	assert.Equal(t, "pay-2", standing.Payment.ID)
}

func TestPaymentStandingNoObligationIsPending(t *testing.T) {
	now := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	_, svc := paymentServiceFixture(now)

	standing, err := svc.Standing(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, belt.PaymentPending, standing.Status)
	assert.Nil(t, standing.Payment)
}

func TestDelinquencySummary(t *testing.T) {
	now := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	repo, svc := paymentServiceFixture(now)
	paidAt := now.AddDate(0, 0, -2)
	justLate := now.AddDate(0, 0, -3)
	overdue := now.AddDate(0, 0, -10)
	repo.monthly = []models.Payment{
		{ID: "pay-1", StudentID: "stu-paid", Status: models.PaymentRowPaid, PaidAt: &paidAt},
		{ID: "pay-2", StudentID: "stu-late", Status: models.PaymentRowOpen, EndDate: &justLate},
		{ID: "pay-3", StudentID: "stu-blocked", Status: models.PaymentRowOpen, EndDate: &overdue},
		{ID: "pay-4", StudentID: "stu-pending", Status: models.PaymentRowOpen},
	}

	summary, err := svc.Delinquency(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Paid)
	assert.Equal(t, 1, summary.Pending)
	assert.Equal(t, 1, summary.Late)
	assert.Equal(t, 1, summary.Delinquent)
	sort.Strings(summary.BlockedIDs)
	assert.Equal(t, []string{"stu-blocked"}, summary.BlockedIDs)
}

package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/dojoflow/dojoflow-api/internal/models"
)

func newPaymentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestPaymentRepositoryListForPeriod(t *testing.T) {
	db, mock, cleanup := newPaymentRepoMock(t)
	defer cleanup()

	repo := NewPaymentRepository(db)
	from := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	end := from.AddDate(0, 0, 27)

	rows := sqlmock.NewRows([]string{"id", "student_id", "amount", "start_date", "end_date", "status", "paid_at", "created_at"}).
		AddRow("pay-2", "stu-1", 150.0, from, end, models.PaymentRowOpen, nil, from.Add(48*time.Hour)).
		AddRow("pay-1", "stu-1", 150.0, from, end, models.PaymentRowOpen, nil, from)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, amount, start_date")).
		WithArgs("stu-1", from, to).
		WillReturnRows(rows)

	payments, err := repo.ListForPeriod(context.Background(), "stu-1", from, to)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	require.Equal(t, "pay-2", payments[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newPaymentRepoMock(t)
	defer cleanup()

	repo := NewPaymentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO payments")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	payment := &models.Payment{
		StudentID: "stu-1",
		Amount:    150,
		StartDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		Status:    models.PaymentRowOpen,
	}
	require.NoError(t, repo.Create(context.Background(), payment))
	require.NotEmpty(t, payment.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryMarkPaid(t *testing.T) {
	db, mock, cleanup := newPaymentRepoMock(t)
	defer cleanup()

	repo := NewPaymentRepository(db)
	paidAt := time.Date(2026, 6, 5, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE payments SET status")).
		WithArgs("pay-1", models.PaymentRowPaid, paidAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkPaid(context.Background(), "pay-1", paidAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryListWithStudentName(t *testing.T) {
	db, mock, cleanup := newPaymentRepoMock(t)
	defer cleanup()

	repo := NewPaymentRepository(db)
	now := time.Now()
	status := models.PaymentRowOpen

	rows := sqlmock.NewRows([]string{"id", "student_id", "amount", "start_date", "end_date", "status", "paid_at", "created_at", "student_name"}).
		AddRow("pay-1", "stu-1", 150.0, now, nil, status, nil, now, "Ana Souza")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT p.id, p.student_id")).
		WithArgs("stu-1", status).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("stu-1", status).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	records, total, err := repo.List(context.Background(), models.PaymentFilter{
		StudentID: "stu-1",
		Status:    &status,
	})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, records, 1)
	require.Equal(t, "Ana Souza", records[0].StudentName)
	require.NoError(t, mock.ExpectationsWereMet())
}

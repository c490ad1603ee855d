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

func newAttendanceRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAttendanceRepositoryInsert(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendances")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	att := &models.Attendance{
		StudentID: "stu-1",
		Belt:      models.BeltBranca,
		Source:    models.CheckinSourceManual,
	}
	require.NoError(t, repo.Insert(context.Background(), att))
	require.NotEmpty(t, att.ID)
	require.False(t, att.AttendedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryMostRecentSince(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	since := time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)
	latest := since.Add(45 * time.Minute)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT attended_at FROM attendances")).
		WithArgs("stu-1", since).
		WillReturnRows(sqlmock.NewRows([]string{"attended_at"}).AddRow(latest))

	got, err := repo.MostRecentSince(context.Background(), "stu-1", since)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.True(t, got.Equal(latest))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryMostRecentSinceEmpty(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	since := time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT attended_at FROM attendances")).
		WithArgs("stu-1", since).
		WillReturnRows(sqlmock.NewRows([]string{"attended_at"}))

	got, err := repo.MostRecentSince(context.Background(), "stu-1", since)
	require.NoError(t, err)
	require.Nil(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "student_id", "session_id", "belt", "source", "attended_at", "created_at", "student_name"}).
		AddRow("att-1", "stu-1", nil, models.BeltBranca, models.CheckinSourceScan, now, now, "Ana Souza")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT a.id, a.student_id")).
		WithArgs("stu-1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	records, total, err := repo.List(context.Background(), models.AttendanceFilter{StudentID: "stu-1"})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, records, 1)
	require.Equal(t, "Ana Souza", records[0].StudentName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryCountBySession(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM attendances WHERE session_id")).
		WithArgs("sess-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(17))

	count, err := repo.CountBySession(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Equal(t, 17, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

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

func newStudentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func studentRows(students ...models.Student) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "full_name", "phone", "email", "photo_url", "active", "current_belt", "current_degree", "belt_since", "total_classes", "belt_lessons", "created_at", "updated_at"})
	for _, s := range students {
		rows.AddRow(s.ID, s.FullName, s.Phone, s.Email, s.PhotoURL, s.Active, s.CurrentBelt, s.CurrentDegree, s.BeltSince, s.TotalClasses, s.BeltLessons, s.CreatedAt, s.UpdatedAt)
	}
	return rows
}

func TestStudentRepositoryCreateAndFind(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO students")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	student := &models.Student{
		FullName:    "Ana Souza",
		Phone:       "+55 11 98888-0000",
		Email:       "ana@example.com",
		Active:      true,
		CurrentBelt: models.BeltAzul,
	}
	require.NoError(t, repo.Create(context.Background(), student))
	require.NotEmpty(t, student.ID)
	require.False(t, student.BeltSince.IsZero())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, full_name, phone, email")).
		WithArgs(student.ID).
		WillReturnRows(studentRows(*student))

	found, err := repo.FindByID(context.Background(), student.ID)
	require.NoError(t, err)
	require.Equal(t, student.ID, found.ID)
	require.Equal(t, models.BeltAzul, found.CurrentBelt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	now := time.Now()
	belt := models.BeltRoxa
	active := true

	mock.ExpectQuery(regexp.QuoteMeta("SELECT s.id, s.full_name")).
		WithArgs(belt, active, "%carlos%").
		WillReturnRows(studentRows(models.Student{
			ID: "stu-1", FullName: "Carlos Lima", Active: true,
			CurrentBelt: belt, BeltSince: now, CreatedAt: now, UpdatedAt: now,
		}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs(belt, active, "%carlos%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.StudentFilter{
		Belt:   &belt,
		Active: &active,
		Search: "Carlos",
	})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, students, 1)
	require.Equal(t, "stu-1", students[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateRankState(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	awardedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET current_belt")).
		WithArgs("stu-1", models.BeltMarrom, 0, awardedAt, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateRankState(context.Background(), "stu-1", models.RankState{
		Belt:      models.BeltMarrom,
		Degree:    0,
		BeltSince: awardedAt,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryIncrementCounters(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET total_classes = total_classes")).
		WithArgs("stu-1", 1, 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.IncrementCounters(context.Background(), "stu-1", 1, 1))
	require.NoError(t, mock.ExpectationsWereMet())
}

package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dojoflow/dojoflow-api/internal/belt"
	"github.com/dojoflow/dojoflow-api/internal/models"
	appErrors "github.com/dojoflow/dojoflow-api/pkg/errors"
)

type mockProgressionStudentRepo struct {
	students map[string]models.Student
	awarded  map[string]models.RankState
}

func (m *mockProgressionStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockProgressionStudentRepo) ListActive(ctx context.Context) ([]models.Student, error) {
	var list []models.Student
	for _, s := range m.students {
		if s.Active {
			list = append(list, s)
		}
	}
	return list, nil
}

func (m *mockProgressionStudentRepo) UpdateRankState(ctx context.Context, id string, state models.RankState) error {
	if m.awarded == nil {
		m.awarded = make(map[string]models.RankState)
	}
	m.awarded[id] = state
	if s, ok := m.students[id]; ok {
		s.CurrentBelt = state.Belt
		s.CurrentDegree = state.Degree
		s.BeltSince = state.BeltSince
		s.BeltLessons = 0
		m.students[id] = s
	}
	return nil
}

type mockProgressionAttendanceRepo struct {
	times map[string][]time.Time
}

func (m *mockProgressionAttendanceRepo) ListTimesSince(ctx context.Context, studentID string, since time.Time) ([]time.Time, error) {
	return m.times[studentID], nil
}

type mockBeltHistoryRepo struct {
	entries []models.BeltHistory
}

func (m *mockBeltHistoryRepo) Append(ctx context.Context, entry *models.BeltHistory) error {
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockBeltHistoryRepo) ListByStudent(ctx context.Context, studentID string) ([]models.BeltHistory, error) {
	var out []models.BeltHistory
	for _, e := range m.entries {
		if e.StudentID == studentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func progressionFixture(beltRank models.Belt, degree int, beltSince time.Time) (*mockProgressionStudentRepo, *mockProgressionAttendanceRepo, *mockBeltHistoryRepo) {
	students := &mockProgressionStudentRepo{students: map[string]models.Student{
		"stu-1": {
			ID:            "stu-1",
			FullName:      "Ana Souza",
			Active:        true,
			CurrentBelt:   beltRank,
			CurrentDegree: degree,
			BeltSince:     beltSince,
		},
	}}
	return students, &mockProgressionAttendanceRepo{times: map[string][]time.Time{}}, &mockBeltHistoryRepo{}
}

func TestProgressionProgress(t *testing.T) {
	now := time.Date(2026, 7, 15, 10, 0, 0, 0, time.UTC)
	beltSince := now.AddDate(0, -3, 0)
	students, attendance, history := progressionFixture(models.BeltBranca, 0, beltSince)
	for i := 0; i < 20; i++ {
		attendance.times["stu-1"] = append(attendance.times["stu-1"], beltSince.Add(time.Duration(i)*72*time.Hour))
	}

	svc := NewProgressionService(students, attendance, history, belt.DefaultClubConfig(), nil, nil)
	svc.now = func() time.Time { return now }

	result, err := svc.Progress(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 20, result.AttendedSinceBelt)
	assert.True(t, result.ReadyForDegree)
	assert.Equal(t, 1, result.NextDegreeIfAwarded)
}

func TestProgressionProgressUnknownStudent(t *testing.T) {
	students, attendance, history := progressionFixture(models.BeltBranca, 0, time.Now())
	svc := NewProgressionService(students, attendance, history, belt.DefaultClubConfig(), nil, nil)

	_, err := svc.Progress(context.Background(), "ghost")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrStudentNotFoundOrInactive.Code, appErr.Code)
}

func TestPromoteAdvancesDegree(t *testing.T) {
	now := time.Date(2026, 7, 15, 10, 0, 0, 0, time.UTC)
	students, attendance, history := progressionFixture(models.BeltAzul, 2, now.AddDate(0, -6, 0))
	svc := NewProgressionService(students, attendance, history, belt.DefaultClubConfig(), nil, nil)
	svc.now = func() time.Time { return now }

	result, err := svc.Promote(context.Background(), "stu-1", PromoteRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.BeltAzul, result.Awarded.Belt)
	assert.Equal(t, 3, result.Awarded.Degree)
	assert.True(t, result.Awarded.BeltSince.Equal(now))

	require.Contains(t, students.awarded, "stu-1")
	require.Len(t, history.entries, 1)
	assert.Equal(t, 3, history.entries[0].Degree)
}

func TestPromoteRollsOverToNextBelt(t *testing.T) {
	now := time.Date(2026, 7, 15, 10, 0, 0, 0, time.UTC)
	students, attendance, history := progressionFixture(models.BeltRoxa, models.MaxDegree, now.AddDate(-2, 0, 0))
	svc := NewProgressionService(students, attendance, history, belt.DefaultClubConfig(), nil, nil)
	svc.now = func() time.Time { return now }

	result, err := svc.Promote(context.Background(), "stu-1", PromoteRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.BeltMarrom, result.Awarded.Belt)
	assert.Equal(t, 0, result.Awarded.Degree)
}

func TestPromoteBlockedAtTopRank(t *testing.T) {
	students, attendance, history := progressionFixture(models.BeltPreta, models.MaxDegree, time.Now().AddDate(-5, 0, 0))
	svc := NewProgressionService(students, attendance, history, belt.DefaultClubConfig(), nil, nil)

	_, err := svc.Promote(context.Background(), "stu-1", PromoteRequest{})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrAlreadyAtTopRank.Code, appErr.Code)
	assert.Empty(t, students.awarded)
	assert.Empty(t, history.entries)
}

func TestReadyStudentsFiltersRoster(t *testing.T) {
	now := time.Date(2026, 7, 15, 10, 0, 0, 0, time.UTC)
	beltSince := now.AddDate(0, -2, 0)
	students, attendance, history := progressionFixture(models.BeltBranca, 0, beltSince)
	students.students["stu-2"] = models.Student{
		ID: "stu-2", FullName: "Bruno Dias", Active: true,
		CurrentBelt: models.BeltBranca, BeltSince: beltSince,
	}
	for i := 0; i < 20; i++ {
		attendance.times["stu-1"] = append(attendance.times["stu-1"], beltSince.Add(time.Duration(i)*24*time.Hour))
	}

	svc := NewProgressionService(students, attendance, history, belt.DefaultClubConfig(), nil, nil)
	svc.now = func() time.Time { return now }

	ready, err := svc.ReadyStudents(context.Background())
	require.NoError(t, err)
	require.Len(t, ready, 1)
	assert.Equal(t, "stu-1", ready[0].Student.ID)
	assert.True(t, ready[0].Progress.ReadyForDegree)
}

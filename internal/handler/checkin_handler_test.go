package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dojoflow/dojoflow-api/internal/belt"
	"github.com/dojoflow/dojoflow-api/internal/models"
	"github.com/dojoflow/dojoflow-api/internal/service"
)

type fakeStudentRepo struct {
	student *models.Student
}

func (f *fakeStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if f.student != nil && f.student.ID == id {
		s := *f.student
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudentRepo) IncrementCounters(ctx context.Context, id string, total, beltLessons int) error {
	return nil
}

type fakeAttendanceRepo struct {
	lastCheckin *time.Time
}

func (f *fakeAttendanceRepo) Insert(ctx context.Context, att *models.Attendance) error {
	att.ID = "att-1"
	return nil
}

func (f *fakeAttendanceRepo) CountBySession(ctx context.Context, sessionID string) (int, error) {
	return 0, nil
}

func (f *fakeAttendanceRepo) MostRecentSince(ctx context.Context, studentID string, since time.Time) (*time.Time, error) {
	return f.lastCheckin, nil
}

func (f *fakeAttendanceRepo) ListTimesSince(ctx context.Context, studentID string, since time.Time) ([]time.Time, error) {
	return nil, nil
}

func (f *fakeAttendanceRepo) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	return nil, 0, nil
}

type fakePaymentRepo struct{ payments []models.Payment }

func (f *fakePaymentRepo) ListForPeriod(ctx context.Context, studentID string, from, to time.Time) ([]models.Payment, error) {
	return f.payments, nil
}

type fakeTokenResolver struct{}

func (f *fakeTokenResolver) Resolve(token string) (string, error) { return "", sql.ErrNoRows }

func newCheckinHandlerFixture(attendance *fakeAttendanceRepo) *CheckinHandler {
	paidAt := time.Now().Add(-24 * time.Hour)
	svc := service.NewCheckinService(
		&fakeStudentRepo{student: &models.Student{
			ID: "stu-1", Active: true, CurrentBelt: models.BeltBranca,
			BeltSince: time.Now().AddDate(0, -1, 0),
		}},
		attendance,
		&fakePaymentRepo{payments: []models.Payment{
			{ID: "pay-1", StudentID: "stu-1", Status: models.PaymentRowPaid, PaidAt: &paidAt},
		}},
		&fakeTokenResolver{},
		belt.DefaultRules(), belt.DefaultClubConfig(), nil, nil)
	return NewCheckinHandler(svc, nil, nil)
}

func performCheckin(t *testing.T, handler *CheckinHandler, payload map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/checkins", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Checkin(c)
	return rec
}

func TestCheckinHandlerAccepted(t *testing.T) {
	handler := newCheckinHandlerFixture(&fakeAttendanceRepo{})

	rec := performCheckin(t, handler, map[string]string{"student_id": "stu-1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"outcome":"accepted"`)
}

func TestCheckinHandlerDuplicateConflict(t *testing.T) {
	recent := time.Now().Add(-10 * time.Minute)
	handler := newCheckinHandlerFixture(&fakeAttendanceRepo{lastCheckin: &recent})

	rec := performCheckin(t, handler, map[string]string{"student_id": "stu-1"})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "DUPLICATE_WINDOW")
}

func TestCheckinHandlerUnknownStudent(t *testing.T) {
	handler := newCheckinHandlerFixture(&fakeAttendanceRepo{})

	rec := performCheckin(t, handler, map[string]string{"student_id": "ghost"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND_OR_INACTIVE")
}

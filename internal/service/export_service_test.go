package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dojoflow/dojoflow-api/internal/models"
	appErrors "github.com/dojoflow/dojoflow-api/pkg/errors"
	"github.com/dojoflow/dojoflow-api/pkg/jobs"
	"github.com/dojoflow/dojoflow-api/pkg/storage"
)

func queuedJob(id string) jobs.Job {
	return jobs.Job{ID: id, Enqueued: time.Now()}
}

type mockExportAttendance struct {
	records []models.AttendanceRecord
}

func (m *mockExportAttendance) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	return m.records, len(m.records), nil
}

type mockExportPayments struct {
	records []models.PaymentRecord
}

func (m *mockExportPayments) List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentRecord, int, error) {
	return m.records, len(m.records), nil
}

type mockExportJobRepo struct {
	jobs   map[string]models.ExportJob
	failed map[string]string
}

func (m *mockExportJobRepo) Create(ctx context.Context, job *models.ExportJob) error {
	if m.jobs == nil {
		m.jobs = make(map[string]models.ExportJob)
	}
	if job.ID == "" {
		job.ID = "job-1"
	}
	m.jobs[job.ID] = *job
	return nil
}

func (m *mockExportJobRepo) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	if j, ok := m.jobs[id]; ok {
		return &j, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockExportJobRepo) SetRunning(ctx context.Context, id string) error {
	j := m.jobs[id]
	j.Status = models.ExportStatusRunning
	m.jobs[id] = j
	return nil
}

func (m *mockExportJobRepo) SetDone(ctx context.Context, id, filePath string, finishedAt time.Time) error {
	j := m.jobs[id]
	j.Status = models.ExportStatusDone
	j.FilePath = &filePath
	j.FinishedAt = &finishedAt
	m.jobs[id] = j
	return nil
}

func (m *mockExportJobRepo) SetFailed(ctx context.Context, id, errMsg string, finishedAt time.Time) error {
	if m.failed == nil {
		m.failed = make(map[string]string)
	}
	m.failed[id] = errMsg
	j := m.jobs[id]
	j.Status = models.ExportStatusFailed
	j.ErrorMsg = &errMsg
	m.jobs[id] = j
	return nil
}

func exportServiceFixture(t *testing.T) (*ExportService, *mockExportJobRepo) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	jobRepo := &mockExportJobRepo{}
	svc := NewExportService(
		&mockExportAttendance{records: []models.AttendanceRecord{
			{Attendance: models.Attendance{Belt: models.BeltAzul, Source: models.CheckinSourceManual, AttendedAt: time.Now()}, StudentName: "Ana Souza"},
		}},
		&mockExportPayments{},
		jobRepo,
		store,
		storage.NewSignedURLSigner("test-secret", time.Hour),
		ExportConfig{APIPrefix: "/api/v1"},
		nil, nil)
	return svc, jobRepo
}

func TestExportProcessRendersAndFinishesJob(t *testing.T) {
	svc, jobRepo := exportServiceFixture(t)
	job := &models.ExportJob{
		Type:   models.ExportAttendanceLog,
		Format: models.ExportFormatCSV,
		Month:  time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		Status: models.ExportStatusQueued,
	}
	require.NoError(t, jobRepo.Create(context.Background(), job))

	require.NoError(t, svc.process(context.Background(), queuedJob(job.ID)))

	stored := jobRepo.jobs[job.ID]
	assert.Equal(t, models.ExportStatusDone, stored.Status)
	require.NotNil(t, stored.FilePath)

	status, err := svc.Status(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Contains(t, status.DownloadURL, "/api/v1/exports/download/")

	file, err := svc.Download(status.DownloadURL[len("/api/v1/exports/download/"):])
	require.NoError(t, err)
	require.NoError(t, file.Close())
}

func TestExportProcessMarksFailureOnBadFormat(t *testing.T) {
	svc, jobRepo := exportServiceFixture(t)
	job := &models.ExportJob{
		Type:   models.ExportAttendanceLog,
		Format: models.ExportFormat("docx"),
		Month:  time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		Status: models.ExportStatusQueued,
	}
	require.NoError(t, jobRepo.Create(context.Background(), job))

	require.NoError(t, svc.process(context.Background(), queuedJob(job.ID)))
	assert.Equal(t, models.ExportStatusFailed, jobRepo.jobs[job.ID].Status)
	assert.Contains(t, jobRepo.failed[job.ID], "unsupported format")
}

func TestExportStatusUnknownJob(t *testing.T) {
	svc, _ := exportServiceFixture(t)

	_, err := svc.Status(context.Background(), "ghost")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestExportDownloadRejectsBadToken(t *testing.T) {
	svc, _ := exportServiceFixture(t)

	_, err := svc.Download("not-a-token")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

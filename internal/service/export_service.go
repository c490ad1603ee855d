package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/dojoflow/dojoflow-api/internal/belt"
	"github.com/dojoflow/dojoflow-api/internal/models"
	appErrors "github.com/dojoflow/dojoflow-api/pkg/errors"
	"github.com/dojoflow/dojoflow-api/pkg/export"
	"github.com/dojoflow/dojoflow-api/pkg/jobs"
	"github.com/dojoflow/dojoflow-api/pkg/storage"
)

type exportAttendanceRepository interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error)
}

type exportPaymentRepository interface {
	List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentRecord, int, error)
}

type exportJobRepository interface {
	Create(ctx context.Context, job *models.ExportJob) error
	GetByID(ctx context.Context, id string) (*models.ExportJob, error)
	SetRunning(ctx context.Context, id string) error
	SetDone(ctx context.Context, id, filePath string, finishedAt time.Time) error
	SetFailed(ctx context.Context, id, errMsg string, finishedAt time.Time) error
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type xlsxRenderer interface {
	Render(data export.Dataset, sheet string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
	Workers   int
}

// ExportService builds monthly report datasets and renders them in the
// background. Job rows track the lifecycle; files are served through
// signed download tokens.
type ExportService struct {
	attendance exportAttendanceRepository
	payments   exportPaymentRepository
	jobRepo    exportJobRepository
	storage    fileStorage
	signer     *storage.SignedURLSigner
	csv        csvRenderer
	pdf        pdfRenderer
	xlsx       xlsxRenderer
	queue      *jobs.Queue
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        ExportConfig
	now        func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(
	attendance exportAttendanceRepository,
	payments exportPaymentRepository,
	jobRepo exportJobRepository,
	fileStore fileStorage,
	signer *storage.SignedURLSigner,
	cfg ExportConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}

	svc := &ExportService{
		attendance: attendance,
		payments:   payments,
		jobRepo:    jobRepo,
		storage:    fileStore,
		signer:     signer,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		xlsx:       export.NewXLSXExporter(),
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
	}
	svc.queue = jobs.NewQueue("exports", svc.process, jobs.QueueConfig{
		Workers: cfg.Workers,
		Logger:  logger,
	})
	return svc
}

// Start launches the background workers.
func (s *ExportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the background workers.
func (s *ExportService) Stop() {
	s.queue.Stop()
}

// EnqueueExportRequest describes the report being requested.
type EnqueueExportRequest struct {
	Type   string    `json:"type" validate:"required,oneof=attendance_log payments_summary"`
	Format string    `json:"format" validate:"required,oneof=csv pdf xlsx"`
	Month  time.Time `json:"month" validate:"required"`
}

// Enqueue records and schedules an export job.
func (s *ExportService) Enqueue(ctx context.Context, req EnqueueExportRequest, createdBy string) (*models.ExportJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	monthStart := time.Date(req.Month.Year(), req.Month.Month(), 1, 0, 0, 0, 0, time.UTC)
	job := &models.ExportJob{
		Type:      models.ExportType(req.Type),
		Format:    models.ExportFormat(req.Format),
		Month:     monthStart,
		Status:    models.ExportStatusQueued,
		CreatedBy: createdBy,
	}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create export job: %w", err)
	}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
		msg := "export queue unavailable"
		if ferr := s.jobRepo.SetFailed(ctx, job.ID, msg, s.now()); ferr != nil {
			s.logger.Warn("mark export job failed", zap.Error(ferr))
		}
		return nil, fmt.Errorf("enqueue export job: %w", err)
	}
	return job, nil
}

// ExportStatusResponse is the job state plus the signed download link
// once the file is ready.
type ExportStatusResponse struct {
	Job         *models.ExportJob `json:"job"`
	DownloadURL string            `json:"download_url,omitempty"`
	ExpiresAt   *time.Time        `json:"expires_at,omitempty"`
}

// Status reports an export job's state.
func (s *ExportService) Status(ctx context.Context, jobID string) (*ExportStatusResponse, error) {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load export job: %w", err)
	}

	resp := &ExportStatusResponse{Job: job}
	if job.Status == models.ExportStatusDone && job.FilePath != nil {
		token, expiresAt, err := s.signer.Generate(job.ID, *job.FilePath)
		if err != nil {
			return nil, fmt.Errorf("sign download token: %w", err)
		}
		prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
		if prefix == "" {
			prefix = "/api/v1"
		}
		resp.DownloadURL = fmt.Sprintf("%s/exports/download/%s", prefix, token)
		resp.ExpiresAt = &expiresAt
	}
	return resp, nil
}

// Download validates a signed token and opens the referenced file.
func (s *ExportService) Download(token string) (*os.File, error) {
	_, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export file no longer available")
	}
	return file, nil
}

// Cleanup removes rendered files older than the result TTL.
func (s *ExportService) Cleanup() {
	removed, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL)
	if err != nil {
		s.logger.Warn("export cleanup failed", zap.Error(err))
		return
	}
	if len(removed) > 0 {
		s.logger.Info("export files cleaned", zap.Int("count", len(removed)))
	}
}

func (s *ExportService) process(ctx context.Context, queued jobs.Job) error {
	job, err := s.jobRepo.GetByID(ctx, queued.ID)
	if err != nil {
		return fmt.Errorf("load export job %s: %w", queued.ID, err)
	}
	if job.Status != models.ExportStatusQueued {
		return nil
	}

	if err := s.jobRepo.SetRunning(ctx, job.ID); err != nil {
		return fmt.Errorf("mark export job running: %w", err)
	}

	relPath, err := s.generate(ctx, job)
	if err != nil {
		if ferr := s.jobRepo.SetFailed(ctx, job.ID, err.Error(), s.now()); ferr != nil {
			s.logger.Warn("mark export job failed", zap.Error(ferr))
		}
		s.logger.Error("export job failed", zap.String("job_id", job.ID), zap.Error(err))
		return nil
	}

	if err := s.jobRepo.SetDone(ctx, job.ID, relPath, s.now()); err != nil {
		return fmt.Errorf("mark export job done: %w", err)
	}
	s.logger.Info("export job finished",
		zap.String("job_id", job.ID),
		zap.String("type", string(job.Type)),
		zap.String("path", relPath))
	return nil
}

func (s *ExportService) generate(ctx context.Context, job *models.ExportJob) (string, error) {
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return "", err
	}

	var payload []byte
	switch job.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	case models.ExportFormatXLSX:
		payload, err = s.xlsx.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Format)
	}
	if err != nil {
		return "", err
	}

	filename := fmt.Sprintf("%s_%s_%s.%s", job.Type, job.Month.Format("2006-01"), job.ID, job.Format)
	return s.storage.Save(filename, payload)
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ExportJob) (export.Dataset, string, error) {
	from := job.Month
	to := from.AddDate(0, 1, 0)

	switch job.Type {
	case models.ExportAttendanceLog:
		records, _, err := s.attendance.List(ctx, models.AttendanceFilter{
			DateFrom: &from,
			DateTo:   &to,
			PageSize: 200,
		})
		if err != nil {
			return export.Dataset{}, "", fmt.Errorf("load attendance: %w", err)
		}
		dataset := export.Dataset{Headers: []string{"Student", "Belt", "Source", "Attended At"}}
		for _, rec := range records {
			dataset.Rows = append(dataset.Rows, map[string]string{
				"Student":     rec.StudentName,
				"Belt":        string(rec.Belt),
				"Source":      string(rec.Source),
				"Attended At": rec.AttendedAt.Format(time.RFC3339),
			})
		}
		return dataset, fmt.Sprintf("Attendance %s", from.Format("January 2006")), nil

	case models.ExportPaymentsSummary:
		records, _, err := s.payments.List(ctx, models.PaymentFilter{
			From:     &from,
			To:       &to,
			PageSize: 100,
		})
		if err != nil {
			return export.Dataset{}, "", fmt.Errorf("load payments: %w", err)
		}
		now := s.now()
		dataset := export.Dataset{Headers: []string{"Student", "Amount", "Status", "Standing", "Paid At"}}
		for _, rec := range records {
			paidAt := ""
			if rec.PaidAt != nil {
				paidAt = rec.PaidAt.Format(time.RFC3339)
			}
			dataset.Rows = append(dataset.Rows, map[string]string{
				"Student":  rec.StudentName,
				"Amount":   fmt.Sprintf("%.2f", rec.Amount),
				"Status":   string(rec.Status),
				"Standing": string(belt.ComputePaymentStatus(&rec.Payment, now)),
				"Paid At":  paidAt,
			})
		}
		return dataset, fmt.Sprintf("Payments %s", from.Format("January 2006")), nil
	}
	return export.Dataset{}, "", fmt.Errorf("unsupported export type %s", job.Type)
}

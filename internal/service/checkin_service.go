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

type checkinStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	IncrementCounters(ctx context.Context, id string, total, beltLessons int) error
}

type checkinAttendanceRepository interface {
	Insert(ctx context.Context, att *models.Attendance) error
	CountBySession(ctx context.Context, sessionID string) (int, error)
	MostRecentSince(ctx context.Context, studentID string, since time.Time) (*time.Time, error)
	ListTimesSince(ctx context.Context, studentID string, since time.Time) ([]time.Time, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error)
}

type checkinPaymentRepository interface {
	ListForPeriod(ctx context.Context, studentID string, from, to time.Time) ([]models.Payment, error)
}

type checkinTokenResolver interface {
	Resolve(token string) (string, error)
}

// CheckinService runs the admission workflow: it gathers the facts an
// admission decision needs, applies the rules, and persists the
// attendance only for admitted attempts.
type CheckinService struct {
	studentRepo    checkinStudentRepository
	attendanceRepo checkinAttendanceRepository
	paymentRepo    checkinPaymentRepository
	tokens         checkinTokenResolver
	rules          belt.Rules
	club           belt.ClubConfig
	validator      *validator.Validate
	logger         *zap.Logger
	now            func() time.Time
}

// NewCheckinService constructs the check-in service.
func NewCheckinService(
	students checkinStudentRepository,
	attendance checkinAttendanceRepository,
	payments checkinPaymentRepository,
	tokens checkinTokenResolver,
	rules belt.Rules,
	club belt.ClubConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *CheckinService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckinService{
		studentRepo:    students,
		attendanceRepo: attendance,
		paymentRepo:    payments,
		tokens:         tokens,
		rules:          rules,
		club:           club,
		validator:      validate,
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// CheckinRequest identifies the student either directly or through a
// signed QR token, plus the optional session being joined.
type CheckinRequest struct {
	StudentID string `json:"student_id"`
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	Source    string `json:"source" validate:"omitempty,oneof=manual scan"`
}

// CheckinResult is the admitted outcome returned to the front desk.
type CheckinResult struct {
	Decision   belt.Decision       `json:"decision"`
	Attendance *models.Attendance  `json:"attendance"`
	Progress   belt.ProgressResult `json:"progress"`
}

// Checkin decides one admission attempt and records it when admitted.
// Blocked decisions come back as typed errors carrying the stable rule
// code; infrastructure failures come back wrapped.
func (s *CheckinService) Checkin(ctx context.Context, req CheckinRequest) (*CheckinResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	studentID := req.StudentID
	source := models.CheckinSource(req.Source)
	if source == "" {
		source = models.CheckinSourceManual
	}
	if req.Token != "" {
		resolved, err := s.tokens.Resolve(req.Token)
		if err != nil {
			s.logger.Warn("check-in token rejected", zap.Error(err))
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired check-in token")
		}
		studentID = resolved
		source = models.CheckinSourceScan
	}

	now := s.now()
	in := belt.AdmissionInput{StudentID: studentID, SessionID: req.SessionID, Now: now}

	if studentID != "" {
		student, err := s.studentRepo.FindByID(ctx, studentID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// Admission treats a missing student like an inactive one.
		case err != nil:
			return nil, fmt.Errorf("load student: %w", err)
		default:
			in.Student = student
		}
	}

	if in.Student != nil && in.Student.Active {
		if req.SessionID != "" {
			count, err := s.attendanceRepo.CountBySession(ctx, req.SessionID)
			if err != nil {
				return nil, fmt.Errorf("count session attendance: %w", err)
			}
			in.SessionCount = count
		}

		from, to := belt.MonthRange(now)
		payments, err := s.paymentRepo.ListForPeriod(ctx, studentID, from, to)
		if err != nil {
			return nil, fmt.Errorf("load payments: %w", err)
		}
		in.Payments = payments

		last, err := s.attendanceRepo.MostRecentSince(ctx, studentID, now.Add(-s.rules.DuplicateWindow))
		if err != nil {
			return nil, fmt.Errorf("load recent attendance: %w", err)
		}
		in.LastCheckinAt = last
	}

	decision := belt.Admit(in, s.rules)
	if decision.Blocked() {
		s.logger.Info("check-in blocked",
			zap.String("student_id", studentID),
			zap.String("code", decision.Code))
		return nil, decisionError(decision)
	}

	att := &models.Attendance{
		StudentID:  studentID,
		Belt:       in.Student.CurrentBelt,
		Source:     source,
		AttendedAt: now,
	}
	if req.SessionID != "" {
		att.SessionID = &req.SessionID
	}
	if err := s.attendanceRepo.Insert(ctx, att); err != nil {
		return nil, fmt.Errorf("record attendance: %w", err)
	}

	// Counter drift is tolerable; the attendance row is the source of
	// truth and progression re-reads it.
	if err := s.studentRepo.IncrementCounters(ctx, studentID, 1, 1); err != nil {
		s.logger.Warn("increment student counters failed",
			zap.String("student_id", studentID), zap.Error(err))
	}

	progress, err := s.evaluateProgress(ctx, in.Student, now)
	if err != nil {
		return nil, err
	}

	return &CheckinResult{Decision: decision, Attendance: att, Progress: progress}, nil
}

// History lists recorded check-ins with student metadata.
func (s *CheckinService) History(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	return s.attendanceRepo.List(ctx, filter)
}

func (s *CheckinService) evaluateProgress(ctx context.Context, student *models.Student, now time.Time) (belt.ProgressResult, error) {
	times, err := s.attendanceRepo.ListTimesSince(ctx, student.ID, student.BeltSince)
	if err != nil {
		return belt.ProgressResult{}, fmt.Errorf("load attendance since belt: %w", err)
	}
	return belt.EvaluateProgress(student, times, s.club, now, models.MaxDegree), nil
}

func decisionError(d belt.Decision) *appErrors.Error {
	switch d.Code {
	case belt.CodeInvalidRequest:
		return appErrors.Clone(appErrors.ErrValidation, d.Reason)
	case belt.CodeNotFoundOrInactive:
		return appErrors.ErrStudentNotFoundOrInactive
	case belt.CodeCapacityReached:
		return appErrors.ErrCapacityReached
	case belt.CodeBlockedFinancial:
		return appErrors.ErrBlockedFinancial
	case belt.CodeDuplicateWindow:
		return appErrors.ErrDuplicateWindow
	}
	return appErrors.ErrForbidden
}

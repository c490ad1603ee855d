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

type progressionStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ListActive(ctx context.Context) ([]models.Student, error)
	UpdateRankState(ctx context.Context, id string, state models.RankState) error
}

type progressionAttendanceRepository interface {
	ListTimesSince(ctx context.Context, studentID string, since time.Time) ([]time.Time, error)
}

type beltHistoryRepository interface {
	Append(ctx context.Context, entry *models.BeltHistory) error
	ListByStudent(ctx context.Context, studentID string) ([]models.BeltHistory, error)
}

// ProgressionService derives rank readiness and applies awards. Readiness
// is advisory; awards are always an explicit instructor action.
type ProgressionService struct {
	studentRepo    progressionStudentRepository
	attendanceRepo progressionAttendanceRepository
	historyRepo    beltHistoryRepository
	club           belt.ClubConfig
	validator      *validator.Validate
	logger         *zap.Logger
	now            func() time.Time
}

// NewProgressionService constructs the progression service.
func NewProgressionService(
	students progressionStudentRepository,
	attendance progressionAttendanceRepository,
	history beltHistoryRepository,
	club belt.ClubConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *ProgressionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressionService{
		studentRepo:    students,
		attendanceRepo: attendance,
		historyRepo:    history,
		club:           club,
		validator:      validate,
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Progress evaluates a student's readiness for the next degree or belt.
func (s *ProgressionService) Progress(ctx context.Context, studentID string) (*belt.ProgressResult, error) {
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	result, err := s.evaluate(ctx, student, s.now())
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// PromoteRequest carries the optional note an instructor attaches to an
// award.
type PromoteRequest struct {
	Notes *string `json:"notes" validate:"omitempty,max=500"`
}

// PromotionResult reports the state applied by an award.
type PromotionResult struct {
	StudentID string           `json:"student_id"`
	Previous  models.RankState `json:"previous"`
	Awarded   models.RankState `json:"awarded"`
	AwardedAt time.Time        `json:"awarded_at"`
}

// Promote applies the next award to a student: the following degree, or
// the next belt with the degree reset. The rank clock restarts on every
// award. Readiness is not enforced; instructors may promote early.
func (s *ProgressionService) Promote(ctx context.Context, studentID string, req PromoteRequest) (*PromotionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	next, ok := belt.NextRankState(student.CurrentBelt, student.CurrentDegree, models.MaxDegree, now)
	if !ok {
		return nil, appErrors.ErrAlreadyAtTopRank
	}

	if err := s.studentRepo.UpdateRankState(ctx, studentID, next); err != nil {
		return nil, fmt.Errorf("apply award: %w", err)
	}

	entry := &models.BeltHistory{
		StudentID: studentID,
		Belt:      next.Belt,
		Degree:    next.Degree,
		Notes:     req.Notes,
		AwardedAt: now,
	}
	if err := s.historyRepo.Append(ctx, entry); err != nil {
		s.logger.Warn("append belt history failed",
			zap.String("student_id", studentID), zap.Error(err))
	}

	s.logger.Info("award applied",
		zap.String("student_id", studentID),
		zap.String("belt", string(next.Belt)),
		zap.Int("degree", next.Degree))

	return &PromotionResult{
		StudentID: studentID,
		Previous:  models.RankState{Belt: student.CurrentBelt, Degree: student.CurrentDegree, BeltSince: student.BeltSince},
		Awarded:   next,
		AwardedAt: now,
	}, nil
}

// History returns a student's award history, newest first.
func (s *ProgressionService) History(ctx context.Context, studentID string) ([]models.BeltHistory, error) {
	if _, err := s.loadStudent(ctx, studentID); err != nil {
		return nil, err
	}
	return s.historyRepo.ListByStudent(ctx, studentID)
}

// StudentReadiness pairs a student with their evaluated progress, used
// by the instructor's promotion board.
type StudentReadiness struct {
	Student  models.Student      `json:"student"`
	Progress belt.ProgressResult `json:"progress"`
}

// ReadyStudents sweeps the active roster and returns students ready for
// an award or inside the alert window.
func (s *ProgressionService) ReadyStudents(ctx context.Context) ([]StudentReadiness, error) {
	students, err := s.studentRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active students: %w", err)
	}

	now := s.now()
	ready := make([]StudentReadiness, 0)
	for i := range students {
		student := students[i]
		result, err := s.evaluate(ctx, &student, now)
		if err != nil {
			s.logger.Warn("evaluate progress failed",
				zap.String("student_id", student.ID), zap.Error(err))
			continue
		}
		if result.ReadyForDegree || result.Alert {
			ready = append(ready, StudentReadiness{Student: student, Progress: result})
		}
	}
	return ready, nil
}

func (s *ProgressionService) loadStudent(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.studentRepo.FindByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.ErrStudentNotFoundOrInactive
	}
	if err != nil {
		return nil, fmt.Errorf("load student: %w", err)
	}
	return student, nil
}

func (s *ProgressionService) evaluate(ctx context.Context, student *models.Student, now time.Time) (belt.ProgressResult, error) {
	times, err := s.attendanceRepo.ListTimesSince(ctx, student.ID, student.BeltSince)
	if err != nil {
		return belt.ProgressResult{}, fmt.Errorf("load attendance since belt: %w", err)
	}
	return belt.EvaluateProgress(student, times, s.club, now, models.MaxDegree), nil
}

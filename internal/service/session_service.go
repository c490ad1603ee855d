package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/dojoflow/dojoflow-api/internal/models"
	appErrors "github.com/dojoflow/dojoflow-api/pkg/errors"
)

type sessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, id string) (*models.Session, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]models.Session, error)
}

type sessionAttendanceCounter interface {
	CountBySession(ctx context.Context, sessionID string) (int, error)
}

// SessionService manages the class schedule used for capacity grouping.
type SessionService struct {
	repo       sessionRepository
	attendance sessionAttendanceCounter
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewSessionService constructs the session service.
func NewSessionService(repo sessionRepository, attendance sessionAttendanceCounter, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{repo: repo, attendance: attendance, validator: validate, logger: logger}
}

// CreateSessionRequest schedules a class slot.
type CreateSessionRequest struct {
	Title       string    `json:"title" validate:"required,min=2,max=150"`
	Instructor  string    `json:"instructor" validate:"required,min=2,max=150"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
}

// Create schedules a new class session.
func (s *SessionService) Create(ctx context.Context, req CreateSessionRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	session := &models.Session{
		Title:       req.Title,
		Instructor:  req.Instructor,
		ScheduledAt: req.ScheduledAt,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// SessionDetail pairs a session with its live attendee count.
type SessionDetail struct {
	models.Session
	AttendeeCount int `json:"attendee_count"`
}

// Get fetches a session with its current attendee count.
func (s *SessionService) Get(ctx context.Context, id string) (*SessionDetail, error) {
	session, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	count, err := s.attendance.CountBySession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("count session attendance: %w", err)
	}
	return &SessionDetail{Session: *session, AttendeeCount: count}, nil
}

// ListDay returns the sessions scheduled on the day containing at.
func (s *SessionService) ListDay(ctx context.Context, at time.Time) ([]models.Session, error) {
	start := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, at.Location())
	sessions, err := s.repo.ListBetween(ctx, start, start.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

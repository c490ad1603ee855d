package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/dojoflow/dojoflow-api/internal/models"
	appErrors "github.com/dojoflow/dojoflow-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Deactivate(ctx context.Context, id string) error
}

// StudentService manages the academy roster.
type StudentService struct {
	repo      studentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &StudentService{repo: repo, validator: validate, logger: logger}
	svc.validator.RegisterValidation("belt", func(fl validator.FieldLevel) bool {
		return models.Belt(fl.Field().String()).Valid()
	})
	return svc
}

// List returns students matching the filter with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, err
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get fetches a single student.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load student: %w", err)
	}
	return student, nil
}

// CreateStudentRequest is the enrollment payload.
type CreateStudentRequest struct {
	FullName string  `json:"full_name" validate:"required,min=2,max=150"`
	Phone    string  `json:"phone" validate:"omitempty,max=30"`
	Email    string  `json:"email" validate:"omitempty,email"`
	PhotoURL *string `json:"photo_url" validate:"omitempty,url"`
	Belt     string  `json:"belt" validate:"omitempty,belt"`
	Degree   int     `json:"degree" validate:"min=0,max=4"`
}

// Create enrolls a new student. The rank clock starts at enrollment.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	beltRank := models.Belt(req.Belt)
	if beltRank == "" {
		beltRank = models.BeltBranca
	}

	student := &models.Student{
		FullName:      req.FullName,
		Phone:         req.Phone,
		Email:         req.Email,
		PhotoURL:      req.PhotoURL,
		Active:        true,
		CurrentBelt:   beltRank,
		CurrentDegree: req.Degree,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, fmt.Errorf("create student: %w", err)
	}

	s.logger.Info("student enrolled",
		zap.String("student_id", student.ID),
		zap.String("belt", string(student.CurrentBelt)))
	return student, nil
}

// UpdateStudentRequest carries the mutable profile fields.
type UpdateStudentRequest struct {
	FullName *string `json:"full_name" validate:"omitempty,min=2,max=150"`
	Phone    *string `json:"phone" validate:"omitempty,max=30"`
	Email    *string `json:"email" validate:"omitempty,email"`
	PhotoURL *string `json:"photo_url" validate:"omitempty,url"`
	Active   *bool   `json:"active"`
}

// Update edits a student's profile. Rank fields are only ever changed
// through an award.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		student.FullName = *req.FullName
	}
	if req.Phone != nil {
		student.Phone = *req.Phone
	}
	if req.Email != nil {
		student.Email = *req.Email
	}
	if req.PhotoURL != nil {
		student.PhotoURL = req.PhotoURL
	}
	if req.Active != nil {
		student.Active = *req.Active
	}

	if err := s.repo.Update(ctx, student); err != nil {
		return nil, fmt.Errorf("update student: %w", err)
	}
	return student, nil
}

// Deactivate removes a student from the active roster. Attendance and
// award history stay intact.
func (s *StudentService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return fmt.Errorf("deactivate student: %w", err)
	}
	s.logger.Info("student deactivated", zap.String("student_id", id))
	return nil
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/qr-attend-api/internal/models"
	appErrors "github.com/noah-isme/qr-attend-api/pkg/errors"
)

// RegisterStudentRequest holds the payload for registering students.
type RegisterStudentRequest struct {
	StudentID         string `json:"student_id" validate:"required"`
	Name              string `json:"name" validate:"required"`
	Age               int    `json:"age" validate:"omitempty,gte=0"`
	Group             string `json:"group"`
	ParentID          string `json:"parent_id"`
	SubscriptionType  string `json:"subscription_type" validate:"required,subscription_type"`
	Duration          string `json:"duration"`
	Level             int    `json:"level" validate:"omitempty,gte=0"`
	Category          string `json:"category"`
	AttendanceType    string `json:"attendance_type"`
	SubscriptionStart string `json:"subscription_start"`
	SubscriptionEnd   string `json:"subscription_end"`
	Notes             string `json:"notes"`
}

// RosterService handles roster use-cases: registration, activity toggling,
// listing and identifier resolution.
type RosterService struct {
	repo      RosterStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRosterService constructs the roster service.
func NewRosterService(repo RosterStore, validate *validator.Validate, logger *zap.Logger) *RosterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &RosterService{repo: repo, validator: validate, logger: logger}
	_ = svc.validator.RegisterValidation("subscription_type", func(fl validator.FieldLevel) bool {
		return models.SubscriptionType(strings.ToLower(fl.Field().String())).Valid()
	})
	return svc
}

// Register creates a new student. The identifier must be unique across all
// students ever created; the store rejects duplicates and the roster is
// left unchanged by a failed attempt.
func (s *RosterService) Register(ctx context.Context, req RegisterStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student := &models.Student{
		StudentID:         strings.TrimSpace(req.StudentID),
		Name:              strings.TrimSpace(req.Name),
		Age:               req.Age,
		GroupName:         req.Group,
		ParentID:          req.ParentID,
		SubscriptionType:  models.SubscriptionType(strings.ToLower(req.SubscriptionType)),
		Duration:          req.Duration,
		Level:             req.Level,
		Category:          req.Category,
		AttendanceType:    req.AttendanceType,
		SubscriptionStart: req.SubscriptionStart,
		SubscriptionEnd:   req.SubscriptionEnd,
		Notes:             req.Notes,
		Active:            true,
	}
	if err := s.repo.Insert(ctx, student); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrDuplicateStudentID.Code {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to register student")
	}
	return student, nil
}

// SetActive toggles a student's activity flag by surrogate id. Deactivation
// removes the student from future resolution; historical attendance records
// are untouched.
func (s *RosterService) SetActive(ctx context.Context, id string, active bool) (*models.Student, error) {
	student, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to update student")
	}
	return student, nil
}

// List returns the full roster, active and inactive, ordered by name.
func (s *RosterService) List(ctx context.Context) ([]models.Student, error) {
	students, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list students")
	}
	return students, nil
}

// Resolve maps a scanned or typed code to an active student by exact
// identifier match. Unknown and inactive identifiers intentionally collapse
// into one not-found outcome; distinguishing them is a possible future
// refinement.
func (s *RosterService) Resolve(ctx context.Context, code string) (*models.Student, error) {
	student, err := s.repo.FindByStudentID(ctx, code)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not registered or inactive")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to resolve student")
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not registered or inactive")
	}
	return student, nil
}

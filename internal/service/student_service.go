package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/aladab-school-api/internal/models"
	appErrors "github.com/noah-isme/aladab-school-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	Update(ctx context.Context, student *models.Student) error
	UpdateClass(ctx context.Context, id string, classID *string) error
	Roster(ctx context.Context, classID string, department models.Department) ([]models.RosterEntry, error)
}

type studentEnroller interface {
	Enroll(ctx context.Context, req EnrollmentRequest) (*Enrollment, error)
}

type authUserRemover interface {
	DeleteAuthUser(ctx context.Context, id string) error
}

// CreateStudentRequest holds payload for registering a student directly.
type CreateStudentRequest struct {
	FirstName     string            `json:"first_name" form:"firstName" validate:"required"`
	LastName      string            `json:"last_name" form:"lastName" validate:"required"`
	Email         string            `json:"email" form:"email" validate:"omitempty,email"`
	ClassID       *string           `json:"class_id" form:"classId"`
	Department    models.Department `json:"department" form:"department" validate:"omitempty,oneof=General Science Arts Commercial"`
	Gender        *string           `json:"gender" form:"gender"`
	DateOfBirth   *time.Time        `json:"date_of_birth" form:"dateOfBirth" time_format:"2006-01-02"`
	GuardianName  *string           `json:"guardian_name" form:"guardianName"`
	GuardianPhone *string           `json:"guardian_phone" form:"guardianPhone"`
	GuardianEmail *string           `json:"guardian_email" form:"guardianEmail" validate:"omitempty,email"`
}

// UpdateStudentRequest holds payload for updating student records.
type UpdateStudentRequest struct {
	ClassID       *string           `json:"class_id" form:"classId"`
	Department    models.Department `json:"department" form:"department" validate:"required,oneof=General Science Arts Commercial"`
	Gender        *string           `json:"gender" form:"gender"`
	DateOfBirth   *time.Time        `json:"date_of_birth" form:"dateOfBirth" time_format:"2006-01-02"`
	GuardianName  *string           `json:"guardian_name" form:"guardianName"`
	GuardianPhone *string           `json:"guardian_phone" form:"guardianPhone"`
	GuardianEmail *string           `json:"guardian_email" form:"guardianEmail" validate:"omitempty,email"`
}

// StudentService handles student use-cases.
type StudentService struct {
	repo            studentRepository
	enroller        studentEnroller
	accounts        authUserRemover
	admissionPrefix string
	now             func() time.Time
	validator       *validator.Validate
	logger          *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, enroller studentEnroller, accounts authUserRemover, admissionPrefix string, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		repo:            repo,
		enroller:        enroller,
		accounts:        accounts,
		admissionPrefix: admissionPrefix,
		now:             time.Now,
		validator:       validate,
		logger:          logger,
	}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns detailed student information.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create enrolls a student with a generated admission number and initial password.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid student payload")
	}
	number, err := generateAdmissionNumber(s.admissionPrefix, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate admission number")
	}
	return s.enroller.Enroll(ctx, EnrollmentRequest{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		AdmissionNumber: number,
		ClassID:         trimmedOrNil(req.ClassID),
		Department:      req.Department,
		Gender:          trimmedOrNil(req.Gender),
		DateOfBirth:     req.DateOfBirth,
		GuardianName:    trimmedOrNil(req.GuardianName),
		GuardianPhone:   trimmedOrNil(req.GuardianPhone),
		GuardianEmail:   trimmedOrNil(req.GuardianEmail),
	})
}

// Update modifies an existing student record.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid student payload")
	}
	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	student := detail.Student
	student.ClassID = trimmedOrNil(req.ClassID)
	student.Department = req.Department
	student.Gender = trimmedOrNil(req.Gender)
	student.DateOfBirth = req.DateOfBirth
	student.GuardianName = trimmedOrNil(req.GuardianName)
	student.GuardianPhone = trimmedOrNil(req.GuardianPhone)
	student.GuardianEmail = trimmedOrNil(req.GuardianEmail)
	if err := s.repo.Update(ctx, &student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return s.Get(ctx, id)
}

// ReassignClass moves the student to another class, or out of any class when classID is empty.
func (s *StudentService) ReassignClass(ctx context.Context, id, classID string) error {
	var target *string
	if trimmed := strings.TrimSpace(classID); trimmed != "" {
		target = &trimmed
	}
	if err := s.repo.UpdateClass(ctx, id, target); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reassign student")
	}
	return nil
}

// Delete removes the student's login account; the profile and student rows cascade.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	detail, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.accounts.DeleteAuthUser(ctx, detail.ProfileID)
}

// Roster lists the students of a class ordered by name.
func (s *StudentService) Roster(ctx context.Context, classID string) ([]models.RosterEntry, error) {
	roster, err := s.repo.Roster(ctx, classID, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return roster, nil
}

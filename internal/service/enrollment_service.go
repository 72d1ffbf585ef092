package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/aladab-school-api/internal/models"
	appErrors "github.com/noah-isme/aladab-school-api/pkg/errors"
	"github.com/noah-isme/aladab-school-api/pkg/saga"
)

type accountManager interface {
	CreateAuthUser(ctx context.Context, email, password string) (*models.User, error)
	DeleteAuthUser(ctx context.Context, id string) error
	UpsertProfile(ctx context.Context, profile *models.Profile) error
	DeleteProfile(ctx context.Context, id string) error
}

type studentWriter interface {
	Create(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

// EnrollmentRequest describes the student account to create.
type EnrollmentRequest struct {
	FirstName       string
	LastName        string
	Email           string
	AdmissionNumber string
	ClassID         *string
	Department      models.Department
	Gender          *string
	DateOfBirth     *time.Time
	GuardianName    *string
	GuardianPhone   *string
	GuardianEmail   *string
}

// FullName joins first and last names.
func (r EnrollmentRequest) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(r.FirstName) + " " + strings.TrimSpace(r.LastName))
}

// Enrollment is filled in as the enrollment steps complete.
type Enrollment struct {
	UserID            string `json:"user_id"`
	StudentID         string `json:"student_id"`
	AdmissionNumber   string `json:"admission_number"`
	Email             string `json:"email"`
	InitialPassword   string `json:"initial_password"`
	FallbackEmailUsed bool   `json:"fallback_email_used"`
}

// EnrollmentService creates the auth user, profile and student row of a new student.
type EnrollmentService struct {
	accounts    accountManager
	students    studentWriter
	emailDomain string
	observer    saga.Observer
	logger      *zap.Logger
}

// NewEnrollmentService constructs the service. emailDomain backs the generated login address.
func NewEnrollmentService(accounts accountManager, students studentWriter, emailDomain string, observer saga.Observer, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{accounts: accounts, students: students, emailDomain: emailDomain, observer: observer, logger: logger}
}

// Enroll runs the enrollment steps as a standalone saga.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollmentRequest) (*Enrollment, error) {
	if strings.TrimSpace(req.AdmissionNumber) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "admission number is required")
	}
	out := &Enrollment{}
	wf := saga.New("student_enrollment", s.logger).WithObserver(s.observer)
	s.AddSteps(wf, &req, out)
	if err := wf.Run(ctx); err != nil {
		return nil, workflowError(err)
	}
	return out, nil
}

// AddSteps appends the three enrollment steps to wf. req is read when the steps run, so earlier steps may
// still fill in fields such as the admission number.
func (s *EnrollmentService) AddSteps(wf *saga.Saga, req *EnrollmentRequest, out *Enrollment) {
	wf.AddStep(saga.Step{
		Name: "create_auth_user",
		Action: func(ctx context.Context) error {
			return s.createAccount(ctx, req, out)
		},
		Compensate: func(ctx context.Context) error {
			if out.UserID == "" {
				return nil
			}
			return s.accounts.DeleteAuthUser(ctx, out.UserID)
		},
	})
	wf.AddStep(saga.Step{
		Name: "upsert_profile",
		Action: func(ctx context.Context) error {
			return s.accounts.UpsertProfile(ctx, &models.Profile{
				ID:       out.UserID,
				FullName: req.FullName(),
				Role:     models.RoleStudent,
			})
		},
		Compensate: func(ctx context.Context) error {
			return s.accounts.DeleteProfile(ctx, out.UserID)
		},
	})
	wf.AddStep(saga.Step{
		Name: "create_student",
		Action: func(ctx context.Context) error {
			department := req.Department
			if department == "" {
				department = models.DepartmentGeneral
			}
			student := &models.Student{
				ID:              uuid.NewString(),
				ProfileID:       out.UserID,
				AdmissionNumber: out.AdmissionNumber,
				ClassID:         req.ClassID,
				Department:      department,
				Gender:          req.Gender,
				DateOfBirth:     req.DateOfBirth,
				GuardianName:    req.GuardianName,
				GuardianPhone:   req.GuardianPhone,
				GuardianEmail:   req.GuardianEmail,
			}
			if err := s.students.Create(ctx, student); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student record")
			}
			out.StudentID = student.ID
			return nil
		},
		Compensate: func(ctx context.Context) error {
			if out.StudentID == "" {
				return nil
			}
			return s.students.Delete(ctx, out.StudentID)
		},
	})
}

func (s *EnrollmentService) createAccount(ctx context.Context, req *EnrollmentRequest, out *Enrollment) error {
	password, err := generatePassword(10)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate password")
	}
	out.AdmissionNumber = req.AdmissionNumber
	fallback := fallbackStudentEmail(req.AdmissionNumber, s.emailDomain)

	email := strings.TrimSpace(req.Email)
	if email == "" {
		email = fallback
	}
	user, err := s.accounts.CreateAuthUser(ctx, email, password)
	if err != nil && appErrors.Is(err, appErrors.ErrEmailRegistered) && !strings.EqualFold(email, fallback) {
		s.logger.Info("email already registered, using generated address",
			zap.String("admission_number", req.AdmissionNumber),
			zap.String("fallback_email", fallback),
		)
		email = fallback
		user, err = s.accounts.CreateAuthUser(ctx, email, password)
	}
	if err != nil {
		return err
	}

	out.UserID = user.ID
	out.Email = user.Email
	out.InitialPassword = password
	out.FallbackEmailUsed = strings.EqualFold(email, fallback)
	return nil
}

// workflowError surfaces the failing step's own error to the caller.
func workflowError(err error) error {
	var stepErr *saga.StepError
	if !errors.As(err, &stepErr) {
		return appErrors.Wrap(err, appErrors.ErrWorkflowFailed.Code, appErrors.ErrWorkflowFailed.Status, err.Error())
	}
	var appErr *appErrors.Error
	if errors.As(stepErr.Err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(stepErr.Err, appErrors.ErrWorkflowFailed.Code, appErrors.ErrWorkflowFailed.Status,
		fmt.Sprintf("%s failed at %s: %v", stepErr.Saga, stepErr.Step, stepErr.Err))
}

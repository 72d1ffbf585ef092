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
	"github.com/noah-isme/aladab-school-api/pkg/saga"
)

const admissionApprovalSaga = "admission_approval"

type admissionRepository interface {
	Create(ctx context.Context, app *models.AdmissionApplication) error
	FindByID(ctx context.Context, id string) (*models.AdmissionApplication, error)
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.AdmissionApplication, int, error)
	MarkApproved(ctx context.Context, id, admissionNumber, studentID, reviewerID string) error
	MarkRejected(ctx context.Context, id, note, reviewerID string) error
}

type enrollmentSteps interface {
	AddSteps(wf *saga.Saga, req *EnrollmentRequest, out *Enrollment)
}

// SubmitApplicationRequest is the public application form.
type SubmitApplicationRequest struct {
	FirstName      string            `json:"first_name" form:"firstName" validate:"required,max=80"`
	LastName       string            `json:"last_name" form:"lastName" validate:"required,max=80"`
	Email          *string           `json:"email" form:"email" validate:"omitempty,email"`
	Gender         *string           `json:"gender" form:"gender" validate:"omitempty,oneof=Male Female"`
	DateOfBirth    *time.Time        `json:"date_of_birth" form:"dateOfBirth" time_format:"2006-01-02"`
	DesiredClassID *string           `json:"desired_class_id" form:"desiredClassId" validate:"omitempty,uuid"`
	Department     models.Department `json:"department" form:"department" validate:"omitempty,oneof=General Science Arts Commercial"`
	GuardianName   *string           `json:"guardian_name" form:"guardianName" validate:"omitempty,max=120"`
	GuardianPhone  *string           `json:"guardian_phone" form:"guardianPhone" validate:"omitempty,max=32"`
	GuardianEmail  *string           `json:"guardian_email" form:"guardianEmail" validate:"omitempty,email"`
	PassportURL    *string           `json:"passport_url" form:"passportUrl" validate:"omitempty,url"`
}

// RejectApplicationRequest carries the reviewer's note.
type RejectApplicationRequest struct {
	Note string `json:"note" form:"note" validate:"max=500"`
}

// ApprovalResult returns the approved application and the created login.
type ApprovalResult struct {
	Application *models.AdmissionApplication `json:"application"`
	Enrollment  *Enrollment                  `json:"enrollment"`
}

// AdmissionService reviews admission applications.
type AdmissionService struct {
	repo            admissionRepository
	enrollment      enrollmentSteps
	audit           auditLogger
	observer        saga.Observer
	admissionPrefix string
	validator       *validator.Validate
	logger          *zap.Logger
	now             func() time.Time
}

// NewAdmissionService constructs AdmissionService.
func NewAdmissionService(repo admissionRepository, enrollment enrollmentSteps, audit auditLogger, observer saga.Observer, admissionPrefix string, validate *validator.Validate, logger *zap.Logger) *AdmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdmissionService{
		repo:            repo,
		enrollment:      enrollment,
		audit:           audit,
		observer:        observer,
		admissionPrefix: admissionPrefix,
		validator:       validate,
		logger:          logger,
		now:             time.Now,
	}
}

// normalized trims every text field and lower-cases the e-mail addresses.
func (r SubmitApplicationRequest) normalized() SubmitApplicationRequest {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = lowerOrNil(r.Email)
	r.Gender = trimmedOrNil(r.Gender)
	r.DesiredClassID = trimmedOrNil(r.DesiredClassID)
	r.GuardianName = trimmedOrNil(r.GuardianName)
	r.GuardianPhone = trimmedOrNil(r.GuardianPhone)
	r.GuardianEmail = lowerOrNil(r.GuardianEmail)
	r.PassportURL = trimmedOrNil(r.PassportURL)
	return r
}

// Submit stores a pending application. Input is trimmed before it is validated.
func (s *AdmissionService) Submit(ctx context.Context, req SubmitApplicationRequest) (*models.AdmissionApplication, error) {
	req = req.normalized()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid application")
	}
	app := &models.AdmissionApplication{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		Gender:         req.Gender,
		DateOfBirth:    req.DateOfBirth,
		DesiredClassID: req.DesiredClassID,
		Department:     req.Department,
		GuardianName:   req.GuardianName,
		GuardianPhone:  req.GuardianPhone,
		GuardianEmail:  req.GuardianEmail,
		PassportURL:    req.PassportURL,
	}
	if err := s.repo.Create(ctx, app); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit application")
	}
	s.logger.Info("admission application submitted", zap.String("application_id", app.ID))
	return app, nil
}

// List returns applications filtered by status.
func (s *AdmissionService) List(ctx context.Context, filter models.ApplicationFilter) ([]models.AdmissionApplication, *models.Pagination, error) {
	switch filter.Status {
	case "", models.ApplicationPending, models.ApplicationApproved, models.ApplicationRejected:
	default:
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown application status")
	}
	apps, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	return apps, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns one application.
func (s *AdmissionService) Get(ctx context.Context, id string) (*models.AdmissionApplication, error) {
	app, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	return app, nil
}

// Reject closes a pending application with a note.
func (s *AdmissionService) Reject(ctx context.Context, id string, req RejectApplicationRequest, reviewerID string) (*models.AdmissionApplication, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid rejection")
	}
	app, err := s.pending(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.MarkRejected(ctx, app.ID, strings.TrimSpace(req.Note), reviewerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "application is no longer pending")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject application")
	}
	recordAudit(ctx, s.audit, s.logger, reviewerID, models.AuditActionAdmissionReject, "admission_applications", app.ID, map[string]interface{}{
		"note": req.Note,
	})
	return s.Get(ctx, app.ID)
}

// Approve turns a pending application into a student account. The steps run as a saga: a failing step
// undoes the completed ones newest first and its error is returned.
func (s *AdmissionService) Approve(ctx context.Context, id, reviewerID string) (*ApprovalResult, error) {
	var (
		app    *models.AdmissionApplication
		req    EnrollmentRequest
		result = &Enrollment{}
	)

	wf := saga.New(admissionApprovalSaga, s.logger).WithObserver(s.observer)
	wf.AddStep(saga.Step{
		Name: "load_application",
		Action: func(ctx context.Context) error {
			loaded, err := s.pending(ctx, id)
			if err != nil {
				return err
			}
			app = loaded
			req = enrollmentFromApplication(*loaded)
			return nil
		},
	})
	wf.AddStep(saga.Step{
		Name: "generate_admission_number",
		Action: func(ctx context.Context) error {
			number, err := generateAdmissionNumber(s.admissionPrefix, s.now())
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate admission number")
			}
			req.AdmissionNumber = number
			return nil
		},
	})
	s.enrollment.AddSteps(wf, &req, result)
	wf.AddStep(saga.Step{
		Name: "mark_approved",
		Action: func(ctx context.Context) error {
			err := s.repo.MarkApproved(ctx, app.ID, result.AdmissionNumber, result.StudentID, reviewerID)
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrConflict, "application is no longer pending")
			}
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark application approved")
			}
			return nil
		},
	})

	if err := wf.Run(ctx); err != nil {
		s.logger.Warn("admission approval failed", zap.String("application_id", id), zap.Error(err))
		return nil, workflowError(err)
	}

	recordAudit(ctx, s.audit, s.logger, reviewerID, models.AuditActionAdmissionApprove, "admission_applications", id, map[string]interface{}{
		"admissionNumber": result.AdmissionNumber,
		"studentId":       result.StudentID,
		"email":           result.Email,
		"fallbackEmail":   result.FallbackEmailUsed,
	})
	s.logger.Info("admission approved",
		zap.String("application_id", id),
		zap.String("admission_number", result.AdmissionNumber),
		zap.Bool("fallback_email", result.FallbackEmailUsed),
	)

	approved, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ApprovalResult{Application: approved, Enrollment: result}, nil
}

func (s *AdmissionService) pending(ctx context.Context, id string) (*models.AdmissionApplication, error) {
	app, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.Status != models.ApplicationPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "application has already been "+string(app.Status))
	}
	return app, nil
}

// enrollmentFromApplication logs in with the applicant email, or the guardian email when it is empty.
func enrollmentFromApplication(app models.AdmissionApplication) EnrollmentRequest {
	email := ""
	if app.Email != nil && strings.TrimSpace(*app.Email) != "" {
		email = *app.Email
	} else if app.GuardianEmail != nil {
		email = *app.GuardianEmail
	}
	return EnrollmentRequest{
		FirstName:     app.FirstName,
		LastName:      app.LastName,
		Email:         email,
		ClassID:       app.DesiredClassID,
		Department:    app.Department,
		Gender:        app.Gender,
		DateOfBirth:   app.DateOfBirth,
		GuardianName:  app.GuardianName,
		GuardianPhone: app.GuardianPhone,
		GuardianEmail: app.GuardianEmail,
	}
}

func lowerOrNil(value *string) *string {
	trimmed := trimmedOrNil(value)
	if trimmed == nil {
		return nil
	}
	lowered := strings.ToLower(*trimmed)
	return &lowered
}

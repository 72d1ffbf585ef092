package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/aladab-school-api/internal/models"
	appErrors "github.com/noah-isme/aladab-school-api/pkg/errors"
	"github.com/noah-isme/aladab-school-api/pkg/saga"
)

// CreateStaffRequest represents payload for creating staff accounts.
type CreateStaffRequest struct {
	Email          string          `json:"email" form:"email" validate:"required,email"`
	Password       string          `json:"password" form:"password" validate:"omitempty,min=6"`
	FullName       string          `json:"full_name" form:"fullName" validate:"required"`
	Role           models.UserRole `json:"role" form:"role" validate:"omitempty,oneof=admin principal teacher"`
	Phone          *string         `json:"phone" form:"phone" validate:"omitempty,max=32"`
	Address        *string         `json:"address" form:"address" validate:"omitempty,max=255"`
	Specialization *string         `json:"specialization" form:"specialization" validate:"omitempty,max=120"`
}

// StaffAccount is returned after creating a staff member.
type StaffAccount struct {
	Profile         models.ProfileWithEmail `json:"profile"`
	InitialPassword string                  `json:"initial_password,omitempty"`
}

// StaffService manages teacher and administrator accounts.
type StaffService struct {
	accounts  accountManager
	profiles  profileRepository
	observer  saga.Observer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStaffService constructs a StaffService.
func NewStaffService(accounts accountManager, profiles profileRepository, observer saga.Observer, validate *validator.Validate, logger *zap.Logger) *StaffService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StaffService{accounts: accounts, profiles: profiles, observer: observer, validator: validate, logger: logger}
}

// Create registers the auth user then the profile. A failed profile write deletes the auth user again.
func (s *StaffService) Create(ctx context.Context, req CreateStaffRequest) (*StaffAccount, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid staff payload")
	}
	role := req.Role
	if role == "" {
		role = models.RoleTeacher
	}
	password := req.Password
	generated := false
	if password == "" {
		var err error
		if password, err = generatePassword(10); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate password")
		}
		generated = true
	}

	var user *models.User
	profile := &models.Profile{
		FullName:       strings.TrimSpace(req.FullName),
		Role:           role,
		Phone:          trimmedOrNil(req.Phone),
		Address:        trimmedOrNil(req.Address),
		Specialization: trimmedOrNil(req.Specialization),
	}

	wf := saga.New("staff_creation", s.logger).WithObserver(s.observer)
	wf.AddStep(saga.Step{
		Name: "create_auth_user",
		Action: func(ctx context.Context) error {
			created, err := s.accounts.CreateAuthUser(ctx, req.Email, password)
			if err != nil {
				return err
			}
			user = created
			profile.ID = created.ID
			return nil
		},
		Compensate: func(ctx context.Context) error {
			return s.accounts.DeleteAuthUser(ctx, user.ID)
		},
	})
	wf.AddStep(saga.Step{
		Name: "upsert_profile",
		Action: func(ctx context.Context) error {
			return s.accounts.UpsertProfile(ctx, profile)
		},
	})
	if err := wf.Run(ctx); err != nil {
		return nil, workflowError(err)
	}

	account := &StaffAccount{Profile: models.ProfileWithEmail{Profile: *profile, Email: user.Email}}
	if generated {
		account.InitialPassword = password
	}
	s.logger.Info("staff account created", zap.String("user_id", user.ID), zap.String("role", string(role)))
	return account, nil
}

// List returns staff profiles; the role filter defaults to teacher.
func (s *StaffService) List(ctx context.Context, filter models.ProfileFilter) ([]models.ProfileWithEmail, *models.Pagination, error) {
	if filter.Role == "" {
		filter.Role = models.RoleTeacher
	}
	if filter.Role == models.RoleStudent {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "students are listed through the student endpoints")
	}
	profiles, total, err := s.profiles.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list staff")
	}
	return profiles, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a staff profile.
func (s *StaffService) Get(ctx context.Context, id string) (*models.ProfileWithEmail, error) {
	profile, err := s.profiles.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff member")
	}
	if profile.Role == models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
	}
	return profile, nil
}

// Update overwrites the staff profile fields.
func (s *StaffService) Update(ctx context.Context, id string, req AdminUpdateProfileRequest) (*models.ProfileWithEmail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid staff payload")
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	profile := current.Profile
	profile.FullName = strings.TrimSpace(req.FullName)
	profile.Role = req.Role
	profile.Phone = trimmedOrNil(req.Phone)
	profile.Address = trimmedOrNil(req.Address)
	profile.Specialization = trimmedOrNil(req.Specialization)
	if err := s.accounts.UpsertProfile(ctx, &profile); err != nil {
		return nil, err
	}
	current.Profile = profile
	return current, nil
}

// Delete removes the auth user; the profile and class assignments cascade.
func (s *StaffService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.accounts.DeleteAuthUser(ctx, id)
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/aladab-school-api/internal/models"
	"github.com/noah-isme/aladab-school-api/internal/repository"
	appErrors "github.com/noah-isme/aladab-school-api/pkg/errors"
)

type userRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
}

type profileRepository interface {
	Upsert(ctx context.Context, profile *models.Profile) error
	FindByID(ctx context.Context, id string) (*models.ProfileWithEmail, error)
	List(ctx context.Context, filter models.ProfileFilter) ([]models.ProfileWithEmail, int, error)
	UpdateContact(ctx context.Context, id string, phone, address *string) error
	Delete(ctx context.Context, id string) error
}

// UpdateOwnProfileRequest lists the fields a user may change on their own profile.
type UpdateOwnProfileRequest struct {
	Phone   *string `json:"phone" form:"phone" validate:"omitempty,max=32"`
	Address *string `json:"address" form:"address" validate:"omitempty,max=255"`
}

// AdminUpdateProfileRequest is the unrestricted profile edit.
type AdminUpdateProfileRequest struct {
	FullName       string          `json:"full_name" form:"fullName" validate:"required"`
	Role           models.UserRole `json:"role" form:"role" validate:"required,oneof=admin principal teacher student"`
	Phone          *string         `json:"phone" form:"phone" validate:"omitempty,max=32"`
	Address        *string         `json:"address" form:"address" validate:"omitempty,max=255"`
	Specialization *string         `json:"specialization" form:"specialization" validate:"omitempty,max=120"`
}

// UserService manages login accounts and the profiles attached to them.
type UserService struct {
	users     userRepository
	profiles  profileRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(users userRepository, profiles profileRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{users: users, profiles: profiles, validator: validate, logger: logger}
}

// CreateAuthUser registers a login account. A taken email yields ErrEmailRegistered.
func (s *UserService) CreateAuthUser(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.validator.Var(email, "required,email"); err != nil {
		return nil, appErrors.Invalid(err, "invalid email address")
	}
	if err := s.validator.Var(password, "required,min=6"); err != nil {
		return nil, appErrors.Invalid(err, "password must be at least 6 characters")
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrEmailRegistered, "email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrEmailRegistered, "email already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}
	s.logger.Info("auth user created", zap.String("user_id", user.ID))
	return user, nil
}

// DeleteAuthUser removes a login account; the profile cascades.
func (s *UserService) DeleteAuthUser(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}
	s.logger.Info("auth user deleted", zap.String("user_id", id))
	return nil
}

// UpsertProfile writes every profile field.
func (s *UserService) UpsertProfile(ctx context.Context, profile *models.Profile) error {
	if !profile.Role.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "invalid role")
	}
	if strings.TrimSpace(profile.FullName) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "full name is required")
	}
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save profile")
	}
	return nil
}

// DeleteProfile removes a profile row only.
func (s *UserService) DeleteProfile(ctx context.Context, id string) error {
	if err := s.profiles.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete profile")
	}
	return nil
}

// GetProfile returns a profile with its login email.
func (s *UserService) GetProfile(ctx context.Context, id string) (*models.ProfileWithEmail, error) {
	profile, err := s.profiles.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}
	return profile, nil
}

// ListProfiles returns profiles and pagination metadata.
func (s *UserService) ListProfiles(ctx context.Context, filter models.ProfileFilter) ([]models.ProfileWithEmail, *models.Pagination, error) {
	profiles, total, err := s.profiles.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list profiles")
	}
	return profiles, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// UpdateOwnProfile applies the restricted self-service edit.
func (s *UserService) UpdateOwnProfile(ctx context.Context, id string, req UpdateOwnProfileRequest) (*models.ProfileWithEmail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid profile payload")
	}
	if err := s.profiles.UpdateContact(ctx, id, trimmedOrNil(req.Phone), trimmedOrNil(req.Address)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}
	return s.GetProfile(ctx, id)
}

// AdminUpdateProfile overwrites all profile fields including the role.
func (s *UserService) AdminUpdateProfile(ctx context.Context, id string, req AdminUpdateProfileRequest) (*models.ProfileWithEmail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid profile payload")
	}
	current, err := s.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	profile := current.Profile
	profile.FullName = strings.TrimSpace(req.FullName)
	profile.Role = req.Role
	profile.Phone = trimmedOrNil(req.Phone)
	profile.Address = trimmedOrNil(req.Address)
	profile.Specialization = trimmedOrNil(req.Specialization)
	if err := s.profiles.Upsert(ctx, &profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}
	current.Profile = profile
	return current, nil
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

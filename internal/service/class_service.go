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
)

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	ExistsByName(ctx context.Context, name, section, excludeID string) (bool, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, id string) error
	CountStudents(ctx context.Context, classID string) (int, error)
	ListTeachers(ctx context.Context, classIDs []string) ([]models.ClassTeacher, error)
	ReplaceTeachers(ctx context.Context, classID string, teacherIDs []string) error
}

type teacherLookup interface {
	FindByID(ctx context.Context, id string) (*models.ProfileWithEmail, error)
}

// ClassRequest captures the create and update payload.
type ClassRequest struct {
	Name     string               `json:"name" form:"name" validate:"required,max=60"`
	Section  string               `json:"section" form:"section" validate:"omitempty,max=20"`
	Category models.ClassCategory `json:"category" form:"category" validate:"required,oneof=Junior Senior"`
}

// AssignTeachersRequest replaces the teacher set of a class. The form field teacherId may repeat.
type AssignTeachersRequest struct {
	TeacherIDs []string `json:"teacher_ids" form:"teacherId" validate:"dive,required"`
}

// ClassService coordinates class operations.
type ClassService struct {
	repo      classRepository
	teachers  teacherLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs ClassService.
func NewClassService(repo classRepository, teachers teacherLookup, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, teachers: teachers, validator: validate, logger: logger}
}

// List returns classes with their assigned teachers and pagination metadata.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, *models.Pagination, error) {
	classes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}

	ids := make([]string, 0, len(classes))
	for _, class := range classes {
		ids = append(ids, class.ID)
	}
	teachers, err := s.repo.ListTeachers(ctx, ids)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class teachers")
	}
	byClass := make(map[string][]models.ClassTeacher, len(classes))
	for _, t := range teachers {
		byClass[t.ClassID] = append(byClass[t.ClassID], t)
	}

	details := make([]models.ClassDetail, 0, len(classes))
	for _, class := range classes {
		assigned := byClass[class.ID]
		if assigned == nil {
			assigned = []models.ClassTeacher{}
		}
		details = append(details, models.ClassDetail{Class: class, Teachers: assigned})
	}
	return details, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a class with its teachers.
func (s *ClassService) Get(ctx context.Context, id string) (*models.ClassDetail, error) {
	class, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	teachers, err := s.repo.ListTeachers(ctx, []string{id})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class teachers")
	}
	if teachers == nil {
		teachers = []models.ClassTeacher{}
	}
	return &models.ClassDetail{Class: *class, Teachers: teachers}, nil
}

// Create adds a new class.
func (s *ClassService) Create(ctx context.Context, req ClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid class payload")
	}
	name, section := strings.TrimSpace(req.Name), strings.TrimSpace(req.Section)

	exists, err := s.repo.ExistsByName(ctx, name, section, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "class name already exists")
	}

	class := &models.Class{Name: name, Section: section, Category: req.Category}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	return class, nil
}

// Update modifies a class record.
func (s *ClassService) Update(ctx context.Context, id string, req ClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid class payload")
	}
	class, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	name, section := strings.TrimSpace(req.Name), strings.TrimSpace(req.Section)

	exists, err := s.repo.ExistsByName(ctx, name, section, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "class name already exists")
	}

	class.Name = name
	class.Section = section
	class.Category = req.Category
	if err := s.repo.Update(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	return class, nil
}

// Delete removes a class that has no students left.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if count, err := s.repo.CountStudents(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class students")
	} else if count > 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "class still has students")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	return nil
}

// AssignTeachers replaces the class teacher set in one transaction.
func (s *ClassService) AssignTeachers(ctx context.Context, classID string, req AssignTeachersRequest) ([]models.ClassTeacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid assignment payload")
	}
	if _, err := s.load(ctx, classID); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(req.TeacherIDs))
	ids := make([]string, 0, len(req.TeacherIDs))
	for _, raw := range req.TeacherIDs {
		id := strings.TrimSpace(raw)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if s.teachers != nil {
			profile, err := s.teachers.FindByID(ctx, id)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
				}
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate teacher")
			}
			if profile.Role != models.RoleTeacher {
				return nil, appErrors.Clone(appErrors.ErrValidation, "profile is not a teacher")
			}
		}
		ids = append(ids, id)
	}

	if err := s.repo.ReplaceTeachers(ctx, classID, ids); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign class teachers")
	}
	s.logger.Info("class teachers replaced", zap.String("class_id", classID), zap.Int("count", len(ids)))

	teachers, err := s.repo.ListTeachers(ctx, []string{classID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class teachers")
	}
	return teachers, nil
}

func (s *ClassService) load(ctx context.Context, id string) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

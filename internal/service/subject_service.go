package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/aladab-school-api/internal/models"
	"github.com/noah-isme/aladab-school-api/internal/repository"
	appErrors "github.com/noah-isme/aladab-school-api/pkg/errors"
	"github.com/noah-isme/aladab-school-api/pkg/saga"
)

type subjectRepository interface {
	List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, error)
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	ListByGroup(ctx context.Context, key models.SubjectGroupKey) ([]models.Subject, error)
	ExistsVariant(ctx context.Context, subject models.Subject, excludeID string) (bool, error)
	Create(ctx context.Context, subject *models.Subject) error
	Update(ctx context.Context, subject *models.Subject) error
	Delete(ctx context.Context, id string) error
	DeleteGroup(ctx context.Context, ids []string) error
}

// SubjectRequest is the create and update payload for one variant.
type SubjectRequest struct {
	Name             string                 `json:"name" form:"name" validate:"required,max=120"`
	Code             string                 `json:"code" form:"code" validate:"required,max=20"`
	Category         models.SubjectCategory `json:"category" form:"category" validate:"required,oneof=All Junior Senior"`
	DepartmentTarget models.Department      `json:"department_target" form:"departmentTarget" validate:"omitempty,oneof=General Science Arts Commercial"`
	IsCompulsory     bool                   `json:"is_compulsory" form:"isCompulsory"`
}

// SubjectService manages curriculum subjects and their variants.
type SubjectService struct {
	repo      subjectRepository
	observer  saga.Observer
	validator *validator.Validate
	cache     *CacheService
	logger    *zap.Logger
}

// NewSubjectService constructs a SubjectService.
func NewSubjectService(repo subjectRepository, observer saga.Observer, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{repo: repo, observer: observer, validator: validate, logger: logger}
}

// WithCache makes subject deletes drop cached timetable grids, whose lessons may point at the removed rows.
func (s *SubjectService) WithCache(cache *CacheService) *SubjectService {
	s.cache = cache
	return s
}

// ListGrouped returns the subjects grouped by normalised name and code.
func (s *SubjectService) ListGrouped(ctx context.Context, filter models.SubjectFilter) ([]models.SubjectGroup, error) {
	subjects, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return GroupSubjects(subjects), nil
}

// GroupSubjects folds variants into groups, keeping the order in which each key first appears.
func GroupSubjects(subjects []models.Subject) []models.SubjectGroup {
	groups := make([]models.SubjectGroup, 0)
	position := make(map[models.SubjectGroupKey]int)
	for _, subject := range subjects {
		key := subject.GroupKey()
		i, ok := position[key]
		if !ok {
			i = len(groups)
			position[key] = i
			groups = append(groups, models.SubjectGroup{
				Key:  key,
				Name: strings.TrimSpace(subject.Name),
				Code: strings.TrimSpace(subject.Code),
			})
		}
		groups[i].Variants = append(groups[i].Variants, subject)
	}
	return groups
}

// Get returns one subject variant.
func (s *SubjectService) Get(ctx context.Context, id string) (*models.Subject, error) {
	subject, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	return subject, nil
}

// Create adds a subject variant.
func (s *SubjectService) Create(ctx context.Context, req SubjectRequest) (*models.Subject, error) {
	subject, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, *subject, ""); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	return subject, nil
}

// Update modifies a subject variant.
func (s *SubjectService) Update(ctx context.Context, id string, req SubjectRequest) (*models.Subject, error) {
	next, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, *next, id); err != nil {
		return nil, err
	}
	current.Name = next.Name
	current.Code = next.Code
	current.Category = next.Category
	current.DepartmentTarget = next.DepartmentTarget
	current.IsCompulsory = next.IsCompulsory
	if err := s.repo.Update(ctx, current); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update subject")
	}
	return current, nil
}

// DeleteVariant removes one variant; siblings in the group are untouched.
func (s *SubjectService) DeleteVariant(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject")
	}
	_ = s.cache.Invalidate(ctx, timetableCachePrefix+"*")
	return nil
}

// DeleteGroup removes every variant sharing the key in a single step run through the workflow runner, so a
// failure leaves the whole group and its dependent results in place. It returns the number of variants deleted.
func (s *SubjectService) DeleteGroup(ctx context.Context, key models.SubjectGroupKey) (int, error) {
	key = models.NewSubjectGroupKey(key.Name, key.Code)
	if key.Name == "" || key.Code == "" {
		return 0, appErrors.Clone(appErrors.ErrValidation, "subject name and code are required")
	}
	variants, err := s.repo.ListByGroup(ctx, key)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject group")
	}
	if len(variants) == 0 {
		return 0, appErrors.Clone(appErrors.ErrNotFound, "subject group not found")
	}
	ids := make([]string, len(variants))
	for i, variant := range variants {
		ids[i] = variant.ID
	}

	wf := saga.New("subject_group_delete", s.logger).WithObserver(s.observer)
	wf.AddStep(saga.Step{
		Name: "delete_variants",
		Action: func(ctx context.Context) error {
			err := s.repo.DeleteGroup(ctx, ids)
			switch {
			case err == nil:
				return nil
			case errors.Is(err, repository.ErrGroupChanged):
				return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "subject group changed while deleting, reload and retry")
			default:
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject group")
			}
		},
	})
	if err := wf.Run(ctx); err != nil {
		return 0, workflowError(err)
	}
	_ = s.cache.Invalidate(ctx, timetableCachePrefix+"*")
	s.logger.Info("subject group deleted", zap.String("name", key.Name), zap.String("code", key.Code), zap.Int("variants", len(variants)))
	return len(variants), nil
}

func (s *SubjectService) fromRequest(req SubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid subject payload")
	}
	department := req.DepartmentTarget
	if department == "" {
		department = models.DepartmentGeneral
	}
	if department != models.DepartmentGeneral && req.Category != models.SubjectCategorySenior {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only senior subjects can target a department")
	}
	return &models.Subject{
		Name:             strings.Join(strings.Fields(req.Name), " "),
		Code:             strings.ToUpper(strings.TrimSpace(req.Code)),
		Category:         req.Category,
		DepartmentTarget: department,
		IsCompulsory:     req.IsCompulsory,
	}, nil
}

func (s *SubjectService) ensureUnique(ctx context.Context, subject models.Subject, excludeID string) error {
	exists, err := s.repo.ExistsVariant(ctx, subject, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check subject variant")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "subject variant already exists")
	}
	return nil
}

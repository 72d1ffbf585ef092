package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/aladab-school-api/internal/dto"
	"github.com/noah-isme/aladab-school-api/internal/models"
	"github.com/noah-isme/aladab-school-api/internal/repository"
	appErrors "github.com/noah-isme/aladab-school-api/pkg/errors"
)

type timetableRepository interface {
	ListByClass(ctx context.Context, classID string) ([]models.TimetablePeriod, error)
	ReplaceForClass(ctx context.Context, classID string, periods []models.TimetablePeriod) error
}

type classFinder interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type subjectFinder interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

// TimetableService loads, edits and persists class timetable grids.
type TimetableService struct {
	repo      timetableRepository
	classes   classFinder
	subjects  subjectFinder
	cache     *CacheService
	audit     auditLogger
	cfg       GridConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimetableService constructs TimetableService.
func NewTimetableService(repo timetableRepository, classes classFinder, subjects subjectFinder, cache *CacheService, audit auditLogger, cfg GridConfig, validate *validator.Validate, logger *zap.Logger) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		repo:      repo,
		classes:   classes,
		subjects:  subjects,
		cache:     cache,
		audit:     audit,
		cfg:       cfg,
		validator: validate,
		logger:    logger,
	}
}

// Get returns the grid of a class, reconstructed from stored rows.
func (s *TimetableService) Get(ctx context.Context, classID string) (*Grid, error) {
	if err := ensureClassExists(ctx, s.classes, classID); err != nil {
		return nil, err
	}
	key := timetableCacheKey(classID)
	var cached Grid
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}
	grid, err := s.load(ctx, classID)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, key, grid, 0)
	return grid, nil
}

// ApplyEdits runs the edits in order against the current grid. Nothing is stored unless save is set and
// every edit succeeded.
func (s *TimetableService) ApplyEdits(ctx context.Context, classID string, req dto.TimetableEditRequest, actorID string) (*Grid, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid timetable edits")
	}
	grid, err := s.Get(ctx, classID)
	if err != nil {
		return nil, err
	}
	for _, edit := range req.Edits {
		if err := grid.Apply(edit, s.cfg); err != nil {
			return nil, err
		}
	}
	if !req.Save {
		return grid, nil
	}
	return s.Save(ctx, classID, grid, actorID)
}

// Save replaces the stored rows of the class with the flattened grid in one transaction.
func (s *TimetableService) Save(ctx context.Context, classID string, grid *Grid, actorID string) (*Grid, error) {
	if grid == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "timetable grid is required")
	}
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	if err := ensureClassExists(ctx, s.classes, classID); err != nil {
		return nil, err
	}
	rows := grid.Flatten(classID)
	if err := s.ensureSubjects(ctx, rows); err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceForClass(ctx, classID, rows); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "two periods share a start time")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save timetable")
	}
	_ = s.cache.Evict(ctx, timetableCacheKey(classID))
	recordAudit(ctx, s.audit, s.logger, actorID, models.AuditActionTimetableSave, "timetable", classID, map[string]interface{}{
		"rows": len(rows),
	})
	s.logger.Info("timetable saved", zap.String("class_id", classID), zap.Int("rows", len(rows)))
	return s.load(ctx, classID)
}

// Regenerate discards every column and assignment and stores the default grid.
func (s *TimetableService) Regenerate(ctx context.Context, classID string, req dto.RegenerateTimetableRequest, actorID string) (*Grid, error) {
	grid := &Grid{}
	if err := grid.Regenerate(s.cfg, req.Confirm); err != nil {
		return nil, err
	}
	return s.Save(ctx, classID, grid, actorID)
}

func (s *TimetableService) load(ctx context.Context, classID string) (*Grid, error) {
	rows, err := s.repo.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	grid, err := ReconstructGrid(rows, s.cfg)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rebuild timetable")
	}
	return grid, nil
}

func (s *TimetableService) ensureSubjects(ctx context.Context, rows []models.TimetablePeriod) error {
	if s.subjects == nil {
		return nil
	}
	seen := make(map[string]struct{})
	for _, row := range rows {
		if row.SubjectID == nil {
			continue
		}
		id := *row.SubjectID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if _, err := s.subjects.FindByID(ctx, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrValidation, "subject "+id+" does not exist")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate subject")
		}
	}
	return nil
}

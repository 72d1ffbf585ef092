package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/aladab-school-api/internal/models"
	appErrors "github.com/noah-isme/aladab-school-api/pkg/errors"
)

const academicPeriodCacheTTL = time.Hour

type academicRepository interface {
	Get(ctx context.Context) (*models.AcademicSettings, error)
	Upsert(ctx context.Context, period models.AcademicPeriod) (*models.AcademicSettings, error)
}

// AcademicPeriodService owns the stored current session and term.
type AcademicPeriodService struct {
	repo   academicRepository
	cache  *CacheService
	audit  auditLogger
	logger *zap.Logger
}

// NewAcademicPeriodService constructs AcademicPeriodService.
func NewAcademicPeriodService(repo academicRepository, cache *CacheService, audit auditLogger, logger *zap.Logger) *AcademicPeriodService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AcademicPeriodService{repo: repo, cache: cache, audit: audit, logger: logger}
}

// Current returns the stored period, reading through the cache.
func (s *AcademicPeriodService) Current(ctx context.Context) (models.AcademicPeriod, error) {
	var cached models.AcademicPeriod
	if hit, _ := s.cache.Get(ctx, academicPeriodCacheKey, &cached); hit {
		return cached, nil
	}
	settings, err := s.repo.Get(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.AcademicPeriod{}, appErrors.Clone(appErrors.ErrNotFound, "academic period not configured")
		}
		return models.AcademicPeriod{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic period")
	}
	period := settings.Period()
	_ = s.cache.Set(ctx, academicPeriodCacheKey, period, academicPeriodCacheTTL)
	return period, nil
}

// Update stores a new current period and drops the cached copy.
func (s *AcademicPeriodService) Update(ctx context.Context, period models.AcademicPeriod, actorID string) (models.AcademicPeriod, error) {
	period.Session = strings.TrimSpace(period.Session)
	period.Term = strings.TrimSpace(period.Term)
	if err := validatePeriod(period); err != nil {
		return models.AcademicPeriod{}, err
	}
	settings, err := s.repo.Upsert(ctx, period)
	if err != nil {
		return models.AcademicPeriod{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update academic period")
	}
	_ = s.cache.Evict(ctx, academicPeriodCacheKey)
	recordAudit(ctx, s.audit, s.logger, actorID, models.AuditActionPeriodUpdate, "academic_settings", "1", period)
	s.logger.Info("academic period updated", zap.String("session", period.Session), zap.String("term", period.Term))
	return settings.Period(), nil
}

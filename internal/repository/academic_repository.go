package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/aladab-school-api/internal/models"
)

// AcademicRepository reads and writes the academic_settings singleton.
type AcademicRepository struct {
	db *sqlx.DB
}

// NewAcademicRepository constructs the repository.
func NewAcademicRepository(db *sqlx.DB) *AcademicRepository {
	return &AcademicRepository{db: db}
}

// Get returns the stored settings row. sql.ErrNoRows means no period was configured yet.
func (r *AcademicRepository) Get(ctx context.Context) (*models.AcademicSettings, error) {
	const query = `SELECT id, current_session, current_term, updated_at FROM academic_settings WHERE id = 1`
	var settings models.AcademicSettings
	if err := r.db.GetContext(ctx, &settings, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get academic settings: %w", err)
	}
	return &settings, nil
}

// Upsert stores the current period.
func (r *AcademicRepository) Upsert(ctx context.Context, period models.AcademicPeriod) (*models.AcademicSettings, error) {
	settings := &models.AcademicSettings{ID: 1, Session: period.Session, Term: period.Term, UpdatedAt: time.Now().UTC()}
	const query = `INSERT INTO academic_settings (id, current_session, current_term, updated_at)
VALUES (:id, :current_session, :current_term, :updated_at)
ON CONFLICT (id) DO UPDATE SET current_session = EXCLUDED.current_session, current_term = EXCLUDED.current_term, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, settings); err != nil {
		return nil, fmt.Errorf("upsert academic settings: %w", err)
	}
	return settings, nil
}

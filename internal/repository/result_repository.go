package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/aladab-school-api/internal/models"
)

// ResultRepository persists continuous assessment and exam scores.
type ResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository constructs the repository.
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

const resultColumns = `r.id, r.student_id, r.subject_id, r.class_id, r.session, r.term, r.ca_score, r.exam_score, r.created_at, r.updated_at`

// ListForClassSubject returns the stored results of one class and subject for a period.
func (r *ResultRepository) ListForClassSubject(ctx context.Context, classID, subjectID string, period models.AcademicPeriod) ([]models.Result, error) {
	query := `SELECT ` + resultColumns + ` FROM results r
WHERE r.class_id = $1 AND r.subject_id = $2 AND r.session = $3 AND r.term = $4`
	var results []models.Result
	if err := r.db.SelectContext(ctx, &results, query, classID, subjectID, period.Session, period.Term); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return results, nil
}

// ListForStudent returns a student's results for a period joined with subject names.
func (r *ResultRepository) ListForStudent(ctx context.Context, studentID string, period models.AcademicPeriod) ([]models.SubjectResult, error) {
	query := `SELECT ` + resultColumns + `, sub.name AS subject_name, sub.code AS subject_code
FROM results r JOIN subjects sub ON sub.id = r.subject_id
WHERE r.student_id = $1 AND r.session = $2 AND r.term = $3
ORDER BY sub.name ASC`
	var results []models.SubjectResult
	if err := r.db.SelectContext(ctx, &results, query, studentID, period.Session, period.Term); err != nil {
		return nil, fmt.Errorf("list student results: %w", err)
	}
	return results, nil
}

// UpsertMany writes every row in one transaction keyed on (student, subject, class, session, term).
func (r *ResultRepository) UpsertMany(ctx context.Context, results []models.Result) (err error) {
	if len(results) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert results: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO results (id, student_id, subject_id, class_id, session, term, ca_score, exam_score, created_at, updated_at)
VALUES (:id, :student_id, :subject_id, :class_id, :session, :term, :ca_score, :exam_score, :created_at, :updated_at)
ON CONFLICT (student_id, subject_id, class_id, session, term)
DO UPDATE SET ca_score = EXCLUDED.ca_score, exam_score = EXCLUDED.exam_score, updated_at = EXCLUDED.updated_at`
	now := time.Now().UTC()
	for i := range results {
		row := results[i]
		if row.ID == "" {
			row.ID = uuid.NewString()
		}
		row.CreatedAt = now
		row.UpdatedAt = now
		if _, err = tx.NamedExecContext(ctx, query, &row); err != nil {
			return fmt.Errorf("upsert result for student %s: %w", row.StudentID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit results: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/aladab-school-api/internal/models"
)

// ErrGroupChanged reports that a group delete matched fewer rows than it was given.
var ErrGroupChanged = errors.New("subject group changed during delete")

// SubjectRepository provides CRUD operations over subject variants.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs a SubjectRepository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

const subjectColumns = `id, name, code, category, department_target, is_compulsory, created_at, updated_at`

// groupKeyCondition matches the normalisation done by models.NewSubjectGroupKey.
const groupKeyCondition = `LOWER(regexp_replace(TRIM(name), '\s+', ' ', 'g')) = $1 AND UPPER(TRIM(code)) = $2`

// List returns every variant matching the filter, ordered so variants of one subject are adjacent.
func (r *SubjectRepository) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, error) {
	query := "SELECT " + subjectColumns + " FROM subjects WHERE 1=1"
	var args []interface{}
	if filter.Category != "" {
		query += fmt.Sprintf(" AND category = $%d", len(args)+1)
		args = append(args, filter.Category)
	}
	if filter.Department != "" {
		query += fmt.Sprintf(" AND department_target = $%d", len(args)+1)
		args = append(args, filter.Department)
	}
	if filter.Search != "" {
		query += fmt.Sprintf(" AND (LOWER(name) LIKE $%d OR LOWER(code) LIKE $%d)", len(args)+1, len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	query += " ORDER BY LOWER(name) ASC, UPPER(code) ASC, category ASC, department_target ASC"

	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// FindByID fetches a subject variant by identifier.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	query := "SELECT " + subjectColumns + " FROM subjects WHERE id = $1"
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find subject: %w", err)
	}
	return &subject, nil
}

// ListByGroup returns every variant sharing the group key.
func (r *SubjectRepository) ListByGroup(ctx context.Context, key models.SubjectGroupKey) ([]models.Subject, error) {
	query := "SELECT " + subjectColumns + " FROM subjects WHERE " + groupKeyCondition + " ORDER BY category ASC, department_target ASC"
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, key.Name, key.Code); err != nil {
		return nil, fmt.Errorf("list subject group: %w", err)
	}
	return subjects, nil
}

// ExistsVariant reports whether the same name, code, category and department already exist.
func (r *SubjectRepository) ExistsVariant(ctx context.Context, subject models.Subject, excludeID string) (bool, error) {
	key := subject.GroupKey()
	query := "SELECT EXISTS(SELECT 1 FROM subjects WHERE " + groupKeyCondition + " AND category = $3 AND department_target = $4"
	args := []interface{}{key.Name, key.Code, subject.Category, subject.DepartmentTarget}
	if excludeID != "" {
		query += " AND id <> $5"
		args = append(args, excludeID)
	}
	query += ")"
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		return false, fmt.Errorf("check subject variant: %w", err)
	}
	return exists, nil
}

// Create inserts a subject variant. A preset ID and timestamps are kept so a deleted row can be restored verbatim.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = now
	}
	if subject.UpdatedAt.IsZero() {
		subject.UpdatedAt = now
	}
	query := `INSERT INTO subjects (` + subjectColumns + `) VALUES (:id, :name, :code, :category, :department_target, :is_compulsory, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// Update modifies an existing subject variant.
func (r *SubjectRepository) Update(ctx context.Context, subject *models.Subject) error {
	subject.UpdatedAt = time.Now().UTC()
	const query = `UPDATE subjects SET name = :name, code = :code, category = :category, department_target = :department_target,
is_compulsory = :is_compulsory, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	return nil
}

// Delete removes a single subject variant.
func (r *SubjectRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	return nil
}

// DeleteGroup removes the given variants in one transaction. Dependent results cascade and timetable cells
// are cleared together with the rows; if any id is already gone nothing is removed.
func (r *SubjectRepository) DeleteGroup(ctx context.Context, ids []string) (err error) {
	if len(ids) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete subject group: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM subjects WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("delete subject group: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete subject group: %w", err)
	}
	if affected != int64(len(ids)) {
		return fmt.Errorf("deleted %d of %d variants: %w", affected, len(ids), ErrGroupChanged)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit subject group delete: %w", err)
	}
	return nil
}

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

	"github.com/noah-isme/aladab-school-api/internal/models"
)

// ClassRepository manages persistence for classes and their teacher assignments.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a new class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// List returns classes matching filter criteria.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error) {
	base := "FROM classes WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d)", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "name"
	}
	allowedSorts := map[string]bool{
		"name":       true,
		"category":   true,
		"created_at": true,
		"updated_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "name"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "ASC"
	}

	_, size, offset := pageBounds(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT id, name, section, category, created_at, updated_at %s ORDER BY %s %s, section ASC LIMIT %d OFFSET %d", base, sortBy, sortOrder, size, offset)

	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}
	return classes, total, nil
}

// FindByID returns a class by identifier.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, name, section, category, created_at, updated_at FROM classes WHERE id = $1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find class: %w", err)
	}
	return &class, nil
}

// ExistsByName checks whether another class already uses the name and section.
func (r *ClassRepository) ExistsByName(ctx context.Context, name, section, excludeID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM classes WHERE LOWER(name) = LOWER($1) AND LOWER(section) = LOWER($2)`
	args := []interface{}{name, section}
	if excludeID != "" {
		query += ` AND id <> $3`
		args = append(args, excludeID)
	}
	query += `)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		return false, fmt.Errorf("check class name: %w", err)
	}
	return exists, nil
}

// Create inserts a class.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now
	const query = `INSERT INTO classes (id, name, section, category, created_at, updated_at) VALUES (:id, :name, :section, :category, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update modifies class attributes.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classes SET name = :name, section = :section, category = :category, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return nil
}

// Delete removes a class. Teacher assignments and timetable rows cascade.
func (r *ClassRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	return nil
}

// CountStudents returns how many students are currently in the class.
func (r *ClassRepository) CountStudents(ctx context.Context, classID string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM students WHERE class_id = $1`, classID); err != nil {
		return 0, fmt.Errorf("count class students: %w", err)
	}
	return total, nil
}

// ListTeachers returns the teacher assignments for the given classes.
func (r *ClassRepository) ListTeachers(ctx context.Context, classIDs []string) ([]models.ClassTeacher, error) {
	if len(classIDs) == 0 {
		return []models.ClassTeacher{}, nil
	}
	placeholders := make([]string, len(classIDs))
	args := make([]interface{}, len(classIDs))
	for i, id := range classIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT ct.class_id, ct.teacher_id, p.full_name AS teacher_name
FROM class_teachers ct JOIN profiles p ON p.id = ct.teacher_id
WHERE ct.class_id IN (%s) ORDER BY p.full_name ASC`, strings.Join(placeholders, ","))
	var teachers []models.ClassTeacher
	if err := r.db.SelectContext(ctx, &teachers, query, args...); err != nil {
		return nil, fmt.Errorf("list class teachers: %w", err)
	}
	return teachers, nil
}

// ReplaceTeachers swaps the full teacher set of a class in one transaction.
func (r *ClassRepository) ReplaceTeachers(ctx context.Context, classID string, teacherIDs []string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace class teachers: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM class_teachers WHERE class_id = $1`, classID); err != nil {
		return fmt.Errorf("clear class teachers: %w", err)
	}
	for _, teacherID := range teacherIDs {
		if _, err = tx.ExecContext(ctx, `INSERT INTO class_teachers (class_id, teacher_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, classID, teacherID); err != nil {
			return fmt.Errorf("insert class teacher: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit class teachers: %w", err)
	}
	return nil
}

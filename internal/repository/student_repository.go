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

// StudentRepository handles persistence of student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository creates a new repository instance.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentDetailSelect = `SELECT s.id, s.profile_id, s.admission_number, s.class_id, s.department, s.gender, s.date_of_birth,
        s.guardian_name, s.guardian_phone, s.guardian_email, s.created_at, s.updated_at,
        p.full_name, u.email, TRIM(c.name || ' ' || c.section) AS class_name
        FROM students s JOIN profiles p ON p.id = s.profile_id JOIN users u ON u.id = s.profile_id LEFT JOIN classes c ON c.id = s.class_id`

// List retrieves students using filters and pagination.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	where := " WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("s.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("s.department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(p.full_name) LIKE $%d OR LOWER(s.admission_number) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		where += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"full_name":        "p.full_name",
		"admission_number": "s.admission_number",
		"created_at":       "s.created_at",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "p.full_name"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "ASC"
	}

	_, size, offset := pageBounds(filter.Page, filter.PageSize)
	query := fmt.Sprintf("%s%s ORDER BY %s %s LIMIT %d OFFSET %d", studentDetailSelect, where, column, sortOrder, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM students s JOIN profiles p ON p.id = s.profile_id" + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID returns a student with profile and class context.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	query := studentDetailSelect + " WHERE s.id = $1"
	var student models.StudentDetail
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// Create inserts a new student row.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	if student.Department == "" {
		student.Department = models.DepartmentGeneral
	}
	const query = `INSERT INTO students (id, profile_id, admission_number, class_id, department, gender, date_of_birth, guardian_name, guardian_phone, guardian_email, created_at, updated_at)
VALUES (:id, :profile_id, :admission_number, :class_id, :department, :gender, :date_of_birth, :guardian_name, :guardian_phone, :guardian_email, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("create student: %w", ErrDuplicate)
		}
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies demographic and academic fields.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET class_id = :class_id, department = :department, gender = :gender, date_of_birth = :date_of_birth,
guardian_name = :guardian_name, guardian_phone = :guardian_phone, guardian_email = :guardian_email, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// UpdateClass moves the student to another class.
func (r *StudentRepository) UpdateClass(ctx context.Context, id string, classID *string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE students SET class_id = $2, updated_at = $3 WHERE id = $1`, id, classID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update student class: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes the student row.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}

// Roster lists the students of a class ordered by name, optionally limited to one department.
func (r *StudentRepository) Roster(ctx context.Context, classID string, department models.Department) ([]models.RosterEntry, error) {
	query := `SELECT s.id AS student_id, s.admission_number, p.full_name, s.department
FROM students s JOIN profiles p ON p.id = s.profile_id
WHERE s.class_id = $1`
	args := []interface{}{classID}
	if department != "" {
		query += ` AND s.department = $2`
		args = append(args, department)
	}
	query += ` ORDER BY p.full_name ASC`
	var roster []models.RosterEntry
	if err := r.db.SelectContext(ctx, &roster, query, args...); err != nil {
		return nil, fmt.Errorf("list class roster: %w", err)
	}
	return roster, nil
}

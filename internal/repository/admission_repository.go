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

// AdmissionRepository persists admission applications.
type AdmissionRepository struct {
	db *sqlx.DB
}

// NewAdmissionRepository constructs the repository.
func NewAdmissionRepository(db *sqlx.DB) *AdmissionRepository {
	return &AdmissionRepository{db: db}
}

const admissionColumns = `id, first_name, last_name, email, gender, date_of_birth, desired_class_id, department, guardian_name,
guardian_phone, guardian_email, passport_url, status, admission_number, student_id, review_note, reviewed_by, reviewed_at, created_at`

// Create stores a new pending application.
func (r *AdmissionRepository) Create(ctx context.Context, app *models.AdmissionApplication) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	if app.Department == "" {
		app.Department = models.DepartmentGeneral
	}
	app.Status = models.ApplicationPending
	app.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO admission_applications (id, first_name, last_name, email, gender, date_of_birth, desired_class_id, department,
guardian_name, guardian_phone, guardian_email, passport_url, status, created_at)
VALUES (:id, :first_name, :last_name, :email, :gender, :date_of_birth, :desired_class_id, :department,
:guardian_name, :guardian_phone, :guardian_email, :passport_url, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, app); err != nil {
		return fmt.Errorf("create admission application: %w", err)
	}
	return nil
}

// FindByID returns an application by id.
func (r *AdmissionRepository) FindByID(ctx context.Context, id string) (*models.AdmissionApplication, error) {
	query := `SELECT ` + admissionColumns + ` FROM admission_applications WHERE id = $1`
	var app models.AdmissionApplication
	if err := r.db.GetContext(ctx, &app, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find admission application: %w", err)
	}
	return &app, nil
}

// List returns applications newest first.
func (r *AdmissionRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]models.AdmissionApplication, int, error) {
	where := " WHERE 1=1"
	var conditions []string
	var args []interface{}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, string(filter.Status))
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(first_name || ' ' || last_name) LIKE $%d OR LOWER(COALESCE(email, '')) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		where += " AND " + strings.Join(conditions, " AND ")
	}

	_, size, offset := pageBounds(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s FROM admission_applications%s ORDER BY created_at DESC LIMIT %d OFFSET %d", admissionColumns, where, size, offset)
	var apps []models.AdmissionApplication
	if err := r.db.SelectContext(ctx, &apps, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list admission applications: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM admission_applications"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count admission applications: %w", err)
	}
	return apps, total, nil
}

// MarkApproved records the approval outcome. sql.ErrNoRows means the application is no longer pending.
func (r *AdmissionRepository) MarkApproved(ctx context.Context, id, admissionNumber, studentID, reviewerID string) error {
	const query = `UPDATE admission_applications SET status = 'approved', admission_number = $2, student_id = $3,
reviewed_by = NULLIF($4, '')::uuid, reviewed_at = $5 WHERE id = $1 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query, id, admissionNumber, studentID, reviewerID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("approve admission application: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkRejected records a rejection with an optional note.
func (r *AdmissionRepository) MarkRejected(ctx context.Context, id, note, reviewerID string) error {
	const query = `UPDATE admission_applications SET status = 'rejected', review_note = NULLIF($2, ''),
reviewed_by = NULLIF($3, '')::uuid, reviewed_at = $4 WHERE id = $1 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query, id, note, reviewerID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("reject admission application: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

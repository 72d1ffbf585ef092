package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/aladab-school-api/internal/models"
)

// AttendanceRepository handles register marks keyed on (student, date).
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// UpsertMany writes the marks of one register submission in a single statement.
func (r *AttendanceRepository) UpsertMany(ctx context.Context, records []models.Attendance) error {
	if len(records) == 0 {
		return nil
	}
	now := time.Now().UTC()
	values := make([]string, 0, len(records))
	args := make([]interface{}, 0, len(records)*9)
	for i := range records {
		rec := &records[i]
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		rec.CreatedAt = now
		rec.UpdatedAt = now
		base := len(args)
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9))
		args = append(args, rec.ID, rec.StudentID, rec.ClassID, rec.Date, string(rec.Status), rec.Note, rec.RecordedBy, rec.CreatedAt, rec.UpdatedAt)
	}

	query := `INSERT INTO attendance (id, student_id, class_id, date, status, note, recorded_by, created_at, updated_at) VALUES ` +
		strings.Join(values, ", ") +
		` ON CONFLICT (student_id, date) DO UPDATE SET status = EXCLUDED.status, note = EXCLUDED.note,
class_id = EXCLUDED.class_id, recorded_by = EXCLUDED.recorded_by, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert attendance: %w", err)
	}
	return nil
}

// Register returns the class roster with the marks recorded for the date.
func (r *AttendanceRepository) Register(ctx context.Context, classID string, date time.Time) ([]models.RegisterEntry, error) {
	const query = `SELECT s.id AS student_id, s.admission_number, p.full_name, s.department, a.status, a.note
FROM students s
JOIN profiles p ON p.id = s.profile_id
LEFT JOIN attendance a ON a.student_id = s.id AND a.date = $2
WHERE s.class_id = $1
ORDER BY p.full_name ASC`
	var entries []models.RegisterEntry
	if err := r.db.SelectContext(ctx, &entries, query, classID, date); err != nil {
		return nil, fmt.Errorf("load register: %w", err)
	}
	return entries, nil
}

// CountByStatus groups a student's marks between from and to inclusive.
func (r *AttendanceRepository) CountByStatus(ctx context.Context, studentID string, from, to time.Time) ([]models.AttendanceStatusCount, error) {
	const query = `SELECT status, COUNT(*) AS count FROM attendance
WHERE student_id = $1 AND date BETWEEN $2 AND $3
GROUP BY status`
	var counts []models.AttendanceStatusCount
	if err := r.db.SelectContext(ctx, &counts, query, studentID, from, to); err != nil {
		return nil, fmt.Errorf("count attendance: %w", err)
	}
	return counts, nil
}

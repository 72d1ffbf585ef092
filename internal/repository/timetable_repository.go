package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/aladab-school-api/internal/models"
)

// TimetableRepository stores the flat period rows of class timetables.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs the repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// ListByClass returns every row for the class ordered by day of week and start time.
func (r *TimetableRepository) ListByClass(ctx context.Context, classID string) ([]models.TimetablePeriod, error) {
	const query = `SELECT id, class_id, day, start_time, end_time, period_type, label, subject_id
FROM timetables WHERE class_id = $1
ORDER BY CASE day WHEN 'Monday' THEN 1 WHEN 'Tuesday' THEN 2 WHEN 'Wednesday' THEN 3 WHEN 'Thursday' THEN 4 ELSE 5 END, start_time ASC`
	var periods []models.TimetablePeriod
	if err := r.db.SelectContext(ctx, &periods, query, classID); err != nil {
		return nil, fmt.Errorf("list timetable: %w", err)
	}
	return periods, nil
}

// ReplaceForClass swaps the stored rows of a class for the given set in one transaction.
// Two rows with the same day and start fail the whole replace with ErrDuplicate.
func (r *TimetableRepository) ReplaceForClass(ctx context.Context, classID string, periods []models.TimetablePeriod) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace timetable: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM timetables WHERE class_id = $1`, classID); err != nil {
		return fmt.Errorf("clear timetable: %w", err)
	}

	const insert = `INSERT INTO timetables (id, class_id, day, start_time, end_time, period_type, label, subject_id)
VALUES (:id, :class_id, :day, :start_time, :end_time, :period_type, :label, :subject_id)`
	for i := range periods {
		row := periods[i]
		row.ClassID = classID
		if row.ID == "" {
			row.ID = uuid.NewString()
		}
		if _, err = tx.NamedExecContext(ctx, insert, &row); err != nil {
			if IsUniqueViolation(err) {
				return fmt.Errorf("timetable %s %s: %w", row.Day, row.StartTime, ErrDuplicate)
			}
			return fmt.Errorf("insert timetable period: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit timetable: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aladab-school-api/internal/models"
)

func TestTimetableReplaceForClassCommits(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	subjectID := "math"
	periods := []models.TimetablePeriod{
		{Day: models.Monday, StartTime: "08:00", EndTime: "08:15", PeriodType: models.PeriodAssembly, Label: "Assembly"},
		{Day: models.Monday, StartTime: "08:15", EndTime: "08:55", PeriodType: models.PeriodLesson, SubjectID: &subjectID},
		{Day: models.Monday, StartTime: "08:55", EndTime: "09:35", PeriodType: models.PeriodLesson},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetables WHERE class_id = $1")).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 12))
	for range periods {
		mock.ExpectExec("INSERT INTO timetables").WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceForClass(context.Background(), "c1", periods))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableReplaceForClassRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM timetables").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO timetables").WillReturnError(errors.New("subject fk violation"))
	mock.ExpectRollback()

	err := repo.ReplaceForClass(context.Background(), "c1", []models.TimetablePeriod{{Day: models.Friday, StartTime: "08:00", EndTime: "08:40", PeriodType: models.PeriodLesson}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert timetable period")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableReplaceForClassReportsSharedStart(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM timetables").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO timetables").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO timetables").WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.ReplaceForClass(context.Background(), "c1", []models.TimetablePeriod{
		{Day: models.Monday, StartTime: "08:15", EndTime: "08:55", PeriodType: models.PeriodLesson},
		{Day: models.Monday, StartTime: "08:15", EndTime: "08:55", PeriodType: models.PeriodLesson},
	})
	require.ErrorIs(t, err, ErrDuplicate)
	assert.Contains(t, err.Error(), "Monday 08:15")
	assert.NoError(t, mock.ExpectationsWereMet())
}

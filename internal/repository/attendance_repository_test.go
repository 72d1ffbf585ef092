package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aladab-school-api/internal/models"
)

func TestAttendanceUpsertManySingleStatement(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2024, 10, 7, 0, 0, 0, 0, time.UTC)
	classID := "c1"
	records := []models.Attendance{
		{StudentID: "st1", ClassID: &classID, Date: date, Status: models.AttendancePresent},
		{StudentID: "st2", ClassID: &classID, Date: date, Status: models.AttendanceAbsent},
	}

	mock.ExpectExec(regexp.QuoteMeta("($1, $2, $3, $4, $5, $6, $7, $8, $9), ($10, $11, $12, $13, $14, $15, $16, $17, $18) ON CONFLICT (student_id, date)")).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.UpsertMany(context.Background(), records))
	assert.NotEmpty(t, records[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRegisterIncludesUnmarked(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2024, 10, 7, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"student_id", "admission_number", "full_name", "department", "status", "note"}).
		AddRow("st1", "ALD/2024/0001", "Ada Obi", "General", "present", nil).
		AddRow("st2", "ALD/2024/0002", "Bola Ade", "General", nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN attendance a ON a.student_id = s.id AND a.date = $2")).
		WithArgs("c1", date).
		WillReturnRows(rows)

	entries, err := repo.Register(context.Background(), "c1", date)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.NotNil(t, entries[0].Status)
	assert.Equal(t, models.AttendancePresent, *entries[0].Status)
	assert.Nil(t, entries[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aladab-school-api/internal/models"
)

func TestResultRepositoryListForClassSubject(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "student_id", "subject_id", "class_id", "session", "term", "ca_score", "exam_score", "created_at", "updated_at"}).
		AddRow("r1", "st1", "math", "c1", "2024/2025", "First Term", 30.5, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE r.class_id = $1 AND r.subject_id = $2 AND r.session = $3 AND r.term = $4")).
		WithArgs("c1", "math", "2024/2025", "First Term").
		WillReturnRows(rows)

	results, err := repo.ListForClassSubject(context.Background(), "c1", "math", models.AcademicPeriod{Session: "2024/2025", Term: "First Term"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].CAScore)
	assert.InDelta(t, 30.5, *results[0].CAScore, 0.001)
	assert.Nil(t, results[0].ExamScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryUpsertManyRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	ca := 20.0
	rows := []models.Result{
		{StudentID: "st1", SubjectID: "math", ClassID: "c1", Session: "2024/2025", Term: "First Term", CAScore: &ca},
		{StudentID: "st2", SubjectID: "math", ClassID: "c1", Session: "2024/2025", Term: "First Term", CAScore: &ca},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO results").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO results").WillReturnError(errors.New("check constraint"))
	mock.ExpectRollback()

	err := repo.UpsertMany(context.Background(), rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "st2")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryUpsertManyEmpty(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	require.NoError(t, repo.UpsertMany(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aladab-school-api/internal/models"
)

var testPeriod = models.AcademicPeriod{Session: "2024/2025", Term: "First Term"}

func TestFinanceSumPaidDefaultsToZero(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFinanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(amount), 0) FROM payments")).
		WithArgs("st1", "2024/2025", "First Term").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0))

	total, err := repo.SumPaid(context.Background(), "st1", testPeriod)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinanceFindFeeNotConfigured(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFinanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM fee_structures WHERE class_id = $1")).
		WithArgs("c1", "2024/2025", "First Term").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindFee(context.Background(), "c1", testPeriod)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinanceDeletePaymentMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFinanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM payments WHERE id = $1")).
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.DeletePayment(context.Background(), "p1"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinanceSumPaidByClass(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFinanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY s.id")).
		WithArgs("c1", "2024/2025", "First Term").
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "paid"}).AddRow("st1", 5000.0).AddRow("st2", 0.0))

	totals, err := repo.SumPaidByClass(context.Background(), "c1", testPeriod)
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, 5000.0, totals[0].Paid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

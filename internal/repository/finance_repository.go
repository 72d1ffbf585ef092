package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/aladab-school-api/internal/models"
)

// FinanceRepository stores fee structures and payments.
type FinanceRepository struct {
	db *sqlx.DB
}

// NewFinanceRepository constructs the repository.
func NewFinanceRepository(db *sqlx.DB) *FinanceRepository {
	return &FinanceRepository{db: db}
}

// UpsertFee stores the expected amount for a class and period.
func (r *FinanceRepository) UpsertFee(ctx context.Context, fee *models.FeeStructure) error {
	now := time.Now().UTC()
	if fee.ID == "" {
		fee.ID = uuid.NewString()
	}
	fee.CreatedAt = now
	fee.UpdatedAt = now
	const query = `INSERT INTO fee_structures (id, class_id, session, term, amount, description, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (class_id, session, term) DO UPDATE SET amount = EXCLUDED.amount, description = EXCLUDED.description, updated_at = EXCLUDED.updated_at
RETURNING id, class_id, session, term, amount, description, created_at, updated_at`
	if err := r.db.GetContext(ctx, fee, query, fee.ID, fee.ClassID, fee.Session, fee.Term, fee.Amount, fee.Description, fee.CreatedAt, fee.UpdatedAt); err != nil {
		return fmt.Errorf("upsert fee structure: %w", err)
	}
	return nil
}

// FindFee returns the fee of a class for a period. sql.ErrNoRows means none is configured.
func (r *FinanceRepository) FindFee(ctx context.Context, classID string, period models.AcademicPeriod) (*models.FeeStructure, error) {
	const query = `SELECT id, class_id, session, term, amount, description, created_at, updated_at
FROM fee_structures WHERE class_id = $1 AND session = $2 AND term = $3`
	var fee models.FeeStructure
	if err := r.db.GetContext(ctx, &fee, query, classID, period.Session, period.Term); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find fee structure: %w", err)
	}
	return &fee, nil
}

// ListFees returns every fee structure of a period.
func (r *FinanceRepository) ListFees(ctx context.Context, period models.AcademicPeriod) ([]models.FeeStructure, error) {
	const query = `SELECT id, class_id, session, term, amount, description, created_at, updated_at
FROM fee_structures WHERE session = $1 AND term = $2 ORDER BY created_at ASC`
	var fees []models.FeeStructure
	if err := r.db.SelectContext(ctx, &fees, query, period.Session, period.Term); err != nil {
		return nil, fmt.Errorf("list fee structures: %w", err)
	}
	return fees, nil
}

// CreatePayment records a payment.
func (r *FinanceRepository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.PaidAt.IsZero() {
		payment.PaidAt = time.Now().UTC()
	}
	const query = `INSERT INTO payments (id, student_id, session, term, amount, method, reference, paid_at, recorded_by)
VALUES (:id, :student_id, :session, :term, :amount, :method, :reference, :paid_at, :recorded_by)`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// FindPayment returns a payment by id.
func (r *FinanceRepository) FindPayment(ctx context.Context, id string) (*models.Payment, error) {
	const query = `SELECT id, student_id, session, term, amount, method, reference, paid_at, recorded_by FROM payments WHERE id = $1`
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find payment: %w", err)
	}
	return &payment, nil
}

// ListPayments returns a student's payments for a period, newest first.
func (r *FinanceRepository) ListPayments(ctx context.Context, studentID string, period models.AcademicPeriod) ([]models.Payment, error) {
	const query = `SELECT id, student_id, session, term, amount, method, reference, paid_at, recorded_by
FROM payments WHERE student_id = $1 AND session = $2 AND term = $3 ORDER BY paid_at DESC`
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, studentID, period.Session, period.Term); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

// DeletePayment removes a payment record.
func (r *FinanceRepository) DeletePayment(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SumPaid totals a student's payments for a period.
func (r *FinanceRepository) SumPaid(ctx context.Context, studentID string, period models.AcademicPeriod) (float64, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE student_id = $1 AND session = $2 AND term = $3`
	var total float64
	if err := r.db.GetContext(ctx, &total, query, studentID, period.Session, period.Term); err != nil {
		return 0, fmt.Errorf("sum payments: %w", err)
	}
	return total, nil
}

// SumPaidByClass totals payments for every student currently in the class.
func (r *FinanceRepository) SumPaidByClass(ctx context.Context, classID string, period models.AcademicPeriod) ([]models.StudentPaymentTotal, error) {
	const query = `SELECT s.id AS student_id, COALESCE(SUM(pay.amount), 0) AS paid
FROM students s
LEFT JOIN payments pay ON pay.student_id = s.id AND pay.session = $2 AND pay.term = $3
WHERE s.class_id = $1
GROUP BY s.id`
	var totals []models.StudentPaymentTotal
	if err := r.db.SelectContext(ctx, &totals, query, classID, period.Session, period.Term); err != nil {
		return nil, fmt.Errorf("sum class payments: %w", err)
	}
	return totals, nil
}

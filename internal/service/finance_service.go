package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/aladab-school-api/internal/models"
	appErrors "github.com/noah-isme/aladab-school-api/pkg/errors"
)

type financeRepository interface {
	UpsertFee(ctx context.Context, fee *models.FeeStructure) error
	FindFee(ctx context.Context, classID string, period models.AcademicPeriod) (*models.FeeStructure, error)
	ListFees(ctx context.Context, period models.AcademicPeriod) ([]models.FeeStructure, error)
	CreatePayment(ctx context.Context, payment *models.Payment) error
	FindPayment(ctx context.Context, id string) (*models.Payment, error)
	ListPayments(ctx context.Context, studentID string, period models.AcademicPeriod) ([]models.Payment, error)
	DeletePayment(ctx context.Context, id string) error
	SumPaid(ctx context.Context, studentID string, period models.AcademicPeriod) (float64, error)
	SumPaidByClass(ctx context.Context, classID string, period models.AcademicPeriod) ([]models.StudentPaymentTotal, error)
}

// FeeRequest sets the expected amount of a class for the period.
type FeeRequest struct {
	ClassID     string  `json:"class_id" form:"classId" validate:"required"`
	Amount      float64 `json:"amount" form:"amount" validate:"gte=0"`
	Description *string `json:"description" form:"description" validate:"omitempty,max=255"`
}

// PaymentRequest records one payment.
type PaymentRequest struct {
	StudentID string     `json:"student_id" form:"studentId" validate:"required"`
	Amount    float64    `json:"amount" form:"amount" validate:"gt=0"`
	Method    string     `json:"method" form:"method" validate:"required,oneof=cash transfer pos cheque"`
	Reference *string    `json:"reference" form:"reference" validate:"omitempty,max=120"`
	PaidAt    *time.Time `json:"paid_at" form:"paidAt" time_format:"2006-01-02"`
}

// ClassStatement lists the fee position of every student in a class.
type ClassStatement struct {
	ClassID       string                 `json:"class_id"`
	Period        models.AcademicPeriod  `json:"period"`
	Expected      float64                `json:"expected"`
	Lines         []models.StatementLine `json:"lines"`
	TotalPaid     float64                `json:"total_paid"`
	TotalBalance  float64                `json:"total_balance"`
	ClearedCount  int                    `json:"cleared_count"`
	FeeConfigured bool                   `json:"fee_configured"`
}

// ComputeBalance derives the outstanding amount. Overpayment gives a negative balance.
func ComputeBalance(expected, paid float64) (balance float64, cleared bool) {
	balance = math.Round((expected-paid)*100) / 100
	return balance, balance <= 0
}

// FinanceService manages fee structures and payments.
type FinanceService struct {
	repo      financeRepository
	classes   classFinder
	students  studentFinder
	roster    rosterLister
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFinanceService constructs FinanceService.
func NewFinanceService(repo financeRepository, classes classFinder, students studentFinder, roster rosterLister, validate *validator.Validate, logger *zap.Logger) *FinanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FinanceService{repo: repo, classes: classes, students: students, roster: roster, validator: validate, logger: logger}
}

// UpsertFee creates or replaces the fee of a class for the period.
func (s *FinanceService) UpsertFee(ctx context.Context, req FeeRequest, period models.AcademicPeriod) (*models.FeeStructure, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid fee payload")
	}
	if err := validatePeriod(period); err != nil {
		return nil, err
	}
	if err := ensureClassExists(ctx, s.classes, req.ClassID); err != nil {
		return nil, err
	}
	fee := &models.FeeStructure{
		ClassID:     req.ClassID,
		Session:     period.Session,
		Term:        period.Term,
		Amount:      req.Amount,
		Description: trimmedOrNil(req.Description),
	}
	if err := s.repo.UpsertFee(ctx, fee); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save fee structure")
	}
	return fee, nil
}

// ListFees returns the fee structures of a period.
func (s *FinanceService) ListFees(ctx context.Context, period models.AcademicPeriod) ([]models.FeeStructure, error) {
	if err := validatePeriod(period); err != nil {
		return nil, err
	}
	fees, err := s.repo.ListFees(ctx, period)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list fee structures")
	}
	if fees == nil {
		fees = []models.FeeStructure{}
	}
	return fees, nil
}

// RecordPayment stores a payment against the period.
func (s *FinanceService) RecordPayment(ctx context.Context, req PaymentRequest, period models.AcademicPeriod, recorderID string) (*models.Payment, error) {
	req.Method = strings.ToLower(strings.TrimSpace(req.Method))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid payment payload")
	}
	if err := validatePeriod(period); err != nil {
		return nil, err
	}
	if _, err := s.loadStudent(ctx, req.StudentID); err != nil {
		return nil, err
	}
	payment := &models.Payment{
		StudentID: req.StudentID,
		Session:   period.Session,
		Term:      period.Term,
		Amount:    req.Amount,
		Method:    req.Method,
		Reference: trimmedOrNil(req.Reference),
	}
	if req.PaidAt != nil {
		payment.PaidAt = req.PaidAt.UTC()
	}
	if recorderID != "" {
		payment.RecordedBy = &recorderID
	}
	if err := s.repo.CreatePayment(ctx, payment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}
	s.logger.Info("payment recorded",
		zap.String("payment_id", payment.ID),
		zap.String("student_id", payment.StudentID),
		zap.Float64("amount", payment.Amount),
	)
	return payment, nil
}

// ListPayments returns a student's payments for the period.
func (s *FinanceService) ListPayments(ctx context.Context, studentID string, period models.AcademicPeriod) ([]models.Payment, error) {
	if err := validatePeriod(period); err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPayments(ctx, studentID, period)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	return payments, nil
}

// DeletePayment removes a payment.
func (s *FinanceService) DeletePayment(ctx context.Context, id string) error {
	if err := s.repo.DeletePayment(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete payment")
	}
	return nil
}

// StudentBalance computes expected minus paid for the student's current class.
func (s *FinanceService) StudentBalance(ctx context.Context, studentID string, period models.AcademicPeriod) (*models.Balance, error) {
	if err := validatePeriod(period); err != nil {
		return nil, err
	}
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	var expected float64
	if student.ClassID != nil {
		if expected, _, err = s.expectedFee(ctx, *student.ClassID, period); err != nil {
			return nil, err
		}
	}
	paid, err := s.repo.SumPaid(ctx, studentID, period)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to total payments")
	}
	balance, cleared := ComputeBalance(expected, paid)
	return &models.Balance{
		StudentID: studentID,
		Session:   period.Session,
		Term:      period.Term,
		Expected:  expected,
		Paid:      paid,
		Balance:   balance,
		Cleared:   cleared,
	}, nil
}

// ClassStatement lists expected, paid and balance for every student of a class.
func (s *FinanceService) ClassStatement(ctx context.Context, classID string, period models.AcademicPeriod) (*ClassStatement, error) {
	if err := validatePeriod(period); err != nil {
		return nil, err
	}
	if err := ensureClassExists(ctx, s.classes, classID); err != nil {
		return nil, err
	}
	expected, configured, err := s.expectedFee(ctx, classID, period)
	if err != nil {
		return nil, err
	}
	roster, err := s.roster.Roster(ctx, classID, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class roster")
	}
	totals, err := s.repo.SumPaidByClass(ctx, classID, period)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to total class payments")
	}
	paidBy := make(map[string]float64, len(totals))
	for _, total := range totals {
		paidBy[total.StudentID] = total.Paid
	}

	statement := &ClassStatement{
		ClassID:       classID,
		Period:        period,
		Expected:      expected,
		Lines:         make([]models.StatementLine, 0, len(roster)),
		FeeConfigured: configured,
	}
	for _, student := range roster {
		paid := paidBy[student.StudentID]
		balance, cleared := ComputeBalance(expected, paid)
		statement.Lines = append(statement.Lines, models.StatementLine{
			StudentID:       student.StudentID,
			AdmissionNumber: student.AdmissionNumber,
			FullName:        student.FullName,
			Expected:        expected,
			Paid:            paid,
			Balance:         balance,
			Cleared:         cleared,
		})
		statement.TotalPaid += paid
		statement.TotalBalance += balance
		if cleared {
			statement.ClearedCount++
		}
	}
	return statement, nil
}

func (s *FinanceService) expectedFee(ctx context.Context, classID string, period models.AcademicPeriod) (float64, bool, error) {
	fee, err := s.repo.FindFee(ctx, classID, period)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee structure")
	}
	return fee.Amount, true, nil
}

func (s *FinanceService) loadStudent(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

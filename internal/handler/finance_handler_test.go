package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aladab-school-api/internal/models"
	"github.com/noah-isme/aladab-school-api/internal/service"
)

type financeServiceMock struct {
	period     models.AcademicPeriod
	payment    service.PaymentRequest
	recorderID string
}

func (m *financeServiceMock) UpsertFee(ctx context.Context, req service.FeeRequest, period models.AcademicPeriod) (*models.FeeStructure, error) {
	m.period = period
	return &models.FeeStructure{ClassID: req.ClassID, Amount: req.Amount}, nil
}

func (m *financeServiceMock) ListFees(ctx context.Context, period models.AcademicPeriod) ([]models.FeeStructure, error) {
	m.period = period
	return []models.FeeStructure{}, nil
}

func (m *financeServiceMock) RecordPayment(ctx context.Context, req service.PaymentRequest, period models.AcademicPeriod, recorderID string) (*models.Payment, error) {
	m.period = period
	m.payment = req
	m.recorderID = recorderID
	return &models.Payment{ID: "pay-1", StudentID: req.StudentID, Amount: req.Amount}, nil
}

func (m *financeServiceMock) ListPayments(ctx context.Context, studentID string, period models.AcademicPeriod) ([]models.Payment, error) {
	return []models.Payment{}, nil
}

func (m *financeServiceMock) DeletePayment(ctx context.Context, id string) error {
	return nil
}

func (m *financeServiceMock) StudentBalance(ctx context.Context, studentID string, period models.AcademicPeriod) (*models.Balance, error) {
	m.period = period
	return &models.Balance{StudentID: studentID, Expected: 50000, Paid: 20000, Balance: 30000}, nil
}

func (m *financeServiceMock) ClassStatement(ctx context.Context, classID string, period models.AcademicPeriod) (*service.ClassStatement, error) {
	return &service.ClassStatement{ClassID: classID, Period: period}, nil
}

func TestFinanceHandlerRecordPaymentForm(t *testing.T) {
	mock := &financeServiceMock{}
	h := NewFinanceHandler(mock)
	form := url.Values{"studentId": {"st-1"}, "amount": {"15000"}, "method": {"cash"}}
	c, w := newGinContext(http.MethodPost, "/finance/payments", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	withClaims(c, adminClaims)
	withPeriod(c, currentPeriod)

	h.RecordPayment(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 15000.0, mock.payment.Amount)
	assert.Equal(t, "admin-1", mock.recorderID)
	assert.Equal(t, currentPeriod, mock.period)
}

func TestFinanceHandlerBalance(t *testing.T) {
	mock := &financeServiceMock{}
	h := NewFinanceHandler(mock)
	c, w := newGinContext(http.MethodGet, "/students/st-1/balance", nil, "")
	c.Params = gin.Params{{Key: "id", Value: "st-1"}}
	withPeriod(c, currentPeriod)

	h.StudentBalance(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decodeEnvelope(t, w).Data), `"balance":30000`)
}

func TestFinanceHandlerRequiresPeriod(t *testing.T) {
	h := NewFinanceHandler(&financeServiceMock{})
	c, w := newGinContext(http.MethodGet, "/finance/fees", nil, "")

	h.ListFees(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

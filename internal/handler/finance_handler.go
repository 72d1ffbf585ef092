package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aladab-school-api/internal/models"
	"github.com/noah-isme/aladab-school-api/internal/service"
	appErrors "github.com/noah-isme/aladab-school-api/pkg/errors"
	"github.com/noah-isme/aladab-school-api/pkg/response"
)

type financeService interface {
	UpsertFee(ctx context.Context, req service.FeeRequest, period models.AcademicPeriod) (*models.FeeStructure, error)
	ListFees(ctx context.Context, period models.AcademicPeriod) ([]models.FeeStructure, error)
	RecordPayment(ctx context.Context, req service.PaymentRequest, period models.AcademicPeriod, recorderID string) (*models.Payment, error)
	ListPayments(ctx context.Context, studentID string, period models.AcademicPeriod) ([]models.Payment, error)
	DeletePayment(ctx context.Context, id string) error
	StudentBalance(ctx context.Context, studentID string, period models.AcademicPeriod) (*models.Balance, error)
	ClassStatement(ctx context.Context, classID string, period models.AcademicPeriod) (*service.ClassStatement, error)
}

// FinanceHandler exposes fee structures, payments and balances.
type FinanceHandler struct {
	service financeService
}

// NewFinanceHandler constructs FinanceHandler.
func NewFinanceHandler(svc financeService) *FinanceHandler {
	return &FinanceHandler{service: svc}
}

// UpsertFee godoc
// @Summary Set the fee of a class for the period
// @Tags Finance
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param payload body service.FeeRequest true "Fee"
// @Param session query string false "Academic session override"
// @Param term query string false "Academic term override"
// @Success 200 {object} response.Envelope
// @Router /finance/fees [put]
func (h *FinanceHandler) UpsertFee(c *gin.Context) {
	period, err := periodFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.FeeRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	fee, err := h.service.UpsertFee(c.Request.Context(), req, period)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fee, nil)
}

// ListFees godoc
// @Summary List fee structures of the period
// @Tags Finance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /finance/fees [get]
func (h *FinanceHandler) ListFees(c *gin.Context) {
	period, err := periodFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	fees, err := h.service.ListFees(c.Request.Context(), period)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fees, nil)
}

// RecordPayment godoc
// @Summary Record a payment
// @Tags Finance
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param payload body service.PaymentRequest true "Payment"
// @Success 201 {object} response.Envelope
// @Router /finance/payments [post]
func (h *FinanceHandler) RecordPayment(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	period, err := periodFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.PaymentRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	payment, err := h.service.RecordPayment(c.Request.Context(), req, period, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, payment)
}

// DeletePayment godoc
// @Summary Delete a payment
// @Tags Finance
// @Param id path string true "Payment ID"
// @Success 204
// @Router /finance/payments/{id} [delete]
func (h *FinanceHandler) DeletePayment(c *gin.Context) {
	if err := h.service.DeletePayment(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// StudentPayments godoc
// @Summary List a student's payments for the period
// @Tags Finance
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/payments [get]
func (h *FinanceHandler) StudentPayments(c *gin.Context) {
	period, err := periodFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	payments, err := h.service.ListPayments(c.Request.Context(), c.Param("id"), period)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, nil)
}

// StudentBalance godoc
// @Summary Get a student's fee balance
// @Tags Finance
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/balance [get]
func (h *FinanceHandler) StudentBalance(c *gin.Context) {
	period, err := periodFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	balance, err := h.service.StudentBalance(c.Request.Context(), c.Param("id"), period)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, balance, nil)
}

// ClassStatement godoc
// @Summary Fee statement of every student in a class
// @Tags Finance
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/statement [get]
func (h *FinanceHandler) ClassStatement(c *gin.Context) {
	period, err := periodFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	statement, err := h.service.ClassStatement(c.Request.Context(), c.Param("id"), period)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, statement, nil)
}

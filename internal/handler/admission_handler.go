package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aladab-school-api/internal/models"
	"github.com/noah-isme/aladab-school-api/internal/service"
	appErrors "github.com/noah-isme/aladab-school-api/pkg/errors"
	"github.com/noah-isme/aladab-school-api/pkg/response"
)

type admissionService interface {
	Submit(ctx context.Context, req service.SubmitApplicationRequest) (*models.AdmissionApplication, error)
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.AdmissionApplication, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.AdmissionApplication, error)
	Approve(ctx context.Context, id, reviewerID string) (*service.ApprovalResult, error)
	Reject(ctx context.Context, id string, req service.RejectApplicationRequest, reviewerID string) (*models.AdmissionApplication, error)
}

// AdmissionHandler exposes the admission application flow.
type AdmissionHandler struct {
	service admissionService
}

// NewAdmissionHandler constructs AdmissionHandler.
func NewAdmissionHandler(svc admissionService) *AdmissionHandler {
	return &AdmissionHandler{service: svc}
}

// Submit godoc
// @Summary Submit an admission application
// @Tags Admissions
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param payload body service.SubmitApplicationRequest true "Application"
// @Success 201 {object} response.Envelope
// @Router /admissions [post]
func (h *AdmissionHandler) Submit(c *gin.Context) {
	var req service.SubmitApplicationRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	application, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, application)
}

// List godoc
// @Summary List admission applications
// @Tags Admissions
// @Produce json
// @Param status query string false "pending, approved or rejected"
// @Param search query string false "Search by name or email"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admissions [get]
func (h *AdmissionHandler) List(c *gin.Context) {
	var filter models.ApplicationFilter
	filter.Status = models.ApplicationStatus(c.Query("status"))
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Page, filter.PageSize = pageParams(c)

	applications, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, applications, pagination)
}

// Get godoc
// @Summary Get admission application
// @Tags Admissions
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /admissions/{id} [get]
func (h *AdmissionHandler) Get(c *gin.Context) {
	application, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, application, nil)
}

// Approve godoc
// @Summary Approve an application
// @Description Creates the login, profile and student record; completed steps are undone on failure
// @Tags Admissions
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /admissions/{id}/approve [post]
func (h *AdmissionHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.service.Approve(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Reject godoc
// @Summary Reject an application
// @Tags Admissions
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body service.RejectApplicationRequest false "Review note"
// @Success 200 {object} response.Envelope
// @Router /admissions/{id}/reject [post]
func (h *AdmissionHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.RejectApplicationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBind(&req); err != nil {
			response.Error(c, bindError(err))
			return
		}
	}
	application, err := h.service.Reject(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, application, nil)
}

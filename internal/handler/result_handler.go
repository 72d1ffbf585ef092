package handler

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aladab-school-api/internal/models"
	"github.com/noah-isme/aladab-school-api/internal/service"
	appErrors "github.com/noah-isme/aladab-school-api/pkg/errors"
	"github.com/noah-isme/aladab-school-api/pkg/response"
)

type resultService interface {
	Broadsheet(ctx context.Context, classID, subjectID string, period models.AcademicPeriod) (*service.Broadsheet, error)
	Preview(ctx context.Context, classID, subjectID string, period models.AcademicPeriod, form url.Values) (*service.Broadsheet, error)
	SaveBroadsheet(ctx context.Context, classID, subjectID string, period models.AcademicPeriod, form url.Values, actorID string) (*service.SaveBroadsheetResult, error)
	ReportCard(ctx context.Context, studentID string, period models.AcademicPeriod) (*service.ReportCard, error)
}

// ResultHandler exposes the score broadsheet and report cards.
type ResultHandler struct {
	service resultService
}

// NewResultHandler constructs ResultHandler.
func NewResultHandler(svc resultService) *ResultHandler {
	return &ResultHandler{service: svc}
}

// Broadsheet godoc
// @Summary Get the broadsheet of a class and subject
// @Tags Results
// @Produce json
// @Param classId path string true "Class ID"
// @Param subjectId path string true "Subject ID"
// @Param session query string false "Academic session override"
// @Param term query string false "Academic term override"
// @Success 200 {object} response.Envelope
// @Router /results/broadsheet/{classId}/{subjectId} [get]
func (h *ResultHandler) Broadsheet(c *gin.Context) {
	period, err := periodFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	sheet, err := h.service.Broadsheet(c.Request.Context(), c.Param("classId"), c.Param("subjectId"), period)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sheet, nil)
}

// Preview godoc
// @Summary Recompute a broadsheet from submitted scores without saving
// @Tags Results
// @Accept x-www-form-urlencoded
// @Produce json
// @Param classId path string true "Class ID"
// @Param subjectId path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Router /results/broadsheet/{classId}/{subjectId}/preview [post]
func (h *ResultHandler) Preview(c *gin.Context) {
	period, err := periodFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := c.Request.ParseForm(); err != nil {
		response.Error(c, bindError(err))
		return
	}
	sheet, err := h.service.Preview(c.Request.Context(), c.Param("classId"), c.Param("subjectId"), period, c.Request.PostForm)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sheet, nil)
}

// Save godoc
// @Summary Save submitted broadsheet scores
// @Description Reads student_<id>_ca and student_<id>_exam fields; invalid rows are skipped
// @Tags Results
// @Accept x-www-form-urlencoded
// @Produce json
// @Param classId path string true "Class ID"
// @Param subjectId path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Router /results/broadsheet/{classId}/{subjectId} [post]
func (h *ResultHandler) Save(c *gin.Context) {
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
	if err := c.Request.ParseForm(); err != nil {
		response.Error(c, bindError(err))
		return
	}
	result, err := h.service.SaveBroadsheet(c.Request.Context(), c.Param("classId"), c.Param("subjectId"), period, c.Request.PostForm, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ReportCard godoc
// @Summary Student report card
// @Tags Results
// @Produce json
// @Param id path string true "Student ID"
// @Param session query string false "Academic session override"
// @Param term query string false "Academic term override"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/report-card [get]
func (h *ResultHandler) ReportCard(c *gin.Context) {
	period, err := periodFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	card, err := h.service.ReportCard(c.Request.Context(), c.Param("id"), period)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, card, nil)
}

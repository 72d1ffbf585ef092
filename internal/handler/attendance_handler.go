package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aladab-school-api/internal/service"
	appErrors "github.com/noah-isme/aladab-school-api/pkg/errors"
	"github.com/noah-isme/aladab-school-api/pkg/response"
)

// AttendanceHandler exposes daily class registers.
type AttendanceHandler struct {
	service *service.AttendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(svc *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// Mark godoc
// @Summary Record the register of a class for one day
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body service.MarkAttendanceRequest true "Register"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/attendance [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid payload"))
		return
	}
	register, err := h.service.Mark(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, register, nil)
}

// Register godoc
// @Summary Get the register of a class
// @Tags Attendance
// @Produce json
// @Param id path string true "Class ID"
// @Param date query string false "YYYY-MM-DD, defaults to today"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/attendance [get]
func (h *AttendanceHandler) Register(c *gin.Context) {
	date := c.DefaultQuery("date", time.Now().Format("2006-01-02"))
	register, err := h.service.ClassRegister(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, register, nil)
}

// Summary godoc
// @Summary Summarise a student's attendance
// @Tags Attendance
// @Produce json
// @Param id path string true "Student ID"
// @Param from query string true "YYYY-MM-DD"
// @Param to query string true "YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/attendance [get]
func (h *AttendanceHandler) Summary(c *gin.Context) {
	summary, err := h.service.StudentSummary(c.Request.Context(), c.Param("id"), c.Query("from"), c.Query("to"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

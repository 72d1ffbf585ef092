package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aladab-school-api/internal/dto"
	"github.com/noah-isme/aladab-school-api/internal/service"
	appErrors "github.com/noah-isme/aladab-school-api/pkg/errors"
	"github.com/noah-isme/aladab-school-api/pkg/response"
)

// TimetableHandler exposes the class timetable grid.
type TimetableHandler struct {
	service *service.TimetableService
}

// NewTimetableHandler constructs TimetableHandler.
func NewTimetableHandler(svc *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// Get godoc
// @Summary Get class timetable grid
// @Tags Timetable
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/timetable [get]
func (h *TimetableHandler) Get(c *gin.Context) {
	grid, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grid, nil)
}

// Edit godoc
// @Summary Apply grid edits
// @Description Edits run in order; the grid is stored only when save is true and every edit succeeds
// @Tags Timetable
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.TimetableEditRequest true "Edits"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/timetable [patch]
func (h *TimetableHandler) Edit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.TimetableEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid payload"))
		return
	}
	grid, err := h.service.ApplyEdits(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grid, nil)
}

// Save godoc
// @Summary Replace the stored timetable with a full grid
// @Tags Timetable
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body service.Grid true "Grid"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/timetable [put]
func (h *TimetableHandler) Save(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var grid service.Grid
	if err := c.ShouldBindJSON(&grid); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid payload"))
		return
	}
	saved, err := h.service.Save(c.Request.Context(), c.Param("id"), &grid, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, saved, nil)
}

// Regenerate godoc
// @Summary Replace the timetable with the default grid
// @Description Irreversible; requires confirm=true
// @Tags Timetable
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.RegenerateTimetableRequest true "Confirmation"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/timetable/regenerate [post]
func (h *TimetableHandler) Regenerate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.RegenerateTimetableRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	grid, err := h.service.Regenerate(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grid, nil)
}

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

type classService interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.ClassDetail, error)
	Create(ctx context.Context, req service.ClassRequest) (*models.Class, error)
	Update(ctx context.Context, id string, req service.ClassRequest) (*models.Class, error)
	Delete(ctx context.Context, id string) error
	AssignTeachers(ctx context.Context, classID string, req service.AssignTeachersRequest) ([]models.ClassTeacher, error)
}

type rosterSource interface {
	Roster(ctx context.Context, classID string) ([]models.RosterEntry, error)
}

// ClassHandler serves classes, their teacher assignments and rosters.
type ClassHandler struct {
	classes  classService
	students rosterSource
}

func NewClassHandler(classes classService, students rosterSource) *ClassHandler {
	return &ClassHandler{classes: classes, students: students}
}

func classFilter(c *gin.Context) (models.ClassFilter, error) {
	filter := models.ClassFilter{
		Category:  models.ClassCategory(strings.TrimSpace(c.Query("category"))),
		Search:    strings.TrimSpace(c.Query("search")),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	switch filter.Category {
	case "", models.ClassCategoryJunior, models.ClassCategorySenior:
	default:
		return filter, appErrors.Clone(appErrors.ErrValidation, "category must be Junior or Senior")
	}
	filter.Page, filter.PageSize = pageParams(c)
	return filter, nil
}

// List godoc
// @Summary List classes
// @Tags Classes
// @Produce json
// @Param category query string false "Junior or Senior"
// @Param search query string false "Search keyword"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *ClassHandler) List(c *gin.Context) {
	filter, err := classFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	classes, page, err := h.classes.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, page)
}

// Get godoc
// @Summary Get class detail
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id} [get]
func (h *ClassHandler) Get(c *gin.Context) {
	detail, err := h.classes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Create class
// @Tags Classes
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param payload body service.ClassRequest true "Class payload"
// @Success 201 {object} response.Envelope
// @Router /classes [post]
func (h *ClassHandler) Create(c *gin.Context) {
	var req service.ClassRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	created, err := h.classes.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Update godoc
// @Summary Update class
// @Tags Classes
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body service.ClassRequest true "Class payload"
// @Success 200 {object} response.Envelope
// @Router /classes/{id} [put]
func (h *ClassHandler) Update(c *gin.Context) {
	var req service.ClassRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	updated, err := h.classes.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Delete godoc
// @Summary Delete class
// @Description Refused with 412 while students are still enrolled.
// @Tags Classes
// @Param id path string true "Class ID"
// @Success 204
// @Failure 412 {object} response.Envelope
// @Router /classes/{id} [delete]
func (h *ClassHandler) Delete(c *gin.Context) {
	if err := h.classes.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AssignTeachers godoc
// @Summary Replace the teachers assigned to a class
// @Tags Classes
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body service.AssignTeachersRequest true "Teacher IDs"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/teachers [put]
func (h *ClassHandler) AssignTeachers(c *gin.Context) {
	var req service.AssignTeachersRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	teachers, err := h.classes.AssignTeachers(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teachers, nil)
}

// Roster godoc
// @Summary List the students of a class
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/students [get]
func (h *ClassHandler) Roster(c *gin.Context) {
	ctx := c.Request.Context()
	detail, err := h.classes.Get(ctx, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	roster, err := h.students.Roster(ctx, detail.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, nil, map[string]interface{}{
		"class": detail.DisplayName(),
		"count": len(roster),
	})
}

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

type subjectService interface {
	ListGrouped(ctx context.Context, filter models.SubjectFilter) ([]models.SubjectGroup, error)
	Get(ctx context.Context, id string) (*models.Subject, error)
	Create(ctx context.Context, req service.SubjectRequest) (*models.Subject, error)
	Update(ctx context.Context, id string, req service.SubjectRequest) (*models.Subject, error)
	DeleteVariant(ctx context.Context, id string) error
	DeleteGroup(ctx context.Context, key models.SubjectGroupKey) (int, error)
}

// SubjectHandler handles subject endpoints.
type SubjectHandler struct {
	service subjectService
}

// NewSubjectHandler constructs a subject handler.
func NewSubjectHandler(svc subjectService) *SubjectHandler {
	return &SubjectHandler{service: svc}
}

// List godoc
// @Summary List subjects grouped by name and code
// @Tags Subjects
// @Produce json
// @Param category query string false "All, Junior or Senior"
// @Param department query string false "Department target"
// @Param search query string false "Search keyword"
// @Success 200 {object} response.Envelope
// @Router /subjects [get]
func (h *SubjectHandler) List(c *gin.Context) {
	var filter models.SubjectFilter
	filter.Category = models.SubjectCategory(c.Query("category"))
	filter.Department = models.Department(c.Query("department"))
	filter.Search = strings.TrimSpace(c.Query("search"))

	groups, err := h.service.ListGrouped(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, groups, nil)
}

// Get godoc
// @Summary Get subject variant by id
// @Tags Subjects
// @Produce json
// @Param id path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Router /subjects/{id} [get]
func (h *SubjectHandler) Get(c *gin.Context) {
	subject, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subject, nil)
}

// Create godoc
// @Summary Create subject variant
// @Tags Subjects
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param payload body service.SubjectRequest true "Subject payload"
// @Success 201 {object} response.Envelope
// @Router /subjects [post]
func (h *SubjectHandler) Create(c *gin.Context) {
	var req service.SubjectRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	subject, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, subject)
}

// Update godoc
// @Summary Update subject variant
// @Tags Subjects
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param id path string true "Subject ID"
// @Param payload body service.SubjectRequest true "Subject payload"
// @Success 200 {object} response.Envelope
// @Router /subjects/{id} [put]
func (h *SubjectHandler) Update(c *gin.Context) {
	var req service.SubjectRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	subject, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subject, nil)
}

// DeleteVariant godoc
// @Summary Delete one subject variant
// @Tags Subjects
// @Param id path string true "Subject ID"
// @Success 204
// @Router /subjects/{id} [delete]
func (h *SubjectHandler) DeleteVariant(c *gin.Context) {
	if err := h.service.DeleteVariant(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DeleteGroup godoc
// @Summary Delete every variant sharing a name and code
// @Tags Subjects
// @Produce json
// @Param name query string true "Subject name"
// @Param code query string true "Subject code"
// @Success 200 {object} response.Envelope
// @Router /subjects/groups [delete]
func (h *SubjectHandler) DeleteGroup(c *gin.Context) {
	name, code := c.Query("name"), c.Query("code")
	if strings.TrimSpace(name) == "" || strings.TrimSpace(code) == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "name and code are required"))
		return
	}
	deleted, err := h.service.DeleteGroup(c.Request.Context(), models.NewSubjectGroupKey(name, code))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"deleted": deleted}, nil)
}

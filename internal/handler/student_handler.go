package handler

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aladab-school-api/internal/models"
	"github.com/noah-isme/aladab-school-api/internal/service"
	appErrors "github.com/noah-isme/aladab-school-api/pkg/errors"
	"github.com/noah-isme/aladab-school-api/pkg/response"
)

// Uploads above 2 MiB are refused before the CSV is parsed.
const maxImportSize = 2 << 20

type studentService interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.StudentDetail, error)
	Create(ctx context.Context, req service.CreateStudentRequest) (*service.Enrollment, error)
	Update(ctx context.Context, id string, req service.UpdateStudentRequest) (*models.StudentDetail, error)
	ReassignClass(ctx context.Context, id, classID string) error
	Delete(ctx context.Context, id string) error
	Import(ctx context.Context, r io.Reader, classID string) (*service.ImportResult, error)
}

// StudentHandler serves student records and the bulk CSV import.
type StudentHandler struct {
	students studentService
}

func NewStudentHandler(students studentService) *StudentHandler {
	return &StudentHandler{students: students}
}

func studentFilter(c *gin.Context) (models.StudentFilter, error) {
	filter := models.StudentFilter{
		Search:     strings.TrimSpace(c.Query("search")),
		ClassID:    strings.TrimSpace(c.Query("classId")),
		Department: models.Department(strings.TrimSpace(c.Query("department"))),
		SortBy:     c.Query("sort"),
		SortOrder:  c.Query("order"),
	}
	if filter.Department != "" && !filter.Department.Valid() {
		return filter, appErrors.Clone(appErrors.ErrValidation, "unknown department")
	}
	filter.Page, filter.PageSize = pageParams(c)
	return filter, nil
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param search query string false "Search by name or admission number"
// @Param classId query string false "Filter by class"
// @Param department query string false "Filter by department"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	filter, err := studentFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	students, page, err := h.students.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, page)
}

// Get godoc
// @Summary Get student detail
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Create godoc
// @Summary Enroll a student
// @Description Creates the login account, profile and student row in one workflow
// @Tags Students
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param payload body service.CreateStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var req service.CreateStudentRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	enrollment, err := h.students.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Update godoc
// @Summary Update student
// @Tags Students
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.UpdateStudentRequest true "Student payload"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	var req service.UpdateStudentRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	student, err := h.students.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Reassign godoc
// @Summary Move a student to another class
// @Tags Students
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body object true "classId, empty to unassign"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/class [put]
func (h *StudentHandler) Reassign(c *gin.Context) {
	var payload struct {
		ClassID string `json:"class_id" form:"classId"`
	}
	if err := c.ShouldBind(&payload); err != nil {
		response.Error(c, bindError(err))
		return
	}
	ctx, id := c.Request.Context(), c.Param("id")
	if err := h.students.ReassignClass(ctx, id, strings.TrimSpace(payload.ClassID)); err != nil {
		response.Error(c, err)
		return
	}
	student, err := h.students.Get(ctx, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Import godoc
// @Summary Bulk import students from CSV
// @Description Each row is enrolled independently; failures are reported per row
// @Tags Students
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV file"
// @Param classId formData string false "Class for every imported row"
// @Success 200 {object} response.Envelope
// @Router /students/import [post]
func (h *StudentHandler) Import(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Invalid(err, "csv file is required"))
		return
	}
	switch {
	case header.Size > maxImportSize:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "csv file is too large"))
		return
	case !strings.EqualFold(filepath.Ext(header.Filename), ".csv"):
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "only .csv files can be imported"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer file.Close()

	result, err := h.students.Import(c.Request.Context(), file, strings.TrimSpace(c.PostForm("classId")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Delete godoc
// @Summary Delete student
// @Description Removes the login account; profile and student rows cascade
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 204
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	if err := h.students.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aladab-school-api/internal/models"
	"github.com/noah-isme/aladab-school-api/internal/service"
	"github.com/noah-isme/aladab-school-api/pkg/response"
)

// StaffHandler manages teacher and administrator accounts.
type StaffHandler struct {
	service *service.StaffService
}

// NewStaffHandler constructs StaffHandler.
func NewStaffHandler(svc *service.StaffService) *StaffHandler {
	return &StaffHandler{service: svc}
}

// List godoc
// @Summary List staff
// @Tags Staff
// @Produce json
// @Param role query string false "admin, principal or teacher"
// @Param search query string false "Search term"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /staff [get]
func (h *StaffHandler) List(c *gin.Context) {
	var filter models.ProfileFilter
	filter.Role = models.UserRole(c.Query("role"))
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Page, filter.PageSize = pageParams(c)

	staff, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, staff, pagination)
}

// Get godoc
// @Summary Get staff member
// @Tags Staff
// @Produce json
// @Param id path string true "Profile ID"
// @Success 200 {object} response.Envelope
// @Router /staff/{id} [get]
func (h *StaffHandler) Get(c *gin.Context) {
	member, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, member, nil)
}

// Create godoc
// @Summary Create staff account
// @Description Creates the login account and profile; a password is generated when omitted
// @Tags Staff
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param payload body service.CreateStaffRequest true "Staff payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /staff [post]
func (h *StaffHandler) Create(c *gin.Context) {
	var req service.CreateStaffRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	account, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, account)
}

// Update godoc
// @Summary Update staff member
// @Tags Staff
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param id path string true "Profile ID"
// @Param payload body service.AdminUpdateProfileRequest true "Profile payload"
// @Success 200 {object} response.Envelope
// @Router /staff/{id} [put]
func (h *StaffHandler) Update(c *gin.Context) {
	var req service.AdminUpdateProfileRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	member, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, member, nil)
}

// Delete godoc
// @Summary Delete staff member
// @Tags Staff
// @Param id path string true "Profile ID"
// @Success 204
// @Router /staff/{id} [delete]
func (h *StaffHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

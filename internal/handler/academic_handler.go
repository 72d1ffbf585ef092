package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aladab-school-api/internal/models"
	appErrors "github.com/noah-isme/aladab-school-api/pkg/errors"
	"github.com/noah-isme/aladab-school-api/pkg/response"
)

type academicService interface {
	Current(ctx context.Context) (models.AcademicPeriod, error)
	Update(ctx context.Context, period models.AcademicPeriod, actorID string) (models.AcademicPeriod, error)
}

// AcademicHandler exposes the current academic period.
type AcademicHandler struct {
	service academicService
}

// NewAcademicHandler constructs AcademicHandler.
func NewAcademicHandler(svc academicService) *AcademicHandler {
	return &AcademicHandler{service: svc}
}

// Current godoc
// @Summary Get the current session and term
// @Tags Academic
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /academic/period [get]
func (h *AcademicHandler) Current(c *gin.Context) {
	period, err := h.service.Current(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, period, nil)
}

// Update godoc
// @Summary Switch the current session and term
// @Tags Academic
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param payload body models.AcademicPeriod true "Period"
// @Success 200 {object} response.Envelope
// @Router /academic/period [put]
func (h *AcademicHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.AcademicPeriod
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	period, err := h.service.Update(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, period, nil)
}

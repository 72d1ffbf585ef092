package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aladab-school-api/internal/middleware"
	"github.com/noah-isme/aladab-school-api/internal/models"
	appErrors "github.com/noah-isme/aladab-school-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// periodFromContext returns the period resolved by the academic period middleware.
func periodFromContext(c *gin.Context) (models.AcademicPeriod, error) {
	period, ok := middleware.PeriodFromContext(c)
	if !ok {
		return models.AcademicPeriod{}, appErrors.Clone(appErrors.ErrValidation, "session and term are required")
	}
	return period, nil
}

func pageParams(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		page = 1
	}
	size, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		size = 20
	}
	return page, size
}

func bindError(err error) error {
	return appErrors.Invalid(err, "invalid payload")
}

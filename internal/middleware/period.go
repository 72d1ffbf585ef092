package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aladab-school-api/internal/models"
)

const (
	// ContextPeriodKey is the gin context key storing the resolved academic period.
	ContextPeriodKey = "academicPeriod"

	HeaderAcademicSession = "X-Academic-Session"
	HeaderAcademicTerm    = "X-Academic-Term"
)

type periodSource interface {
	Current(ctx context.Context) (models.AcademicPeriod, error)
}

// AcademicPeriod resolves the session and term for the request once. Query parameters win over the
// X-Academic-* headers, which win over the stored current period. The stored period is only read when
// the request does not name both values.
func AcademicPeriod(source periodSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		period := models.AcademicPeriod{
			Session: explicitValue(c, "session", HeaderAcademicSession),
			Term:    explicitValue(c, "term", HeaderAcademicTerm),
		}
		if (period.Session == "" || period.Term == "") && source != nil {
			if stored, err := source.Current(c.Request.Context()); err == nil {
				if period.Session == "" {
					period.Session = stored.Session
				}
				if period.Term == "" {
					period.Term = stored.Term
				}
			}
		}
		c.Set(ContextPeriodKey, period)
		c.Next()
	}
}

// PeriodFromContext returns the period resolved by AcademicPeriod.
func PeriodFromContext(c *gin.Context) (models.AcademicPeriod, bool) {
	value, exists := c.Get(ContextPeriodKey)
	if !exists {
		return models.AcademicPeriod{}, false
	}
	period, ok := value.(models.AcademicPeriod)
	if !ok || period.Session == "" || period.Term == "" {
		return models.AcademicPeriod{}, false
	}
	return period, true
}

func explicitValue(c *gin.Context, query, header string) string {
	if value := strings.TrimSpace(c.Query(query)); value != "" {
		return value
	}
	return strings.TrimSpace(c.GetHeader(header))
}

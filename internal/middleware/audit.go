package middleware

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aladab-school-api/internal/models"
	"github.com/noah-isme/aladab-school-api/pkg/middleware/requestid"
)

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// auditTrail is what gets stored in new_values for a request-level entry.
type auditTrail struct {
	RequestID string     `json:"request_id,omitempty"`
	Method    string     `json:"method"`
	Route     string     `json:"route"`
	Query     url.Values `json:"query,omitempty"`
	Status    int        `json:"status"`
	LatencyMS int64      `json:"latency_ms"`
}

// Audit appends an audit entry once the wrapped handler has succeeded.
// Failed requests leave no trace. The resource id is the :id path parameter
// when the route has one; otherwise the query string is kept so group
// deletes can still be traced to what they removed.
func Audit(repo auditRecorder, action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		status := c.Writer.Status()
		if repo == nil || status >= 400 {
			return
		}

		trail := auditTrail{
			RequestID: requestid.Value(c),
			Method:    c.Request.Method,
			Route:     c.FullPath(),
			Status:    status,
			LatencyMS: time.Since(started).Milliseconds(),
		}
		entry := &models.AuditLog{
			Action:    action,
			Resource:  resource,
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		if claims, ok := c.Get(ContextUserKey); ok {
			if user, ok := claims.(*models.JWTClaims); ok && user.UserID != "" {
				entry.UserID = &user.UserID
			}
		}
		if id := c.Param("id"); id != "" {
			entry.ResourceID = &id
		} else if q := c.Request.URL.Query(); len(q) > 0 {
			trail.Query = q
		}
		entry.NewValues, _ = json.Marshal(trail)

		// The response is already written; a lost audit row must not change it.
		_ = repo.CreateAuditLog(c.Request.Context(), entry)
	}
}

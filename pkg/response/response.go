// Package response renders every API reply in the same JSON envelope.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aladab-school-api/internal/models"
	appErrors "github.com/noah-isme/aladab-school-api/pkg/errors"
	"github.com/noah-isme/aladab-school-api/pkg/middleware/requestid"
)

// Envelope is the body of every JSON response. Exactly one of Data and Error is set.
type Envelope struct {
	Data       interface{}            `json:"data,omitempty"`
	Error      *appErrors.Error       `json:"error,omitempty"`
	Pagination *models.Pagination     `json:"pagination,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// JSON writes data with the given status. Listing endpoints pass their
// pagination; extra meta entries are merged in order.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination, meta ...map[string]interface{}) {
	env := Envelope{Data: data, Pagination: pagination}
	for _, m := range meta {
		for k, v := range m {
			if env.Meta == nil {
				env.Meta = make(map[string]interface{}, len(m))
			}
			env.Meta[k] = v
		}
	}
	write(c, status, env)
}

// Created writes data with 201.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data, nil)
}

// Error renders err through its typed mapping; untyped errors become 500.
// The request id is echoed in meta so a client report can be matched to the logs.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	env := Envelope{Error: appErr}
	if id := requestid.Value(c); id != "" {
		env.Meta = map[string]interface{}{"request_id": id}
	}
	write(c, appErr.Status, env)
}

// NoContent writes a bare 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func write(c *gin.Context, status int, env Envelope) {
	// Responses carry per-user school records.
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(status, env)
}

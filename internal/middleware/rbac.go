package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aladab-school-api/internal/models"
	appErrors "github.com/noah-isme/aladab-school-api/pkg/errors"
	"github.com/noah-isme/aladab-school-api/pkg/response"
)

// RequireRoles lets the request through only when the caller holds one of roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	return authorize(roles, "")
}

// RolesOrSelf is RequireRoles that also admits callers whose user id equals the route parameter param.
func RolesOrSelf(param string, roles ...models.UserRole) gin.HandlerFunc {
	return authorize(roles, param)
}

func authorize(roles []models.UserRole, selfParam string) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *gin.Context) {
		value, _ := c.Get(ContextUserKey)
		claims, ok := value.(*models.JWTClaims)
		if !ok || claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowed[claims.Role]; ok {
			c.Next()
			return
		}
		if selfParam != "" && c.Param(selfParam) != "" && c.Param(selfParam) == claims.UserID {
			c.Next()
			return
		}

		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role "+string(claims.Role)+" may not access this resource"))
		c.Abort()
	}
}

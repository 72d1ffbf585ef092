package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/aladab-school-api/internal/models"
	appErrors "github.com/noah-isme/aladab-school-api/pkg/errors"
)

type validatorStub map[string]*models.JWTClaims

func (v validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := v[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Wrap(errors.New("bad signature"), appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
}

func newSecuredRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	tokens := validatorStub{
		"admin-token":   {UserID: "admin-1", Role: models.RoleAdmin},
		"teacher-token": {UserID: "teacher-1", Role: models.RoleTeacher},
	}
	r := gin.New()
	r.Use(JWT(tokens))
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/staff", RequireRoles(models.RoleAdmin, models.RolePrincipal), ok)
	r.GET("/profiles/:id", RolesOrSelf("id", models.RoleAdmin), ok)
	return r
}

func serve(r *gin.Engine, path, authorization string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestJWTRejectsMissingAndMalformedTokens(t *testing.T) {
	r := newSecuredRouter()

	assert.Equal(t, http.StatusUnauthorized, serve(r, "/staff", ""))
	assert.Equal(t, http.StatusUnauthorized, serve(r, "/staff", "admin-token"))
	assert.Equal(t, http.StatusUnauthorized, serve(r, "/staff", "Bearer "))
	assert.Equal(t, http.StatusUnauthorized, serve(r, "/staff", "Bearer forged"))
	assert.Equal(t, http.StatusOK, serve(r, "/staff", "bearer admin-token"))
}

func TestRequireRoles(t *testing.T) {
	r := newSecuredRouter()

	assert.Equal(t, http.StatusOK, serve(r, "/staff", "Bearer admin-token"))
	assert.Equal(t, http.StatusForbidden, serve(r, "/staff", "Bearer teacher-token"))
}

func TestRolesOrSelfAdmitsOwner(t *testing.T) {
	r := newSecuredRouter()

	assert.Equal(t, http.StatusOK, serve(r, "/profiles/teacher-1", "Bearer teacher-token"))
	assert.Equal(t, http.StatusForbidden, serve(r, "/profiles/someone-else", "Bearer teacher-token"))
	assert.Equal(t, http.StatusOK, serve(r, "/profiles/someone-else", "Bearer admin-token"))
}

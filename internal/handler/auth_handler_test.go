package handler

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aladab-school-api/internal/models"
	appErrors "github.com/noah-isme/aladab-school-api/pkg/errors"
)

type authServiceMock struct {
	login        models.LoginRequest
	logoutToken  string
	logoutUserID string
	loginErr     error
}

func (m *authServiceMock) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	m.login = req
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return &models.LoginResponse{TokenPair: models.TokenPair{AccessToken: "access", RefreshToken: "refresh"}, User: models.UserInfo{ID: "u1", Role: models.RoleTeacher}}, nil
}

func (m *authServiceMock) RefreshToken(ctx context.Context, req models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	return &models.RefreshTokenResponse{AccessToken: "access-2", RefreshToken: "refresh-2"}, nil
}

func (m *authServiceMock) Logout(ctx context.Context, refreshToken string, userID string, meta models.LoginRequest) error {
	m.logoutToken = refreshToken
	m.logoutUserID = userID
	return nil
}

func (m *authServiceMock) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error {
	return nil
}

func TestAuthHandlerLoginPassesClientMeta(t *testing.T) {
	mock := &authServiceMock{}
	h := NewAuthHandler(mock)
	c, w := newGinContext(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"teacher@aladab.com","password":"secret"}`), "application/json")
	c.Request.Header.Set("User-Agent", "register-app")

	h.Login(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "teacher@aladab.com", mock.login.Email)
	assert.Equal(t, "register-app", mock.login.UserAgent)
	assert.Contains(t, string(decodeEnvelope(t, w).Data), `"access_token":"access"`)
}

func TestAuthHandlerLoginSurfacesServiceError(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{loginErr: appErrors.ErrInvalidCredentials})
	c, w := newGinContext(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"x@aladab.com","password":"bad"}`), "application/json")

	h.Login(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, decodeEnvelope(t, w).Error.Code)
}

func TestAuthHandlerLogoutRequiresToken(t *testing.T) {
	mock := &authServiceMock{}
	h := NewAuthHandler(mock)

	c, w := newGinContext(http.MethodPost, "/auth/logout", strings.NewReader(`{}`), "application/json")
	withClaims(c, teacherClaims)
	h.Logout(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, mock.logoutToken)

	c, w = newGinContext(http.MethodPost, "/auth/logout", strings.NewReader(`{"refresh_token":"tok"}`), "application/json")
	withClaims(c, teacherClaims)
	h.Logout(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "tok", mock.logoutToken)
	assert.Equal(t, "teacher-1", mock.logoutUserID)
}

func TestAuthHandlerMeEchoesClaims(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{})
	c, w := newGinContext(http.MethodGet, "/auth/me", nil, "")
	withClaims(c, adminClaims)

	h.Me(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decodeEnvelope(t, w).Data), `"role":"admin"`)
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aladab-school-api/internal/models"
	appErrors "github.com/noah-isme/aladab-school-api/pkg/errors"
)

func TestStaffCreateGeneratesPassword(t *testing.T) {
	accounts := newMockAccountManager()
	svc := NewStaffService(accounts, newMockProfileRepo(), nil, nil, nil)

	account, err := svc.Create(context.Background(), CreateStaffRequest{Email: "Bello@AlAdab.com", FullName: " Mr Bello "})
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, account.Profile.Role)
	assert.Equal(t, "Mr Bello", account.Profile.FullName)
	assert.Equal(t, "bello@aladab.com", account.Profile.Email)
	assert.Len(t, account.InitialPassword, 10)

	explicit, err := svc.Create(context.Background(), CreateStaffRequest{Email: "vp@aladab.com", Password: "chosen-pass", FullName: "Vice Principal", Role: models.RolePrincipal})
	require.NoError(t, err)
	assert.Empty(t, explicit.InitialPassword)
}

func TestStaffCreateProfileFailureDeletesAccount(t *testing.T) {
	accounts := newMockAccountManager()
	accounts.profileErr = errors.New("profile insert failed")
	var outcomes []string
	svc := NewStaffService(accounts, newMockProfileRepo(), func(saga, outcome string) { outcomes = append(outcomes, outcome) }, nil, nil)

	_, err := svc.Create(context.Background(), CreateStaffRequest{Email: "ade@aladab.com", FullName: "Mrs Ade"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrWorkflowFailed.Code, appErrors.FromError(err).Code)
	assert.Len(t, accounts.deletedUsers, 1)
	assert.Empty(t, accounts.users)
	assert.Equal(t, []string{"compensated"}, outcomes)
}

func TestStaffCreateRejectsStudentRole(t *testing.T) {
	svc := NewStaffService(newMockAccountManager(), newMockProfileRepo(), nil, nil, nil)

	_, err := svc.Create(context.Background(), CreateStaffRequest{Email: "x@aladab.com", FullName: "X", Role: models.RoleStudent})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStaffListAndGetHideStudents(t *testing.T) {
	svc := NewStaffService(newMockAccountManager(), teacherProfiles(), nil, nil, nil)

	list, _, err := svc.List(context.Background(), models.ProfileFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, _, err = svc.List(context.Background(), models.ProfileFilter{Role: models.RoleStudent})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Get(context.Background(), "st")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	profile, err := svc.Get(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "Mr Bello", profile.FullName)
}

func TestStaffDeleteRemovesAuthUser(t *testing.T) {
	accounts := newMockAccountManager()
	svc := NewStaffService(accounts, teacherProfiles(), nil, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "t2"))
	assert.Equal(t, []string{"t2"}, accounts.deletedUsers)
}

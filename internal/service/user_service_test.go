package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/aladab-school-api/internal/models"
	"github.com/noah-isme/aladab-school-api/internal/repository"
	appErrors "github.com/noah-isme/aladab-school-api/pkg/errors"
)

type mockUserRepo struct {
	users     map[string]*models.User
	createErr error
	deleted   []string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: map[string]*models.User{}}
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	for _, user := range m.users {
		if user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.users, id)
	return nil
}

type mockProfileRepo struct {
	profiles map[string]models.ProfileWithEmail
}

func newMockProfileRepo() *mockProfileRepo {
	return &mockProfileRepo{profiles: map[string]models.ProfileWithEmail{}}
}

func (m *mockProfileRepo) Upsert(ctx context.Context, profile *models.Profile) error {
	current := m.profiles[profile.ID]
	current.Profile = *profile
	m.profiles[profile.ID] = current
	return nil
}

func (m *mockProfileRepo) FindByID(ctx context.Context, id string) (*models.ProfileWithEmail, error) {
	if profile, ok := m.profiles[id]; ok {
		return &profile, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockProfileRepo) List(ctx context.Context, filter models.ProfileFilter) ([]models.ProfileWithEmail, int, error) {
	var out []models.ProfileWithEmail
	for _, profile := range m.profiles {
		if filter.Role == "" || profile.Role == filter.Role {
			out = append(out, profile)
		}
	}
	return out, len(out), nil
}

func (m *mockProfileRepo) UpdateContact(ctx context.Context, id string, phone, address *string) error {
	profile, ok := m.profiles[id]
	if !ok {
		return sql.ErrNoRows
	}
	profile.Phone = phone
	profile.Address = address
	m.profiles[id] = profile
	return nil
}

func (m *mockProfileRepo) Delete(ctx context.Context, id string) error {
	delete(m.profiles, id)
	return nil
}

func TestCreateAuthUserNormalizesAndHashes(t *testing.T) {
	users := newMockUserRepo()
	svc := NewUserService(users, newMockProfileRepo(), nil, nil)

	user, err := svc.CreateAuthUser(context.Background(), "  Teacher@AlAdab.com ", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "teacher@aladab.com", user.Email)
	assert.True(t, user.Active)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users.users[user.ID].PasswordHash), []byte("secret123")))
}

func TestCreateAuthUserRejectsTakenEmail(t *testing.T) {
	users := newMockUserRepo()
	users.users["u1"] = &models.User{ID: "u1", Email: "ada@example.com"}
	svc := NewUserService(users, newMockProfileRepo(), nil, nil)

	_, err := svc.CreateAuthUser(context.Background(), "ADA@example.com", "secret123")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrEmailRegistered))
	assert.Equal(t, 409, appErrors.FromError(err).Status)

	users.users = map[string]*models.User{}
	users.createErr = repository.ErrDuplicate
	_, err = svc.CreateAuthUser(context.Background(), "ada@example.com", "secret123")
	assert.True(t, appErrors.Is(err, appErrors.ErrEmailRegistered))
}

func TestCreateAuthUserValidation(t *testing.T) {
	svc := NewUserService(newMockUserRepo(), newMockProfileRepo(), nil, nil)

	_, err := svc.CreateAuthUser(context.Background(), "not-an-email", "secret123")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	_, err = svc.CreateAuthUser(context.Background(), "ok@example.com", "123")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpsertProfileValidation(t *testing.T) {
	svc := NewUserService(newMockUserRepo(), newMockProfileRepo(), nil, nil)

	err := svc.UpsertProfile(context.Background(), &models.Profile{ID: "p1", FullName: "Ada", Role: "bursar"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	err = svc.UpsertProfile(context.Background(), &models.Profile{ID: "p1", FullName: "  ", Role: models.RoleTeacher})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	require.NoError(t, svc.UpsertProfile(context.Background(), &models.Profile{ID: "p1", FullName: "Ada", Role: models.RoleTeacher}))
}

func TestUpdateOwnProfileOnlyTouchesContact(t *testing.T) {
	profiles := newMockProfileRepo()
	profiles.profiles["p1"] = models.ProfileWithEmail{Profile: models.Profile{ID: "p1", FullName: "Ada", Role: models.RoleTeacher}, Email: "ada@example.com"}
	svc := NewUserService(newMockUserRepo(), profiles, nil, nil)

	updated, err := svc.UpdateOwnProfile(context.Background(), "p1", UpdateOwnProfileRequest{Phone: strPtr(" 0803 "), Address: strPtr("")})
	require.NoError(t, err)
	assert.Equal(t, "0803", *updated.Phone)
	assert.Nil(t, updated.Address)
	assert.Equal(t, models.RoleTeacher, updated.Role)

	_, err = svc.UpdateOwnProfile(context.Background(), "missing", UpdateOwnProfileRequest{})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAdminUpdateProfileChangesRole(t *testing.T) {
	profiles := newMockProfileRepo()
	profiles.profiles["p1"] = models.ProfileWithEmail{Profile: models.Profile{ID: "p1", FullName: "Ada", Role: models.RoleTeacher}, Email: "ada@example.com"}
	svc := NewUserService(newMockUserRepo(), profiles, nil, nil)

	updated, err := svc.AdminUpdateProfile(context.Background(), "p1", AdminUpdateProfileRequest{FullName: "Ada Obi", Role: models.RolePrincipal})
	require.NoError(t, err)
	assert.Equal(t, models.RolePrincipal, updated.Role)
	assert.Equal(t, "ada@example.com", updated.Email)

	_, err = svc.AdminUpdateProfile(context.Background(), "p1", AdminUpdateProfileRequest{FullName: "Ada", Role: "janitor"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestListProfilesPaginates(t *testing.T) {
	profiles := newMockProfileRepo()
	profiles.profiles["p1"] = models.ProfileWithEmail{Profile: models.Profile{ID: "p1", Role: models.RoleTeacher}}
	profiles.profiles["p2"] = models.ProfileWithEmail{Profile: models.Profile{ID: "p2", Role: models.RoleStudent}}
	svc := NewUserService(newMockUserRepo(), profiles, nil, nil)

	list, pagination, err := svc.ListProfiles(context.Background(), models.ProfileFilter{Role: models.RoleTeacher, Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, pagination.TotalCount)
}

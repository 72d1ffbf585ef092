package service

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aladab-school-api/internal/models"
	appErrors "github.com/noah-isme/aladab-school-api/pkg/errors"
)

type mockAccountManager struct {
	users           map[string]string
	profiles        map[string]models.Profile
	nextID          int
	createErr       error
	profileErr      error
	deletedUsers    []string
	deletedProfiles []string
}

func newMockAccountManager(taken ...string) *mockAccountManager {
	m := &mockAccountManager{users: map[string]string{}, profiles: map[string]models.Profile{}}
	for i, email := range taken {
		m.users["existing-"+string(rune('a'+i))] = email
	}
	return m
}

func (m *mockAccountManager) CreateAuthUser(ctx context.Context, email, password string) (*models.User, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	email = strings.ToLower(email)
	for _, existing := range m.users {
		if existing == email {
			return nil, appErrors.ErrEmailRegistered
		}
	}
	m.nextID++
	id := "user-" + string(rune('0'+m.nextID))
	m.users[id] = email
	return &models.User{ID: id, Email: email}, nil
}

func (m *mockAccountManager) DeleteAuthUser(ctx context.Context, id string) error {
	m.deletedUsers = append(m.deletedUsers, id)
	delete(m.users, id)
	delete(m.profiles, id)
	return nil
}

func (m *mockAccountManager) UpsertProfile(ctx context.Context, profile *models.Profile) error {
	if m.profileErr != nil {
		return m.profileErr
	}
	m.profiles[profile.ID] = *profile
	return nil
}

func (m *mockAccountManager) DeleteProfile(ctx context.Context, id string) error {
	m.deletedProfiles = append(m.deletedProfiles, id)
	delete(m.profiles, id)
	return nil
}

type mockStudentWriter struct {
	students  map[string]models.Student
	createErr error
	deleted   []string
}

func (m *mockStudentWriter) Create(ctx context.Context, student *models.Student) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.students == nil {
		m.students = make(map[string]models.Student)
	}
	m.students[student.ID] = *student
	return nil
}

func (m *mockStudentWriter) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.students, id)
	return nil
}

type mockAdmissionRepo struct {
	apps       map[string]models.AdmissionApplication
	approveErr error
}

func (m *mockAdmissionRepo) Create(ctx context.Context, app *models.AdmissionApplication) error {
	if app.ID == "" {
		app.ID = "app-new"
	}
	if app.Department == "" {
		app.Department = models.DepartmentGeneral
	}
	app.Status = models.ApplicationPending
	m.apps[app.ID] = *app
	return nil
}

func (m *mockAdmissionRepo) FindByID(ctx context.Context, id string) (*models.AdmissionApplication, error) {
	if app, ok := m.apps[id]; ok {
		return &app, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAdmissionRepo) List(ctx context.Context, filter models.ApplicationFilter) ([]models.AdmissionApplication, int, error) {
	var out []models.AdmissionApplication
	for _, app := range m.apps {
		if filter.Status == "" || app.Status == filter.Status {
			out = append(out, app)
		}
	}
	return out, len(out), nil
}

func (m *mockAdmissionRepo) MarkApproved(ctx context.Context, id, admissionNumber, studentID, reviewerID string) error {
	if m.approveErr != nil {
		return m.approveErr
	}
	app, ok := m.apps[id]
	if !ok || app.Status != models.ApplicationPending {
		return sql.ErrNoRows
	}
	app.Status = models.ApplicationApproved
	app.AdmissionNumber = &admissionNumber
	app.StudentID = &studentID
	m.apps[id] = app
	return nil
}

func (m *mockAdmissionRepo) MarkRejected(ctx context.Context, id, note, reviewerID string) error {
	app, ok := m.apps[id]
	if !ok || app.Status != models.ApplicationPending {
		return sql.ErrNoRows
	}
	app.Status = models.ApplicationRejected
	app.ReviewNote = &note
	m.apps[id] = app
	return nil
}

type workflowRun struct {
	saga    string
	outcome string
}

type admissionFixture struct {
	svc      *AdmissionService
	repo     *mockAdmissionRepo
	accounts *mockAccountManager
	students *mockStudentWriter
	audit    *mockAuditLogger
	runs     []workflowRun
}

func newAdmissionFixture(accounts *mockAccountManager) *admissionFixture {
	guardian := "mama.okafor@example.com"
	f := &admissionFixture{
		repo: &mockAdmissionRepo{apps: map[string]models.AdmissionApplication{
			"app-1": {ID: "app-1", FirstName: "Ada", LastName: "Okafor", GuardianEmail: &guardian, Department: models.DepartmentScience, Status: models.ApplicationPending},
			"app-2": {ID: "app-2", FirstName: "Obi", LastName: "Okafor", GuardianEmail: &guardian, Status: models.ApplicationPending},
			"app-3": {ID: "app-3", FirstName: "Done", Status: models.ApplicationApproved},
		}},
		accounts: accounts,
		students: &mockStudentWriter{},
		audit:    &mockAuditLogger{},
	}
	observer := func(saga, outcome string) {
		f.runs = append(f.runs, workflowRun{saga: saga, outcome: outcome})
	}
	enrollment := NewEnrollmentService(f.accounts, f.students, "student.aladab.com", observer, nil)
	f.svc = NewAdmissionService(f.repo, enrollment, f.audit, observer, "ALD", nil, nil)
	f.svc.now = func() time.Time { return time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC) }
	return f
}

func TestAdmissionApproveUsesGuardianEmail(t *testing.T) {
	f := newAdmissionFixture(newMockAccountManager())

	out, err := f.svc.Approve(context.Background(), "app-1", "admin-1")
	require.NoError(t, err)

	assert.Equal(t, "mama.okafor@example.com", out.Enrollment.Email)
	assert.False(t, out.Enrollment.FallbackEmailUsed)
	assert.NotEmpty(t, out.Enrollment.InitialPassword)
	assert.Regexp(t, regexp.MustCompile(`^ALD/2025/\d{4}$`), out.Enrollment.AdmissionNumber)
	assert.Equal(t, models.ApplicationApproved, out.Application.Status)
	require.NotNil(t, out.Application.StudentID)
	assert.Equal(t, out.Enrollment.StudentID, *out.Application.StudentID)

	student := f.students.students[out.Enrollment.StudentID]
	assert.Equal(t, models.DepartmentScience, student.Department)
	assert.Equal(t, models.RoleStudent, f.accounts.profiles[out.Enrollment.UserID].Role)
	assert.Equal(t, "Ada Okafor", f.accounts.profiles[out.Enrollment.UserID].FullName)

	require.Len(t, f.audit.logs, 1)
	assert.Equal(t, models.AuditActionAdmissionApprove, f.audit.logs[0].Action)
	assert.Equal(t, []workflowRun{{saga: admissionApprovalSaga, outcome: "succeeded"}}, f.runs)
}

func TestAdmissionApproveFallsBackOnEmailCollision(t *testing.T) {
	f := newAdmissionFixture(newMockAccountManager())

	_, err := f.svc.Approve(context.Background(), "app-1", "admin-1")
	require.NoError(t, err)
	out, err := f.svc.Approve(context.Background(), "app-2", "admin-1")
	require.NoError(t, err)

	assert.True(t, out.Enrollment.FallbackEmailUsed)
	assert.Regexp(t, regexp.MustCompile(`^ald-2025-\d{4}@student\.aladab\.com$`), out.Enrollment.Email)
	assert.Equal(t, fallbackStudentEmail(out.Enrollment.AdmissionNumber, "student.aladab.com"), out.Enrollment.Email)
	assert.Equal(t, models.ApplicationApproved, out.Application.Status)
}

func TestAdmissionApproveCompensatesFailedStudentInsert(t *testing.T) {
	f := newAdmissionFixture(newMockAccountManager())
	f.students.createErr = errors.New("insert student: connection reset")

	_, err := f.svc.Approve(context.Background(), "app-1", "admin-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create student record")

	require.Len(t, f.accounts.deletedUsers, 1)
	assert.Empty(t, f.accounts.users, "auth user must be removed")
	assert.Empty(t, f.accounts.profiles)
	assert.Equal(t, models.ApplicationPending, f.repo.apps["app-1"].Status)
	assert.Empty(t, f.audit.logs)
	assert.Equal(t, []workflowRun{{saga: admissionApprovalSaga, outcome: "compensated"}}, f.runs)
}

func TestAdmissionApproveCompensatesFailedStatusUpdate(t *testing.T) {
	f := newAdmissionFixture(newMockAccountManager())
	f.repo.approveErr = errors.New("update application: timeout")

	_, err := f.svc.Approve(context.Background(), "app-1", "admin-1")
	require.Error(t, err)

	assert.Len(t, f.students.deleted, 1)
	assert.Empty(t, f.students.students)
	assert.Len(t, f.accounts.deletedUsers, 1)
}

func TestAdmissionApproveRejectsReviewedApplication(t *testing.T) {
	f := newAdmissionFixture(newMockAccountManager())

	_, err := f.svc.Approve(context.Background(), "app-3", "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	_, err = f.svc.Approve(context.Background(), "missing", "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.accounts.users)
}

func TestAdmissionApproveSurfacesAccountFailure(t *testing.T) {
	accounts := newMockAccountManager()
	accounts.createErr = appErrors.Clone(appErrors.ErrInternal, "auth backend unavailable")
	f := newAdmissionFixture(accounts)

	_, err := f.svc.Approve(context.Background(), "app-1", "admin-1")
	require.Error(t, err)
	assert.Equal(t, "auth backend unavailable", appErrors.FromError(err).Message)
	assert.Empty(t, f.students.students)
}

func TestAdmissionSubmitAndReject(t *testing.T) {
	f := newAdmissionFixture(newMockAccountManager())
	email := " Kemi@Example.com "

	app, err := f.svc.Submit(context.Background(), SubmitApplicationRequest{FirstName: "Kemi", LastName: "Adams", Email: &email})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationPending, app.Status)
	require.NotNil(t, app.Email)
	assert.Equal(t, "kemi@example.com", *app.Email)

	_, err = f.svc.Submit(context.Background(), SubmitApplicationRequest{FirstName: "Kemi"})
	require.Error(t, err)

	rejected, err := f.svc.Reject(context.Background(), app.ID, RejectApplicationRequest{Note: "incomplete documents"}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationRejected, rejected.Status)

	_, err = f.svc.Reject(context.Background(), app.ID, RejectApplicationRequest{}, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAdmissionListValidatesStatus(t *testing.T) {
	f := newAdmissionFixture(newMockAccountManager())

	apps, pagination, err := f.svc.List(context.Background(), models.ApplicationFilter{Status: models.ApplicationPending})
	require.NoError(t, err)
	assert.Len(t, apps, 2)
	assert.Equal(t, 2, pagination.TotalCount)

	_, _, err = f.svc.List(context.Background(), models.ApplicationFilter{Status: "archived"})
	require.Error(t, err)
}

func TestAdmissionSubmitTrimsBeforeValidating(t *testing.T) {
	f := newAdmissionFixture(newMockAccountManager())
	guardian := "  Parent@Example.COM\t"
	blank := "   "
	gender := " Female "

	app, err := f.svc.Submit(context.Background(), SubmitApplicationRequest{
		FirstName:     "  Ada ",
		LastName:      "Obi",
		Email:         &blank,
		Gender:        &gender,
		GuardianEmail: &guardian,
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada", app.FirstName)
	assert.Nil(t, app.Email)
	require.NotNil(t, app.Gender)
	assert.Equal(t, "Female", *app.Gender)
	require.NotNil(t, app.GuardianEmail)
	assert.Equal(t, "parent@example.com", *app.GuardianEmail)

	_, err = f.svc.Submit(context.Background(), SubmitApplicationRequest{FirstName: "   ", LastName: "Obi"})
	require.Error(t, err)
	assert.Equal(t, "required", appErrors.FromError(err).Fields["first_name"])
}

package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aladab-school-api/internal/models"
	"github.com/noah-isme/aladab-school-api/internal/service"
)

type subjectServiceMock struct {
	created    service.SubjectRequest
	deletedKey models.SubjectGroupKey
}

func (m *subjectServiceMock) ListGrouped(ctx context.Context, filter models.SubjectFilter) ([]models.SubjectGroup, error) {
	return []models.SubjectGroup{}, nil
}

func (m *subjectServiceMock) Get(ctx context.Context, id string) (*models.Subject, error) {
	return &models.Subject{ID: id}, nil
}

func (m *subjectServiceMock) Create(ctx context.Context, req service.SubjectRequest) (*models.Subject, error) {
	m.created = req
	return &models.Subject{ID: "sub-1", Name: req.Name, Code: req.Code}, nil
}

func (m *subjectServiceMock) Update(ctx context.Context, id string, req service.SubjectRequest) (*models.Subject, error) {
	return &models.Subject{ID: id}, nil
}

func (m *subjectServiceMock) DeleteVariant(ctx context.Context, id string) error {
	return nil
}

func (m *subjectServiceMock) DeleteGroup(ctx context.Context, key models.SubjectGroupKey) (int, error) {
	m.deletedKey = key
	return 3, nil
}

func TestSubjectHandlerCreateFormFields(t *testing.T) {
	mock := &subjectServiceMock{}
	h := NewSubjectHandler(mock)
	form := url.Values{
		"name":             {"Biology"},
		"code":             {"BIO"},
		"category":         {"Senior"},
		"departmentTarget": {"Science"},
		"isCompulsory":     {"true"},
	}
	c, w := newGinContext(http.MethodPost, "/subjects", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")

	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.SubjectCategory("Senior"), mock.created.Category)
	assert.Equal(t, models.Department("Science"), mock.created.DepartmentTarget)
	assert.True(t, mock.created.IsCompulsory)
}

func TestSubjectHandlerDeleteGroupNormalisesKey(t *testing.T) {
	mock := &subjectServiceMock{}
	h := NewSubjectHandler(mock)
	c, w := newGinContext(http.MethodDelete, "/subjects/groups?name=%20Biology%20&code=bio", nil, "")

	h.DeleteGroup(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.SubjectGroupKey{Name: "biology", Code: "BIO"}, mock.deletedKey)
	assert.JSONEq(t, `{"deleted":3}`, string(decodeEnvelope(t, w).Data))
}

func TestSubjectHandlerDeleteGroupRequiresCode(t *testing.T) {
	h := NewSubjectHandler(&subjectServiceMock{})
	c, w := newGinContext(http.MethodDelete, "/subjects/groups?name=Biology", nil, "")

	h.DeleteGroup(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

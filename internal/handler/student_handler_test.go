package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aladab-school-api/internal/models"
	"github.com/noah-isme/aladab-school-api/internal/service"
)

type studentServiceStub struct {
	filter        models.StudentFilter
	imported      string
	importClassID string
	reassigned    [2]string
}

func (s *studentServiceStub) List(_ context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	s.filter = filter
	return nil, models.NewPagination(filter.Page, filter.PageSize, 0), nil
}

func (s *studentServiceStub) Get(_ context.Context, id string) (*models.StudentDetail, error) {
	return &models.StudentDetail{}, nil
}

func (s *studentServiceStub) Create(context.Context, service.CreateStudentRequest) (*service.Enrollment, error) {
	return nil, nil
}

func (s *studentServiceStub) Update(context.Context, string, service.UpdateStudentRequest) (*models.StudentDetail, error) {
	return nil, nil
}

func (s *studentServiceStub) ReassignClass(_ context.Context, id, classID string) error {
	s.reassigned = [2]string{id, classID}
	return nil
}

func (s *studentServiceStub) Delete(context.Context, string) error { return nil }

func (s *studentServiceStub) Import(_ context.Context, r io.Reader, classID string) (*service.ImportResult, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	s.imported, s.importClassID = string(body), classID
	return &service.ImportResult{Created: 1}, nil
}

func multipartUpload(t *testing.T, filename, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestStudentHandlerImportForwardsFile(t *testing.T) {
	stub := &studentServiceStub{}
	h := NewStudentHandler(stub)
	csvBody := "full_name,gender\nAmina Bello,Female\n"
	body, contentType := multipartUpload(t, "jss1a.CSV", csvBody, map[string]string{"classId": " jss1a "})
	c, w := newGinContext(http.MethodPost, "/students/import", body, contentType)

	h.Import(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, csvBody, stub.imported)
	assert.Equal(t, "jss1a", stub.importClassID)
	assert.Contains(t, string(decodeEnvelope(t, w).Data), `"created":1`)
}

func TestStudentHandlerImportRejectsOtherExtensions(t *testing.T) {
	stub := &studentServiceStub{}
	h := NewStudentHandler(stub)
	body, contentType := multipartUpload(t, "students.xlsx", "binary", nil)
	c, w := newGinContext(http.MethodPost, "/students/import", body, contentType)

	h.Import(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, stub.imported)
}

func TestStudentHandlerImportRequiresFile(t *testing.T) {
	h := NewStudentHandler(&studentServiceStub{})
	c, w := newGinContext(http.MethodPost, "/students/import", nil, "")

	h.Import(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStudentHandlerListValidatesDepartment(t *testing.T) {
	stub := &studentServiceStub{}
	h := NewStudentHandler(stub)

	c, w := newGinContext(http.MethodGet, "/students?department=Science&classId=ss2a", nil, "")
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.DepartmentScience, stub.filter.Department)
	assert.Equal(t, "ss2a", stub.filter.ClassID)

	c, w = newGinContext(http.MethodGet, "/students?department=Music", nil, "")
	h.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStudentHandlerReassignTrimsClass(t *testing.T) {
	stub := &studentServiceStub{}
	h := NewStudentHandler(stub)
	c, w := newGinContext(http.MethodPut, "/students/s1/class", bytes.NewBufferString(`{"class_id":" ss1b "}`), "application/json")
	c.Params = gin.Params{{Key: "id", Value: "s1"}}

	h.Reassign(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [2]string{"s1", "ss1b"}, stub.reassigned)
}

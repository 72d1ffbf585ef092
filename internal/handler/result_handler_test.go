package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aladab-school-api/internal/middleware"
	"github.com/noah-isme/aladab-school-api/internal/models"
	"github.com/noah-isme/aladab-school-api/internal/service"
)

type resultServiceMock struct {
	period  models.AcademicPeriod
	form    url.Values
	actorID string
	classID string
}

func (m *resultServiceMock) Broadsheet(ctx context.Context, classID, subjectID string, period models.AcademicPeriod) (*service.Broadsheet, error) {
	m.classID = classID
	m.period = period
	return &service.Broadsheet{}, nil
}

func (m *resultServiceMock) Preview(ctx context.Context, classID, subjectID string, period models.AcademicPeriod, form url.Values) (*service.Broadsheet, error) {
	m.period = period
	m.form = form
	return &service.Broadsheet{}, nil
}

func (m *resultServiceMock) SaveBroadsheet(ctx context.Context, classID, subjectID string, period models.AcademicPeriod, form url.Values, actorID string) (*service.SaveBroadsheetResult, error) {
	m.period = period
	m.form = form
	m.actorID = actorID
	return &service.SaveBroadsheetResult{Saved: 1}, nil
}

func (m *resultServiceMock) ReportCard(ctx context.Context, studentID string, period models.AcademicPeriod) (*service.ReportCard, error) {
	m.period = period
	return &service.ReportCard{Period: period}, nil
}

type storedPeriod struct{}

func (storedPeriod) Current(ctx context.Context) (models.AcademicPeriod, error) {
	return currentPeriod, nil
}

func TestResultHandlerSaveReadsForm(t *testing.T) {
	mock := &resultServiceMock{}
	h := NewResultHandler(mock)
	form := url.Values{"student_s1_ca": {"35"}, "student_s1_exam": {"50"}}
	c, w := newGinContext(http.MethodPost, "/results/broadsheet/c1/m1", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	c.Params = gin.Params{{Key: "classId", Value: "c1"}, {Key: "subjectId", Value: "m1"}}
	withClaims(c, teacherClaims)
	withPeriod(c, currentPeriod)

	h.Save(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "35", mock.form.Get("student_s1_ca"))
	assert.Equal(t, "teacher-1", mock.actorID)
	assert.Equal(t, currentPeriod, mock.period)
}

func TestResultHandlerSaveRequiresClaims(t *testing.T) {
	h := NewResultHandler(&resultServiceMock{})
	c, w := newGinContext(http.MethodPost, "/results/broadsheet/c1/m1", nil, "")
	withPeriod(c, currentPeriod)

	h.Save(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestResultHandlerBroadsheetWithoutPeriod(t *testing.T) {
	h := NewResultHandler(&resultServiceMock{})
	c, w := newGinContext(http.MethodGet, "/results/broadsheet/c1/m1", nil, "")

	h.Broadsheet(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeEnvelope(t, w).Error.Code)
}

func TestResultHandlerQueryPeriodOverridesStored(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &resultServiceMock{}
	h := NewResultHandler(mock)
	router := gin.New()
	router.GET("/results/broadsheet/:classId/:subjectId", middleware.AcademicPeriod(storedPeriod{}), h.Broadsheet)

	req := httptest.NewRequest(http.MethodGet, "/results/broadsheet/c1/m1?session=2023/2024&term=Third%20Term", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "c1", mock.classID)
	assert.Equal(t, models.AcademicPeriod{Session: "2023/2024", Term: models.TermThird}, mock.period)

	req = httptest.NewRequest(http.MethodGet, "/results/broadsheet/c1/m1", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, currentPeriod, mock.period)
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aladab-school-api/internal/models"
	appErrors "github.com/noah-isme/aladab-school-api/pkg/errors"
)

type mockAttendanceRepo struct {
	roster  []models.RosterEntry
	marks   map[string]models.Attendance
	counts  []models.AttendanceStatusCount
	upserts int
}

func (m *mockAttendanceRepo) UpsertMany(ctx context.Context, records []models.Attendance) error {
	if m.marks == nil {
		m.marks = make(map[string]models.Attendance)
	}
	for _, rec := range records {
		m.marks[rec.StudentID+"|"+rec.Date.Format(dateLayout)] = rec
	}
	m.upserts++
	return nil
}

func (m *mockAttendanceRepo) Register(ctx context.Context, classID string, date time.Time) ([]models.RegisterEntry, error) {
	entries := make([]models.RegisterEntry, 0, len(m.roster))
	for _, student := range m.roster {
		entry := models.RegisterEntry{RosterEntry: student}
		if mark, ok := m.marks[student.StudentID+"|"+date.Format(dateLayout)]; ok {
			status := mark.Status
			entry.Status = &status
			entry.Note = mark.Note
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (m *mockAttendanceRepo) CountByStatus(ctx context.Context, studentID string, from, to time.Time) ([]models.AttendanceStatusCount, error) {
	return m.counts, nil
}

func newAttendanceFixture() (*AttendanceService, *mockAttendanceRepo) {
	repo := &mockAttendanceRepo{roster: []models.RosterEntry{
		{StudentID: "s1", FullName: "Ada"},
		{StudentID: "s2", FullName: "Bayo"},
		{StudentID: "s3", FullName: "Chioma"},
	}}
	classes := &mockClassFinder{classes: map[string]models.Class{"jss1": {ID: "jss1"}}}
	svc := NewAttendanceService(repo, classes, nil, nil)
	svc.now = func() time.Time { return time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC) }
	return svc, repo
}

func TestAttendanceMarkIncludesUnmarkedStudents(t *testing.T) {
	svc, repo := newAttendanceFixture()

	register, err := svc.Mark(context.Background(), "jss1", MarkAttendanceRequest{
		Date: "2025-03-10",
		Entries: []AttendanceMark{
			{StudentID: "s1", Status: models.AttendancePresent},
			{StudentID: "s2", Status: models.AttendanceLate, Note: strPtr("  bus delay ")},
		},
	}, "teacher-1")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.upserts)
	assert.Equal(t, 2, register.Marked)
	assert.Equal(t, 1, register.Unmarked)
	assert.Nil(t, register.Entries[2].Status)
	require.NotNil(t, register.Entries[1].Note)
	assert.Equal(t, "bus delay", *register.Entries[1].Note)
}

func TestAttendanceMarkRejectsBeforeWriting(t *testing.T) {
	svc, repo := newAttendanceFixture()
	cases := []MarkAttendanceRequest{
		{Date: "2025-03-11", Entries: []AttendanceMark{{StudentID: "s1", Status: models.AttendancePresent}}},
		{Date: "10/03/2025", Entries: []AttendanceMark{{StudentID: "s1", Status: models.AttendancePresent}}},
		{Date: "2025-03-10", Entries: []AttendanceMark{{StudentID: "s9", Status: models.AttendancePresent}}},
		{Date: "2025-03-10", Entries: []AttendanceMark{{StudentID: "s1", Status: "asleep"}}},
		{Date: "2025-03-10", Entries: []AttendanceMark{{StudentID: "s1", Status: models.AttendancePresent}, {StudentID: "s1", Status: models.AttendanceAbsent}}},
	}
	for _, req := range cases {
		_, err := svc.Mark(context.Background(), "jss1", req, "teacher-1")
		require.Error(t, err, req.Date)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
	assert.Zero(t, repo.upserts)

	_, err := svc.Mark(context.Background(), "missing", MarkAttendanceRequest{Date: "2025-03-10", Entries: []AttendanceMark{{StudentID: "s1", Status: models.AttendancePresent}}}, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAttendanceStudentSummary(t *testing.T) {
	svc, repo := newAttendanceFixture()
	repo.counts = []models.AttendanceStatusCount{
		{Status: models.AttendancePresent, Count: 14},
		{Status: models.AttendanceLate, Count: 2},
		{Status: models.AttendanceAbsent, Count: 3},
		{Status: models.AttendanceExcused, Count: 1},
	}

	summary, err := svc.StudentSummary(context.Background(), "s1", "2025-01-06", "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, 20, summary.Total)
	assert.Equal(t, 80.0, summary.PresencePercent)

	_, err = svc.StudentSummary(context.Background(), "s1", "2025-03-10", "2025-01-06")
	require.Error(t, err)
}

package service

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aladab-school-api/internal/models"
)

func floatPtr(v float64) *float64 {
	return &v
}

func TestParseScore(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		max     float64
		want    *float64
		wantErr bool
	}{
		{name: "empty is unscored", raw: "  ", max: 40},
		{name: "within range", raw: "32.5", max: 40, want: floatPtr(32.5)},
		{name: "clamped to max", raw: "55", max: 40, want: floatPtr(40)},
		{name: "negative clamped to zero", raw: "-3", max: 60, want: floatPtr(0)},
		{name: "non numeric", raw: "abc", max: 60, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseScore(tc.raw, tc.max)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestApplyScoreInputKeepsValueOnRejectedInput(t *testing.T) {
	current := floatPtr(12)
	assert.Equal(t, current, ApplyScoreInput(current, "12a", models.MaxCAScore))
	assert.Equal(t, floatPtr(60), ApplyScoreInput(current, "99", models.MaxExamScore))
	assert.Nil(t, ApplyScoreInput(current, "", models.MaxCAScore))
}

func TestGradeBoundaries(t *testing.T) {
	cases := map[float64]GradeBand{
		100:  {Letter: "A", Remark: "Excellent"},
		70:   {Letter: "A", Remark: "Excellent"},
		69:   {Letter: "B", Remark: "V.Good"},
		60:   {Letter: "B", Remark: "V.Good"},
		59.5: {Letter: "C", Remark: "Credit"},
		50:   {Letter: "C", Remark: "Credit"},
		45:   {Letter: "D", Remark: "Pass"},
		44:   {Letter: "E", Remark: "Fair"},
		40:   {Letter: "E", Remark: "Fair"},
		39:   {Letter: "F", Remark: "Fail"},
		0:    {Letter: "F", Remark: "Fail"},
	}
	for total, want := range cases {
		assert.Equal(t, want, Grade(total), "total %v", total)
	}
}

func TestNewBroadsheetRowUnscored(t *testing.T) {
	student := models.RosterEntry{StudentID: "s1", FullName: "Aisha Bello"}

	row := NewBroadsheetRow(student, nil, nil)
	assert.False(t, row.Scored())
	assert.Equal(t, UnscoredMark, row.Grade)
	assert.Nil(t, row.Total)

	row = NewBroadsheetRow(student, floatPtr(30), nil)
	require.NotNil(t, row.Total)
	assert.Equal(t, 30.0, *row.Total)
	assert.Equal(t, "F", row.Grade)

	row = NewBroadsheetRow(student, floatPtr(30), floatPtr(40))
	assert.Equal(t, 70.0, *row.Total)
	assert.Equal(t, "A", row.Grade)
	assert.Equal(t, "Excellent", row.Remark)
}

func TestComputeStatsIgnoresUnscoredRows(t *testing.T) {
	rows := []BroadsheetRow{
		NewBroadsheetRow(models.RosterEntry{StudentID: "a"}, floatPtr(30), floatPtr(45)),
		NewBroadsheetRow(models.RosterEntry{StudentID: "b"}, floatPtr(10), floatPtr(20)),
		NewBroadsheetRow(models.RosterEntry{StudentID: "c"}, nil, nil),
		NewBroadsheetRow(models.RosterEntry{StudentID: "d"}, nil, floatPtr(0)),
	}

	stats := ComputeStats(rows)
	assert.Equal(t, 3, stats.Scored)
	assert.Equal(t, 75.0, stats.Highest)
	assert.Equal(t, 2, stats.Failures)
	assert.Equal(t, 35.0, stats.Average)

	assert.Equal(t, BroadsheetStats{}, ComputeStats(rows[2:3]))
}

func TestParseBroadsheetForm(t *testing.T) {
	form := url.Values{
		"student_s1_ca":      {"35"},
		"student_s1_exam":    {"50"},
		"student_s2_ca":      {"41"},
		"student_s2_exam":    {"20"},
		"student_s3_ca":      {""},
		"student_s3_exam":    {""},
		"student_s4_exam":    {"61"},
		"student_s5_ca":      {"-1"},
		"student_s6_ca":      {"x"},
		"student_s7_exam":    {"58"},
		"student_s_8_ca":     {"12"},
		"subject_id":         {"math"},
		"student_s9_comment": {"ok"},
	}

	entries := ParseBroadsheetForm(form)
	require.Len(t, entries, 3)
	assert.Equal(t, BroadsheetEntry{StudentID: "s1", CA: floatPtr(35), Exam: floatPtr(50)}, entries[0])
	assert.Equal(t, BroadsheetEntry{StudentID: "s7", Exam: floatPtr(58)}, entries[1])
	assert.Equal(t, BroadsheetEntry{StudentID: "s_8", CA: floatPtr(12)}, entries[2])
}

func TestCursorMove(t *testing.T) {
	c := Cursor{Rows: 3}

	c = c.Move("Enter")
	assert.Equal(t, 1, c.Row)
	c = c.Move("ArrowDown").Move("ArrowDown")
	assert.Equal(t, 2, c.Row)
	c = c.Move("ArrowRight")
	assert.Equal(t, FieldExam, c.Field)
	c = c.Move("ArrowUp")
	assert.Equal(t, Cursor{Row: 1, Field: FieldExam, Rows: 3}, c)
	c = c.Move("ArrowLeft").Move("Tab")
	assert.Equal(t, FieldCA, c.Field)
	c = c.Move("ArrowUp").Move("ArrowUp")
	assert.Equal(t, 0, c.Row)
}

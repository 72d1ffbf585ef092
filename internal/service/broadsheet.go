package service

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/noah-isme/aladab-school-api/internal/models"
)

// UnscoredMark is shown in place of a grade for rows without any score.
const UnscoredMark = "–"

// ParseScore reads one score field. An empty field is unscored (nil). Values above max are clamped to max
// and negative values to zero; non-numeric input is an error.
func ParseScore(raw string, max float64) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, fmt.Errorf("score %q is not a number", raw)
	}
	if value > max {
		value = max
	}
	if value < 0 {
		value = 0
	}
	return &value, nil
}

// ApplyScoreInput returns the field value after an edit; rejected input leaves current unchanged.
func ApplyScoreInput(current *float64, raw string, max float64) *float64 {
	next, err := ParseScore(raw, max)
	if err != nil {
		return current
	}
	return next
}

// GradeBand is a letter grade with its remark.
type GradeBand struct {
	Letter string `json:"grade"`
	Remark string `json:"remark"`
}

// Grade maps a total out of 100 to its band.
func Grade(total float64) GradeBand {
	switch {
	case total >= 70:
		return GradeBand{Letter: "A", Remark: "Excellent"}
	case total >= 60:
		return GradeBand{Letter: "B", Remark: "V.Good"}
	case total >= 50:
		return GradeBand{Letter: "C", Remark: "Credit"}
	case total >= 45:
		return GradeBand{Letter: "D", Remark: "Pass"}
	case total >= 40:
		return GradeBand{Letter: "E", Remark: "Fair"}
	}
	return GradeBand{Letter: "F", Remark: "Fail"}
}

// BroadsheetRow is one student's line with values derived from the two scores.
type BroadsheetRow struct {
	StudentID       string            `json:"student_id"`
	AdmissionNumber string            `json:"admission_number"`
	FullName        string            `json:"full_name"`
	Department      models.Department `json:"department"`
	CA              *float64          `json:"ca"`
	Exam            *float64          `json:"exam"`
	Total           *float64          `json:"total"`
	Grade           string            `json:"grade"`
	Remark          string            `json:"remark"`
}

// NewBroadsheetRow derives total, grade and remark. An empty component counts as zero once the other is set.
func NewBroadsheetRow(student models.RosterEntry, ca, exam *float64) BroadsheetRow {
	row := BroadsheetRow{
		StudentID:       student.StudentID,
		AdmissionNumber: student.AdmissionNumber,
		FullName:        student.FullName,
		Department:      student.Department,
		CA:              ca,
		Exam:            exam,
		Grade:           UnscoredMark,
	}
	if !row.Scored() {
		return row
	}
	total := valueOf(ca) + valueOf(exam)
	band := Grade(total)
	row.Total = &total
	row.Grade = band.Letter
	row.Remark = band.Remark
	return row
}

// Scored reports whether either component has a value.
func (r BroadsheetRow) Scored() bool {
	return r.CA != nil || r.Exam != nil
}

func valueOf(score *float64) float64 {
	if score == nil {
		return 0
	}
	return *score
}

// BroadsheetStats summarises the scored rows.
type BroadsheetStats struct {
	Scored   int     `json:"scored"`
	Average  float64 `json:"average"`
	Highest  float64 `json:"highest"`
	Failures int     `json:"failures"`
}

// ComputeStats recomputes the summary from rows. Unscored rows are ignored.
func ComputeStats(rows []BroadsheetRow) BroadsheetStats {
	var stats BroadsheetStats
	var sum float64
	for _, row := range rows {
		if !row.Scored() {
			continue
		}
		total := valueOf(row.CA) + valueOf(row.Exam)
		stats.Scored++
		sum += total
		if stats.Scored == 1 || total > stats.Highest {
			stats.Highest = total
		}
		if total < models.PassMark {
			stats.Failures++
		}
	}
	if stats.Scored > 0 {
		stats.Average = math.Round(sum/float64(stats.Scored)*100) / 100
	}
	return stats
}

// BroadsheetEntry is one submitted row.
type BroadsheetEntry struct {
	StudentID string
	CA        *float64
	Exam      *float64
}

const (
	scoreFieldPrefix = "student_"
	caFieldSuffix    = "_ca"
	examFieldSuffix  = "_exam"
)

// ParseBroadsheetForm reads student_<id>_ca and student_<id>_exam fields. Rows with an out of range,
// negative or non-numeric value are dropped and rows with both fields empty are skipped. Entries are
// ordered by student id.
func ParseBroadsheetForm(values url.Values) []BroadsheetEntry {
	type rawRow struct {
		ca   string
		exam string
	}
	rows := make(map[string]*rawRow)
	for field, vals := range values {
		if !strings.HasPrefix(field, scoreFieldPrefix) || len(vals) == 0 {
			continue
		}
		rest := strings.TrimPrefix(field, scoreFieldPrefix)
		var id string
		var exam bool
		switch {
		case strings.HasSuffix(rest, examFieldSuffix):
			id, exam = strings.TrimSuffix(rest, examFieldSuffix), true
		case strings.HasSuffix(rest, caFieldSuffix):
			id = strings.TrimSuffix(rest, caFieldSuffix)
		default:
			continue
		}
		if id == "" {
			continue
		}
		row, ok := rows[id]
		if !ok {
			row = &rawRow{}
			rows[id] = row
		}
		if exam {
			row.exam = vals[0]
		} else {
			row.ca = vals[0]
		}
	}

	entries := make([]BroadsheetEntry, 0, len(rows))
	for id, row := range rows {
		ca, ok := strictScore(row.ca, models.MaxCAScore)
		if !ok {
			continue
		}
		exam, ok := strictScore(row.exam, models.MaxExamScore)
		if !ok {
			continue
		}
		if ca == nil && exam == nil {
			continue
		}
		entries = append(entries, BroadsheetEntry{StudentID: id, CA: ca, Exam: exam})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].StudentID < entries[j].StudentID })
	return entries
}

// strictScore parses without clamping; ok is false when the value must not be stored.
func strictScore(raw string, max float64) (*float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || value < 0 || value > max {
		return nil, false
	}
	return &value, true
}

// BroadsheetField is the focused score column.
type BroadsheetField int

const (
	FieldCA BroadsheetField = iota
	FieldExam
)

// Cursor tracks keyboard focus within a broadsheet of Rows rows.
type Cursor struct {
	Row   int
	Field BroadsheetField
	Rows  int
}

// Move returns the cursor after a key press. Enter and ArrowDown go to the next row, ArrowUp to the
// previous one; ArrowLeft and ArrowRight switch between CA and Exam. Focus never leaves the sheet.
func (c Cursor) Move(key string) Cursor {
	switch key {
	case "Enter", "ArrowDown":
		if c.Row < c.Rows-1 {
			c.Row++
		}
	case "ArrowUp":
		if c.Row > 0 {
			c.Row--
		}
	case "ArrowRight":
		c.Field = FieldExam
	case "ArrowLeft":
		c.Field = FieldCA
	}
	return c
}

package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Weekday is a school day stored by name.
type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
)

// StandardDays share the Monday column structure.
var StandardDays = []Weekday{Monday, Tuesday, Wednesday, Thursday}

// SchoolDays lists every weekday in order.
var SchoolDays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}

// ParseWeekday accepts a case-insensitive day name.
func ParseWeekday(raw string) (Weekday, error) {
	for _, d := range SchoolDays {
		if strings.EqualFold(strings.TrimSpace(raw), string(d)) {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown school day %q", raw)
}

// PeriodType distinguishes lesson columns from fixed breaks and assemblies.
type PeriodType string

const (
	PeriodLesson   PeriodType = "lesson"
	PeriodBreak    PeriodType = "break"
	PeriodAssembly PeriodType = "assembly"
)

// Valid reports whether the type is known.
func (t PeriodType) Valid() bool {
	switch t {
	case PeriodLesson, PeriodBreak, PeriodAssembly:
		return true
	}
	return false
}

// DefaultLabel is the label set when a column switches to this type.
func (t PeriodType) DefaultLabel() string {
	switch t {
	case PeriodBreak:
		return "Break"
	case PeriodAssembly:
		return "Assembly"
	}
	return ""
}

// ClockTime is a time of day in minutes since midnight.
type ClockTime int

// LatestClockTime is the last minute a period may end on.
const LatestClockTime ClockTime = 23*60 + 59

// ParseClockTime reads "HH:MM" or "HH:MM:SS".
func ParseClockTime(raw string) (ClockTime, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time %q", raw)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("invalid time %q", raw)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid time %q", raw)
	}
	return ClockTime(hours*60 + minutes), nil
}

// Add returns the time shifted by the given minutes.
func (t ClockTime) Add(minutes int) ClockTime {
	return t + ClockTime(minutes)
}

// String formats the time as HH:MM.
func (t ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// MarshalText implements encoding.TextMarshaler.
func (t ClockTime) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ClockTime) UnmarshalText(text []byte) error {
	parsed, err := ParseClockTime(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TimetablePeriod is one stored row of a class timetable.
type TimetablePeriod struct {
	ID         string     `db:"id" json:"id"`
	ClassID    string     `db:"class_id" json:"class_id"`
	Day        Weekday    `db:"day" json:"day"`
	StartTime  string     `db:"start_time" json:"start_time"`
	EndTime    string     `db:"end_time" json:"end_time"`
	PeriodType PeriodType `db:"period_type" json:"period_type"`
	Label      string     `db:"label" json:"label"`
	SubjectID  *string    `db:"subject_id" json:"subject_id,omitempty"`
}

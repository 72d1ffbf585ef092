package models

import "time"

// AttendanceStatus enumerates register marks.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
	AttendanceExcused AttendanceStatus = "excused"
)

// Valid reports whether the status is known.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceExcused:
		return true
	}
	return false
}

// Attendance is one register mark keyed on (student_id, date).
type Attendance struct {
	ID         string           `db:"id" json:"id"`
	StudentID  string           `db:"student_id" json:"student_id"`
	ClassID    *string          `db:"class_id" json:"class_id,omitempty"`
	Date       time.Time        `db:"date" json:"date"`
	Status     AttendanceStatus `db:"status" json:"status"`
	Note       *string          `db:"note" json:"note,omitempty"`
	RecordedBy *string          `db:"recorded_by" json:"recorded_by,omitempty"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updated_at"`
}

// RegisterEntry is a roster line with the mark for one day, if any.
type RegisterEntry struct {
	RosterEntry
	Status *AttendanceStatus `db:"status" json:"status,omitempty"`
	Note   *string           `db:"note" json:"note,omitempty"`
}

// AttendanceSummary counts marks per status for one student over a date range.
type AttendanceSummary struct {
	StudentID       string  `json:"student_id"`
	From            string  `json:"from"`
	To              string  `json:"to"`
	Present         int     `json:"present"`
	Absent          int     `json:"absent"`
	Late            int     `json:"late"`
	Excused         int     `json:"excused"`
	Total           int     `json:"total"`
	PresencePercent float64 `json:"presence_percent"`
}

// AttendanceStatusCount is a grouped count row.
type AttendanceStatusCount struct {
	Status AttendanceStatus `db:"status"`
	Count  int              `db:"count"`
}

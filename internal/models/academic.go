package models

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Term names used by the school calendar.
const (
	TermFirst  = "First Term"
	TermSecond = "Second Term"
	TermThird  = "Third Term"
)

var sessionPattern = regexp.MustCompile(`^(\d{4})/(\d{4})$`)

// AcademicPeriod scopes fees, attendance and results to a session and term.
type AcademicPeriod struct {
	Session string `db:"current_session" json:"session" form:"session"`
	Term    string `db:"current_term" json:"term" form:"term"`
}

// Validate checks the session format (YYYY/YYYY, consecutive years) and the term name.
func (p AcademicPeriod) Validate() error {
	match := sessionPattern.FindStringSubmatch(p.Session)
	if match == nil {
		return fmt.Errorf("session %q must look like 2024/2025", p.Session)
	}
	start, _ := strconv.Atoi(match[1])
	end, _ := strconv.Atoi(match[2])
	if end != start+1 {
		return fmt.Errorf("session %q must span consecutive years", p.Session)
	}
	switch p.Term {
	case TermFirst, TermSecond, TermThird:
		return nil
	}
	return fmt.Errorf("unknown term %q", p.Term)
}

// String renders "2024/2025 First Term".
func (p AcademicPeriod) String() string {
	return p.Session + " " + p.Term
}

// AcademicSettings is the stored singleton holding the current period.
type AcademicSettings struct {
	ID        int       `db:"id" json:"-"`
	Session   string    `db:"current_session" json:"session"`
	Term      string    `db:"current_term" json:"term"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Period returns the settings as an AcademicPeriod.
func (s AcademicSettings) Period() AcademicPeriod {
	return AcademicPeriod{Session: s.Session, Term: s.Term}
}

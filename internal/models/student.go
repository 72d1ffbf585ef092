package models

import "time"

// Department scopes senior secondary subjects and students.
type Department string

const (
	DepartmentGeneral    Department = "General"
	DepartmentScience    Department = "Science"
	DepartmentArts       Department = "Arts"
	DepartmentCommercial Department = "Commercial"
)

// Valid reports whether the department is known.
func (d Department) Valid() bool {
	switch d {
	case DepartmentGeneral, DepartmentScience, DepartmentArts, DepartmentCommercial:
		return true
	}
	return false
}

// Student is the academic record linked one-to-one with a profile.
type Student struct {
	ID              string     `db:"id" json:"id"`
	ProfileID       string     `db:"profile_id" json:"profile_id"`
	AdmissionNumber string     `db:"admission_number" json:"admission_number"`
	ClassID         *string    `db:"class_id" json:"class_id,omitempty"`
	Department      Department `db:"department" json:"department"`
	Gender          *string    `db:"gender" json:"gender,omitempty"`
	DateOfBirth     *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	GuardianName    *string    `db:"guardian_name" json:"guardian_name,omitempty"`
	GuardianPhone   *string    `db:"guardian_phone" json:"guardian_phone,omitempty"`
	GuardianEmail   *string    `db:"guardian_email" json:"guardian_email,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// StudentDetail adds profile and class information for listings.
type StudentDetail struct {
	Student
	FullName  string  `db:"full_name" json:"full_name"`
	Email     string  `db:"email" json:"email"`
	ClassName *string `db:"class_name" json:"class_name,omitempty"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search     string
	ClassID    string
	Department Department
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// RosterEntry is the minimal student view used by registers and broadsheets.
type RosterEntry struct {
	StudentID       string     `db:"student_id" json:"student_id"`
	AdmissionNumber string     `db:"admission_number" json:"admission_number"`
	FullName        string     `db:"full_name" json:"full_name"`
	Department      Department `db:"department" json:"department"`
}

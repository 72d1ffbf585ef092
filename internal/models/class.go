package models

import "time"

// ClassCategory separates junior and senior secondary classes.
type ClassCategory string

const (
	ClassCategoryJunior ClassCategory = "Junior"
	ClassCategorySenior ClassCategory = "Senior"
)

// Class represents a teaching group.
type Class struct {
	ID        string        `db:"id" json:"id"`
	Name      string        `db:"name" json:"name"`
	Section   string        `db:"section" json:"section"`
	Category  ClassCategory `db:"category" json:"category"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// DisplayName joins name and section, e.g. "JSS 1 A".
func (c Class) DisplayName() string {
	if c.Section == "" {
		return c.Name
	}
	return c.Name + " " + c.Section
}

// ClassTeacher is a row of the class_teachers junction.
type ClassTeacher struct {
	ClassID     string `db:"class_id" json:"class_id"`
	TeacherID   string `db:"teacher_id" json:"teacher_id"`
	TeacherName string `db:"teacher_name" json:"teacher_name"`
}

// ClassDetail carries a class with its assigned teachers.
type ClassDetail struct {
	Class
	Teachers []ClassTeacher `json:"teachers"`
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	Category  ClassCategory
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

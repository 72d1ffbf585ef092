package models

import (
	"strings"
	"time"
)

// SubjectCategory restricts a subject variant to a class category.
type SubjectCategory string

const (
	SubjectCategoryAll    SubjectCategory = "All"
	SubjectCategoryJunior SubjectCategory = "Junior"
	SubjectCategorySenior SubjectCategory = "Senior"
)

// Valid reports whether the category is known.
func (c SubjectCategory) Valid() bool {
	switch c {
	case SubjectCategoryAll, SubjectCategoryJunior, SubjectCategorySenior:
		return true
	}
	return false
}

// Subject is one curriculum variant. Several rows may share name and code.
type Subject struct {
	ID               string          `db:"id" json:"id"`
	Name             string          `db:"name" json:"name"`
	Code             string          `db:"code" json:"code"`
	Category         SubjectCategory `db:"category" json:"category"`
	DepartmentTarget Department      `db:"department_target" json:"department_target"`
	IsCompulsory     bool            `db:"is_compulsory" json:"is_compulsory"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// RestrictsByDepartment reports whether result entry must only list students of the target department.
func (s Subject) RestrictsByDepartment() bool {
	return s.Category == SubjectCategorySenior && s.DepartmentTarget != "" && s.DepartmentTarget != DepartmentGeneral
}

// GroupKey returns the normalised key shared by all variants of the subject.
func (s Subject) GroupKey() SubjectGroupKey {
	return NewSubjectGroupKey(s.Name, s.Code)
}

// SubjectGroupKey identifies the variants of one subject. Fields are trimmed and case-folded.
type SubjectGroupKey struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// NewSubjectGroupKey normalises name and code into a key.
func NewSubjectGroupKey(name, code string) SubjectGroupKey {
	return SubjectGroupKey{
		Name: strings.ToLower(strings.Join(strings.Fields(name), " ")),
		Code: strings.ToUpper(strings.TrimSpace(code)),
	}
}

// SubjectGroup collects the variants sharing a key.
type SubjectGroup struct {
	Key      SubjectGroupKey `json:"key"`
	Name     string          `json:"name"`
	Code     string          `json:"code"`
	Variants []Subject       `json:"variants"`
}

// SubjectFilter narrows subject listings.
type SubjectFilter struct {
	Category   SubjectCategory
	Department Department
	Search     string
}

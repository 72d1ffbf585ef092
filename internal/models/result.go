package models

import "time"

// Score bounds for the two result components.
const (
	MaxCAScore   = 40.0
	MaxExamScore = 60.0
	PassMark     = 40.0
)

// Result stores the CA and exam components for one student, subject and period.
// Totals and grades are derived at read time.
type Result struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	Session   string    `db:"session" json:"session"`
	Term      string    `db:"term" json:"term"`
	CAScore   *float64  `db:"ca_score" json:"ca_score,omitempty"`
	ExamScore *float64  `db:"exam_score" json:"exam_score,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectResult joins a stored result with its subject for report cards.
type SubjectResult struct {
	Result
	SubjectName string `db:"subject_name" json:"subject_name"`
	SubjectCode string `db:"subject_code" json:"subject_code"`
}

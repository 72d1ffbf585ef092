package models

import "time"

// FeeStructure is the expected amount for a class in one session and term.
type FeeStructure struct {
	ID          string    `db:"id" json:"id"`
	ClassID     string    `db:"class_id" json:"class_id"`
	Session     string    `db:"session" json:"session"`
	Term        string    `db:"term" json:"term"`
	Amount      float64   `db:"amount" json:"amount"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Payment is one fee payment transaction made for a student.
type Payment struct {
	ID         string    `db:"id" json:"id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	Session    string    `db:"session" json:"session"`
	Term       string    `db:"term" json:"term"`
	Amount     float64   `db:"amount" json:"amount"`
	Method     string    `db:"method" json:"method"`
	Reference  *string   `db:"reference" json:"reference,omitempty"`
	PaidAt     time.Time `db:"paid_at" json:"paid_at"`
	RecordedBy *string   `db:"recorded_by" json:"recorded_by,omitempty"`
}

// Balance is the expected-minus-paid position of a student for a period.
type Balance struct {
	StudentID string  `json:"student_id"`
	Session   string  `json:"session"`
	Term      string  `json:"term"`
	Expected  float64 `json:"expected"`
	Paid      float64 `json:"paid"`
	Balance   float64 `json:"balance"`
	Cleared   bool    `json:"cleared"`
}

// StudentPaymentTotal aggregates payments per student.
type StudentPaymentTotal struct {
	StudentID string  `db:"student_id"`
	Paid      float64 `db:"paid"`
}

// StatementLine is one student's position in a class statement.
type StatementLine struct {
	StudentID       string  `json:"student_id"`
	AdmissionNumber string  `json:"admission_number"`
	FullName        string  `json:"full_name"`
	Expected        float64 `json:"expected"`
	Paid            float64 `json:"paid"`
	Balance         float64 `json:"balance"`
	Cleared         bool    `json:"cleared"`
}

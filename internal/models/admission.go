package models

import "time"

// ApplicationStatus tracks the review state of an admission application.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

// AdmissionApplication is a submitted request for a place.
type AdmissionApplication struct {
	ID              string            `db:"id" json:"id"`
	FirstName       string            `db:"first_name" json:"first_name"`
	LastName        string            `db:"last_name" json:"last_name"`
	Email           *string           `db:"email" json:"email,omitempty"`
	Gender          *string           `db:"gender" json:"gender,omitempty"`
	DateOfBirth     *time.Time        `db:"date_of_birth" json:"date_of_birth,omitempty"`
	DesiredClassID  *string           `db:"desired_class_id" json:"desired_class_id,omitempty"`
	Department      Department        `db:"department" json:"department"`
	GuardianName    *string           `db:"guardian_name" json:"guardian_name,omitempty"`
	GuardianPhone   *string           `db:"guardian_phone" json:"guardian_phone,omitempty"`
	GuardianEmail   *string           `db:"guardian_email" json:"guardian_email,omitempty"`
	PassportURL     *string           `db:"passport_url" json:"passport_url,omitempty"`
	Status          ApplicationStatus `db:"status" json:"status"`
	AdmissionNumber *string           `db:"admission_number" json:"admission_number,omitempty"`
	StudentID       *string           `db:"student_id" json:"student_id,omitempty"`
	ReviewNote      *string           `db:"review_note" json:"review_note,omitempty"`
	ReviewedBy      *string           `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time        `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
}

// FullName joins first and last name.
func (a AdmissionApplication) FullName() string {
	if a.LastName == "" {
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

// ApplicationFilter narrows application listings.
type ApplicationFilter struct {
	Status   ApplicationStatus
	Search   string
	Page     int
	PageSize int
}

package models

import "time"

// Profile is the personal record attached one-to-one to a login account.
type Profile struct {
	ID             string    `db:"id" json:"id"`
	FullName       string    `db:"full_name" json:"full_name"`
	Role           UserRole  `db:"role" json:"role"`
	Phone          *string   `db:"phone" json:"phone,omitempty"`
	Address        *string   `db:"address" json:"address,omitempty"`
	Specialization *string   `db:"specialization" json:"specialization,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// ProfileWithEmail joins the profile with its login email.
type ProfileWithEmail struct {
	Profile
	Email string `db:"email" json:"email"`
}

// ProfileFilter narrows profile listings.
type ProfileFilter struct {
	Role     UserRole
	Search   string
	Page     int
	PageSize int
}

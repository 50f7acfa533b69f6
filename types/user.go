package types

import "time"

// User represents an account in the system.
// It contains identity, contact, and audit metadata.
type User struct {
	// ID is the opaque unique identifier of the user, generated
	// server-side at registration.
	ID string `json:"id" db:"id"`

	// Email is the user's email address. Optional, but at least one of
	// Email or Phone must be present at registration.
	Email string `json:"email,omitempty" db:"email"`

	// Phone is the user's phone number in E.164 form. Optional, but at
	// least one of Email or Phone must be present at registration.
	Phone string `json:"phone,omitempty" db:"phone"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// Following lists the ids of the users this user follows, in the
	// order the follows were created. Contains no duplicates and never
	// contains the user's own id.
	Following []string `json:"following"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

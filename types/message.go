package types

import "time"

// Message is a short post authored by a user.
type Message struct {
	// ID is the opaque unique identifier of the message.
	ID string `json:"id" db:"id"`

	// Body is the free-text content of the message.
	Body string `json:"message" db:"body"`

	// UserID references the authoring user. Immutable after creation;
	// editing or deleting a message never changes authorship.
	UserID string `json:"user" db:"user_id"`

	// CreatedAt is the timestamp when the message was posted.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent edit.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

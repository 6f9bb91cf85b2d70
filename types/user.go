package types

import "time"

// User represents an account in the system.
// It contains identity, activation state, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int64 `json:"id" db:"id"`

	// FirstName and LastName make up the user's full name.
	FirstName string `json:"firstName" db:"first_name"`
	LastName  string `json:"lastName" db:"last_name"`

	// Email is the user's login and the address account mail goes to.
	Email string `json:"email" db:"email"`

	// Description is free-form profile text.
	Description string `json:"description" db:"description"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// EmailCode is the pending activation code, nil once confirmed.
	// This field is never exposed in API responses.
	EmailCode *string `json:"-" db:"email_code"`

	// Active becomes true exactly once, when the email code is confirmed.
	Active bool `json:"active" db:"active"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

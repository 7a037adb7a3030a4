package domain

import "time"

type User struct {
	ID           int32     `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	FullName     string    `json:"full_name" db:"full_name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	IsAdmin      bool      `json:"is_admin" db:"is_admin"`
	CreatedOn    time.Time `json:"created_on" db:"created_on"`
	UpdatedOn    time.Time `json:"updated_on" db:"updated_on"`
}

type UserFilter struct {
	ActiveOnly bool
	Email      string
}

// Caller is the identity supplied by the session layer. It is trusted as-is.
type Caller struct {
	UserID  int32
	IsAdmin bool
}

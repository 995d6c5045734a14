package user

import (
	"time"

	"github.com/google/uuid"
)

// Role represents user role in the system
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// User represents an account holder. Authentication lives with the external
// identity provider; this table mirrors what the engine needs to authorize
// own-account operations and address notifications.
type User struct {
	ID            uuid.UUID `db:"id"`
	Email         string    `db:"email"`
	DisplayName   string    `db:"display_name"`
	Role          Role      `db:"role"`
	EmailVerified bool      `db:"email_verified"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// IsAdmin returns true if user is an admin
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

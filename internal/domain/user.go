package domain

import "time"

// UserRole separates the single admin operator from regular reporters.
type UserRole string

const (
	RoleUser  UserRole = "USER"
	RoleAdmin UserRole = "ADMIN"
)

// User is the domain model for registered reporters and the admin operator.
type User struct {
	ID            string
	FirstName     string
	LastName      string
	NationalID    string
	Username      string
	Email         string
	Phone         string
	PasswordHash  string
	Role          UserRole
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// FullName joins first and last name for display purposes.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

package domain

import "time"

// PasswordResetToken is a one-time credential for the reset-by-email flow.
type PasswordResetToken struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

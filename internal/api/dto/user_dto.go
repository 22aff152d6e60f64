package dto

import (
	"time"

	"github.com/spec-kit/incident-report-service/internal/domain"
)

// SignUpRequest is the canonical signup payload. Field aliases from older
// clients are not accepted.
type SignUpRequest struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	NationalID      string `json:"nationalId"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// LoginRequest payload. Username may also carry an email address.
type LoginRequest struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	EmailVerified *bool  `json:"emailVerified,omitempty"`
}

// ChangePasswordRequest payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// DeleteAccountRequest payload.
type DeleteAccountRequest struct {
	Password string `json:"password"`
}

// PasswordResetRequest payload.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// PasswordResetConfirmRequest payload.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// EmailVerifiedRequest marks a user's email as verified (one-way sync).
type EmailVerifiedRequest struct {
	Email string `json:"email"`
}

// UserResponse never carries the password hash.
type UserResponse struct {
	ID            string    `json:"id"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	NationalID    string    `json:"nationalId"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	Role          string    `json:"role"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// NewUserResponse maps the domain user to its public shape.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:            user.ID,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		NationalID:    user.NationalID,
		Username:      user.Username,
		Email:         user.Email,
		Phone:         user.Phone,
		Role:          string(user.Role),
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt,
		UpdatedAt:     user.UpdatedAt,
	}
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/incident-report-service/internal/auth"
	"github.com/spec-kit/incident-report-service/internal/config"
	"github.com/spec-kit/incident-report-service/internal/domain"
	"github.com/spec-kit/incident-report-service/internal/repository"
	apperrors "github.com/spec-kit/incident-report-service/pkg/util"
)

// AuthService coordinates signup, login and account lifecycle flows.
type AuthService struct {
	users      repository.UserRepository
	resets     repository.PasswordResetRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	resetTTL   time.Duration
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	PasswordResetRepo repository.PasswordResetRepository
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		resets:     deps.PasswordResetRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
		resetTTL:   time.Duration(cfg.Auth.PasswordResetTTLMinutes) * time.Minute,
	}
}

// SignUpInput is the canonical signup schema. Legacy field aliases are not
// accepted; the boundary validates exactly one shape.
type SignUpInput struct {
	FirstName       string
	LastName        string
	NationalID      string
	Username        string
	Email           string
	Phone           string
	Password        string
	ConfirmPassword string
}

// SignUp creates a new reporter account. Uniqueness of username and email is
// enforced by the store's constraints, atomically with creation.
func (s *AuthService) SignUp(ctx context.Context, input SignUpInput) (*domain.User, string, time.Time, error) {
	if input.FirstName == "" || input.LastName == "" || input.NationalID == "" ||
		input.Username == "" || input.Email == "" || input.Phone == "" || input.Password == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("all fields are required", nil)
	}
	if input.Password != input.ConfirmPassword {
		return nil, "", time.Time{}, apperrors.NewValidationError("passwords do not match", nil)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	user := &domain.User{
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		NationalID:   strings.TrimSpace(input.NationalID),
		Username:     strings.TrimSpace(input.Username),
		Email:        normalizeEmail(input.Email),
		Phone:        strings.TrimSpace(input.Phone),
		PasswordHash: hash,
		Role:         domain.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if field, ok := repository.UniqueViolationField(err); ok {
			return nil, "", time.Time{}, apperrors.NewDuplicateField(field)
		}
		return nil, "", time.Time{}, err
	}

	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// SignIn authenticates by username or email. Failures are deliberately
// indistinguishable: callers never learn which factor was wrong.
// emailVerified, when true, is synced one-way onto the local record
// (external auth is treated as a capability, never a second source of truth).
func (s *AuthService) SignIn(ctx context.Context, identifier, password string, emailVerified *bool) (*domain.User, string, time.Time, error) {
	if identifier == "" || password == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("username and password are required", nil)
	}

	user, err := s.lookupByIdentifier(ctx, identifier)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, "", time.Time{}, apperrors.NewInvalidCredentials()
		}
		return nil, "", time.Time{}, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewInvalidCredentials()
	}

	if emailVerified != nil && *emailVerified && !user.EmailVerified {
		// Best effort: a failed sync must never fail the login.
		if err := s.users.SetEmailVerified(ctx, user.Email, true); err == nil {
			user.EmailVerified = true
		}
	}

	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// ChangePassword verifies the current password and requires the new one to
// differ.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return apperrors.NewValidationError("current and new password are required", nil)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("user", nil)
		}
		return err
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewValidationError("current password is incorrect", nil)
	}
	if err := auth.ComparePassword(user.PasswordHash, newPassword); err == nil {
		return apperrors.NewValidationError("new password must be different", nil)
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return s.users.Update(ctx, user)
}

// DeleteAccount removes the user after a password re-check. Reports are not
// cascaded; they remain addressable by track number.
func (s *AuthService) DeleteAccount(ctx context.Context, userID, password string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("user", nil)
		}
		return err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return apperrors.NewValidationError("password is incorrect", nil)
	}
	return s.users.Delete(ctx, userID)
}

// RequestPasswordReset persists a one-time reset token for the email.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*domain.PasswordResetToken, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, err
	}

	token := &domain.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// ConfirmPasswordReset validates the reset token and updates the password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	if newPassword == "" {
		return apperrors.NewValidationError("new password is required", nil)
	}
	token, err := s.resets.GetByToken(ctx, tokenStr)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("reset token", nil)
		}
		return err
	}
	if token.UsedAt != nil || time.Now().After(token.ExpiresAt) {
		return apperrors.NewValidationError("reset token expired or already used", nil)
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}
	return s.resets.MarkUsed(ctx, token.ID)
}

// MarkEmailVerified is the one-way verification sync endpoint body.
func (s *AuthService) MarkEmailVerified(ctx context.Context, email string) error {
	if err := s.users.SetEmailVerified(ctx, normalizeEmail(email), true); err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("user", nil)
		}
		return err
	}
	return nil
}

// GetUser loads a user by ID.
func (s *AuthService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, err
	}
	return user, nil
}

// EnsureAdmin creates the admin operator account on first boot when
// credentials are configured.
func (s *AuthService) EnsureAdmin(ctx context.Context, cfg config.AuthConfig) error {
	if cfg.AdminPassword == "" {
		return nil
	}
	if _, err := s.users.GetByUsername(ctx, cfg.AdminUsername); err == nil {
		return nil
	} else if err != pgx.ErrNoRows {
		return err
	}

	hash, err := auth.HashPassword(cfg.AdminPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	admin := &domain.User{
		FirstName:    "Admin",
		LastName:     "Operator",
		NationalID:   "0",
		Username:     cfg.AdminUsername,
		Email:        normalizeEmail(cfg.AdminEmail),
		Phone:        "0",
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
	}
	return s.users.Create(ctx, admin)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) lookupByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		return s.users.GetByEmail(ctx, strings.ToLower(identifier))
	}
	user, err := s.users.GetByUsername(ctx, identifier)
	if err == pgx.ErrNoRows {
		return s.users.GetByEmail(ctx, strings.ToLower(identifier))
	}
	return user, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

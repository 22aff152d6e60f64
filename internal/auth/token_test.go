package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/incident-report-service/internal/domain"
)

func testUser() *domain.User {
	return &domain.User{
		ID:       "user-1",
		Username: "jamie",
		Role:     domain.RoleUser,
	}
}

func TestGenerateAndParseToken(t *testing.T) {
	tm := NewTokenManager("test-secret", 15)

	token, exp, err := tm.GenerateToken(testUser())
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), exp, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.SubjectID)
	assert.Equal(t, "jamie", claims.Username)
	assert.Equal(t, domain.RoleUser, claims.Role)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("secret-a", 15).GenerateToken(testUser())
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b", 15).ParseToken(token)
	require.Error(t, err)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	tm := NewTokenManager("test-secret", 15)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := tm.ParseToken(token)
		require.Error(t, err, "token %q", token)
	}
}

func TestTokenCarriesAdminRole(t *testing.T) {
	tm := NewTokenManager("test-secret", 15)
	admin := &domain.User{ID: "admin-1", Username: "operator", Role: domain.RoleAdmin}

	token, _, err := tm.GenerateToken(admin)
	require.NoError(t, err)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
}

func TestTokenManagerDefaultsTTL(t *testing.T) {
	tm := NewTokenManager("test-secret", 0)

	_, exp, err := tm.GenerateToken(testUser())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)
}

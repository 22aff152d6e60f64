package util

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorConstructorsCarryCodeAndStatus(t *testing.T) {
	cases := []struct {
		err    error
		code   string
		status int
	}{
		{NewValidationError("bad input", nil), "VALIDATION_FAILED", http.StatusBadRequest},
		{NewDuplicateField("email"), "DUPLICATE_FIELD", http.StatusConflict},
		{NewInvalidCredentials(), "INVALID_CREDENTIALS", http.StatusUnauthorized},
		{NewNotFound("report", nil), "NOT_FOUND", http.StatusNotFound},
		{NewUnauthorized("no token"), "UNAUTHORIZED", http.StatusUnauthorized},
		{NewForbidden("admin only"), "FORBIDDEN", http.StatusForbidden},
		{NewStorageUnavailable(errors.New("down")), "STORAGE_UNAVAILABLE", http.StatusServiceUnavailable},
		{NewTimeout(errors.New("slow")), "TIMEOUT", http.StatusGatewayTimeout},
		{NewInternalError(errors.New("boom")), "INTERNAL_ERROR", http.StatusInternalServerError},
	}

	for _, tc := range cases {
		var domainErr *DomainError
		require.ErrorAs(t, tc.err, &domainErr)
		assert.Equal(t, tc.code, domainErr.Code)
		assert.Equal(t, tc.status, domainErr.HTTPStatus)
	}
}

func TestDuplicateFieldNamesTheField(t *testing.T) {
	var domainErr *DomainError
	require.ErrorAs(t, NewDuplicateField("username"), &domainErr)
	assert.Equal(t, "username", domainErr.Details["field"])
	assert.Contains(t, domainErr.Message, "username")
}

func TestInvalidCredentialsStaysGeneric(t *testing.T) {
	var domainErr *DomainError
	require.ErrorAs(t, NewInvalidCredentials(), &domainErr)
	assert.Equal(t, "invalid credentials", domainErr.Message)
	assert.Empty(t, domainErr.Details)
}

func TestToDomainErrorPassthrough(t *testing.T) {
	original := NewValidationError("bad", nil)
	converted := ToDomainError(original)
	assert.Equal(t, "VALIDATION_FAILED", converted.Code)

	wrapped := fmt.Errorf("handler: %w", original)
	converted = ToDomainError(wrapped)
	assert.Equal(t, "VALIDATION_FAILED", converted.Code)
}

func TestToDomainErrorMapsDeadlineToTimeout(t *testing.T) {
	converted := ToDomainError(fmt.Errorf("query: %w", context.DeadlineExceeded))
	require.NotNil(t, converted)
	assert.Equal(t, "TIMEOUT", converted.Code)
	assert.Equal(t, http.StatusGatewayTimeout, converted.HTTPStatus)
}

func TestToDomainErrorMapsDialFailureToStorageUnavailable(t *testing.T) {
	dialErr := &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}

	converted := ToDomainError(dialErr)
	require.NotNil(t, converted)
	assert.Equal(t, "STORAGE_UNAVAILABLE", converted.Code)
	assert.Equal(t, http.StatusServiceUnavailable, converted.HTTPStatus)

	converted = ToDomainError(fmt.Errorf("connect: %w", dialErr))
	require.NotNil(t, converted)
	assert.Equal(t, "STORAGE_UNAVAILABLE", converted.Code)
}

func TestToDomainErrorMapsPgconnConnectError(t *testing.T) {
	connectErr := &pgconn.ConnectError{Config: &pgconn.Config{Host: "db", User: "app", Database: "reports"}}
	converted := ToDomainError(fmt.Errorf("acquire: %w", connectErr))
	require.NotNil(t, converted)
	assert.Equal(t, "STORAGE_UNAVAILABLE", converted.Code)
	assert.Equal(t, http.StatusServiceUnavailable, converted.HTTPStatus)
}

func TestToDomainErrorMapsNetTimeout(t *testing.T) {
	converted := ToDomainError(&net.DNSError{Err: "lookup timed out", IsTimeout: true})
	require.NotNil(t, converted)
	assert.Equal(t, "TIMEOUT", converted.Code)
}

func TestToDomainErrorHidesUnknownDetail(t *testing.T) {
	converted := ToDomainError(errors.New("pq: connection reset"))
	require.NotNil(t, converted)
	assert.Equal(t, "INTERNAL_ERROR", converted.Code)
	assert.NotContains(t, converted.Message, "pq:")
}

func TestToDomainErrorNil(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := NewStorageUnavailable(cause)
	assert.ErrorIs(t, err, cause)
}

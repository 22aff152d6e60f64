package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// constraint name -> user-facing field name for uniqueness violations.
var uniqueConstraintFields = map[string]string{
	"users_username_key":              "username",
	"users_email_key":                 "email",
	"reports_track_number_key":        "trackNumber",
	"password_reset_tokens_token_key": "token",
}

// UniqueViolationField returns the field behind a unique-constraint violation.
// The store's constraints are authoritative for uniqueness checks; services
// use this to name the duplicate field or to re-roll generated keys.
func UniqueViolationField(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" {
		return "", false
	}
	if field, ok := uniqueConstraintFields[pgErr.ConstraintName]; ok {
		return field, true
	}
	return pgErr.ConstraintName, true
}

package auth

import (
	"context"
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeEmptyPassword      = "EMPTY_PASSWORD"
	TextCodeUserExists         = "USER_EXISTS"
	TextCodeUserNotFound       = "USER_NOT_FOUND"
	TextCodeUnknownRole        = "UNKNOWN_ROLE"
	TextCodeSessionMalformed   = "SESSION_MALFORMED"
	TextCodeSessionExpired     = "SESSION_EXPIRED"
	TextCodeSessionIntegrity   = "SESSION_INTEGRITY"
	TextCodeStoreTimeout       = "STORE_TIMEOUT"
	TextCodeNoRowReturned      = "NO_ROW_RETURNED"
	TextCodeAdminKeyRejected   = "ADMIN_KEY_REJECTED"
	TextCodeNoRolesAssigned    = "NO_ROLES_ASSIGNED"
)

// ErrMismatchedHashAndPassword is returned for any failed credential check
var ErrMismatchedHashAndPassword = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = goerrors.New("password can not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrUserExists is returned when the email or username is already registered
var ErrUserExists = goerrors.New("email or username already registered", goerrors.CategoryConflict).
	WithTextCode(TextCodeUserExists).
	WithCode(goerrors.CodeConflict)

// ErrUserNotFound is returned when no active user matches
var ErrUserNotFound = goerrors.New("user not found or inactive", goerrors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrUnknownRole is returned when a role name has no row in the roles table
var ErrUnknownRole = goerrors.New("role is not defined", goerrors.CategoryValidation).
	WithTextCode(TextCodeUnknownRole).
	WithCode(goerrors.CodeBadRequest)

// ErrSessionMalformed is returned when a cookie payload can not be decoded
var ErrSessionMalformed = goerrors.New("session payload is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrSessionExpired is returned when a session is read at or after its expiry
var ErrSessionExpired = goerrors.New("session has expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrSessionIntegrity is returned when a session record breaks its invariants
var ErrSessionIntegrity = goerrors.New("session record is inconsistent", goerrors.CategoryInternal).
	WithTextCode(TextCodeSessionIntegrity).
	WithCode(goerrors.CodeInternal)

// ErrStoreTimeout is returned when a store call exceeds its deadline
var ErrStoreTimeout = goerrors.New("store request timed out", goerrors.CategoryOperation).
	WithTextCode(TextCodeStoreTimeout).
	WithCode(goerrors.CodeInternal)

// ErrNoRowReturned is returned when an insert reports no affected row
var ErrNoRowReturned = goerrors.New("insert did not return a row", goerrors.CategoryInternal).
	WithTextCode(TextCodeNoRowReturned).
	WithCode(goerrors.CodeInternal)

// ErrAdminKeyRejected is returned when admin registration is disabled or the key does not match
var ErrAdminKeyRejected = goerrors.New("admin registration key rejected", goerrors.CategoryAuthz).
	WithTextCode(TextCodeAdminKeyRejected).
	WithCode(goerrors.CodeForbidden)

// ErrNoRolesAssigned is returned when role sync finds no stored role for the
// session owner. The session is destroyed before it is returned.
var ErrNoRolesAssigned = goerrors.New("user has no roles assigned", goerrors.CategoryAuthz).
	WithTextCode(TextCodeNoRolesAssigned).
	WithCode(goerrors.CodeForbidden)

// HasTextCode reports whether the first rich error in err's chain carries code
func HasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == code
	}
	return false
}

// IsTimeout reports whether err came from an exceeded deadline
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.DeadlineExceeded) || HasTextCode(err, TextCodeStoreTimeout)
}

// IsUniqueViolation reports whether err is a unique constraint failure
// from postgres or sqlite
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		if strings.Contains(e.Error(), "UNIQUE constraint failed") {
			return true
		}
	}
	return false
}

func withMetadata(base *goerrors.Error, meta map[string]any) *goerrors.Error {
	clone := base.Clone()
	if len(meta) > 0 {
		clone.WithMetadata(meta)
	}
	return clone
}

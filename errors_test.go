package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestHasTextCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     string
		expected bool
	}{
		{"nil error", nil, TextCodeUserExists, false},
		{"sentinel", ErrUserExists, TextCodeUserExists, true},
		{"other code", ErrUserExists, TextCodeUserNotFound, false},
		{"wrapped with fmt", fmt.Errorf("signup: %w", ErrUnknownRole), TextCodeUnknownRole, true},
		{"plain error", errors.New("boom"), TextCodeUserExists, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HasTextCode(tt.err, tt.code))
		})
	}
}

func TestWithMetadataLeavesSentinelUntouched(t *testing.T) {
	err := withMetadata(ErrUnknownRole, map[string]any{"role": "wizard"})

	assert.Equal(t, "wizard", err.Metadata["role"])
	assert.Equal(t, TextCodeUnknownRole, err.TextCode)
	assert.NotContains(t, ErrUnknownRole.Metadata, "role")
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(context.DeadlineExceeded))
	assert.True(t, IsTimeout(fmt.Errorf("query: %w", context.DeadlineExceeded)))
	assert.True(t, IsTimeout(ErrStoreTimeout))
	assert.False(t, IsTimeout(context.Canceled))
	assert.False(t, IsTimeout(nil))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, IsUniqueViolation(errors.New("constraint failed: UNIQUE constraint failed: users.email (2067)")))
	assert.False(t, IsUniqueViolation(errors.New("no such table: users")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestSentinelCategories(t *testing.T) {
	assert.Equal(t, goerrors.CategoryConflict, ErrUserExists.Category)
	assert.Equal(t, goerrors.CategoryNotFound, ErrUserNotFound.Category)
	assert.Equal(t, goerrors.CategoryAuth, ErrSessionExpired.Category)
	assert.Equal(t, goerrors.CategoryAuthz, ErrAdminKeyRejected.Category)
	assert.Equal(t, goerrors.CodeUnauthorized, ErrMismatchedHashAndPassword.Code)
}

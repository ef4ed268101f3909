package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionContext(t *testing.T) {
	tests := []struct {
		name     string
		setupCtx func() context.Context
		wantOK   bool
	}{
		{
			name: "should return session when present in context",
			setupCtx: func() context.Context {
				return WithSession(context.Background(), &Session{UserID: "user123"})
			},
			wantOK: true,
		},
		{
			name:     "should report missing session",
			setupCtx: context.Background,
			wantOK:   false,
		},
		{
			name: "should ignore a nil session",
			setupCtx: func() context.Context {
				return WithSession(context.Background(), nil)
			},
			wantOK: false,
		},
		{
			name: "should ignore values of a different type under a similar key",
			setupCtx: func() context.Context {
				return context.WithValue(context.Background(), contextKey{"session"}, &Session{UserID: "x"})
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, ok := SessionFromContext(tt.setupCtx())
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, "user123", session.UserID)
			}
		})
	}
}

func TestHasAnyRole(t *testing.T) {
	assert.True(t, hasAnyRole([]string{"student"}))
	assert.True(t, hasAnyRole([]string{"student", "admin"}, "admin"))
	assert.False(t, hasAnyRole(nil, "admin"))
	assert.False(t, hasAnyRole([]string{"student"}, "instructor", "admin"))
}

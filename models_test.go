package auth

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicUserOmitsPassword(t *testing.T) {
	u := &User{
		ID:           uuid.New(),
		Username:     "alice",
		Email:        "alice@example.com",
		Name:         "Alice",
		PasswordHash: "$2a$12$secret",
		IsActive:     true,
		CreatedAt:    time.Now(),
	}

	raw, err := json.Marshal(NewPublicUser(u))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")
	assert.Contains(t, string(raw), `"roles":[]`)

	raw, err = json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")
}

func TestNewPublicUserWithRolesDefaults(t *testing.T) {
	u := &User{ID: uuid.New(), Email: "alice@example.com"}

	view := newPublicUserWithRoles(&UserWithRoles{User: u})
	assert.Equal(t, []string{}, view.Roles)
	assert.Equal(t, RoleStudent, view.PrimaryRole)

	view = newPublicUserWithRoles(&UserWithRoles{
		User:        u,
		Roles:       []string{RoleStudent, RoleInstructor},
		PrimaryRole: RoleInstructor,
	})
	assert.Equal(t, []string{RoleStudent, RoleInstructor}, view.Roles)
	assert.Equal(t, RoleInstructor, view.PrimaryRole)

	assert.Nil(t, newPublicUserWithRoles(nil))
	assert.Nil(t, NewPublicUser(nil))
}

func TestNewUserProfileIsEmpty(t *testing.T) {
	now := time.Now()
	p := NewUserProfile(uuid.New(), now)

	assert.NotNil(t, p.Skills)
	assert.Empty(t, p.Skills)
	assert.NotNil(t, p.Achievements)
	assert.Equal(t, now, p.CreatedAt)
	assert.Equal(t, now, p.UpdatedAt)
}

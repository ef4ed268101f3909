package auth_test

import (
	"context"
	"testing"

	auth "github.com/axioquan/go-auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRoleSyncFixture(t *testing.T) (*actionsFixture, *auth.RoleSync, *auth.SessionManager) {
	t.Helper()
	f := newActionsFixture(t)
	manager := newTestSessionManager(f.cfg, f.clock)
	sync := auth.NewRoleSync(f.repo, manager).
		WithLogger(quietLogger{}).
		WithActivitySink(f.sink)
	return f, sync, manager
}

func TestRoleSyncUpdatesOwnSession(t *testing.T) {
	f, sync, manager := newRoleSyncFixture(t)
	ctx := context.Background()
	alice := seedUser(t, f.repo, "alice", "alice@example.com", auth.RoleStudent)
	require.NoError(t, f.repo.Roles().AssignRole(ctx, alice.User.ID, auth.RoleTeachingAssistant, false))

	jar := newMemoryJar()
	_, err := manager.Create(jar, auth.SessionData{
		UserID:      alice.User.ID.String(),
		Email:       "alice@example.com",
		Name:        "alice",
		Roles:       []string{auth.RoleStudent},
		PrimaryRole: auth.RoleStudent,
	})
	require.NoError(t, err)

	updated, err := sync.UpdateSession(ctx, jar, alice.User.ID.String())
	require.NoError(t, err)
	assert.True(t, updated)

	session, ok := manager.Get(jar)
	require.True(t, ok)
	assert.Equal(t, []string{auth.RoleStudent, auth.RoleTeachingAssistant}, session.Roles)
	assert.Equal(t, auth.RoleStudent, session.PrimaryRole)
	assert.Equal(t, "alice@example.com", session.Email)
	assert.Contains(t, f.sink.types(), auth.ActivityEventSessionRolesSynced)
}

func TestRoleSyncNeverTouchesAnotherUsersSession(t *testing.T) {
	f, sync, manager := newRoleSyncFixture(t)
	ctx := context.Background()
	alice := seedUser(t, f.repo, "alice", "alice@example.com", auth.RoleStudent)
	bob := seedUser(t, f.repo, "bob", "bob@example.com", auth.RoleStudent)
	require.NoError(t, f.repo.Roles().AssignRole(ctx, bob.User.ID, auth.RoleAdmin, true))

	jar := newMemoryJar()
	_, err := manager.Create(jar, auth.SessionData{
		UserID:      alice.User.ID.String(),
		Email:       "alice@example.com",
		Name:        "alice",
		Roles:       []string{auth.RoleStudent},
		PrimaryRole: auth.RoleStudent,
	})
	require.NoError(t, err)
	before := jar.Cookie(auth.DefaultCookieName)
	writes := len(jar.written)

	updated, err := sync.UpdateSession(ctx, jar, bob.User.ID.String())
	require.NoError(t, err)
	assert.False(t, updated)

	assert.Equal(t, before, jar.Cookie(auth.DefaultCookieName))
	assert.Len(t, jar.written, writes)

	session, ok := manager.Get(jar)
	require.True(t, ok)
	assert.Equal(t, alice.User.ID.String(), session.UserID)
	assert.False(t, session.HasRole(auth.RoleAdmin))
}

func TestRoleSyncWithoutSessionOrUser(t *testing.T) {
	f, sync, manager := newRoleSyncFixture(t)
	ctx := context.Background()

	updated, err := sync.UpdateSession(ctx, newMemoryJar(), uuid.NewString())
	require.NoError(t, err)
	assert.False(t, updated)

	// a session for a user that no longer exists in the store is left as is
	ghost := uuid.NewString()
	jar := newMemoryJar()
	_, err = manager.Create(jar, auth.SessionData{
		UserID:      ghost,
		Email:       "ghost@example.com",
		Roles:       []string{auth.RoleStudent},
		PrimaryRole: auth.RoleStudent,
	})
	require.NoError(t, err)

	updated, err = sync.UpdateSession(ctx, jar, ghost)
	require.NoError(t, err)
	assert.False(t, updated)
	_, ok := manager.Get(jar)
	assert.True(t, ok)

	assert.Empty(t, f.sink.types())
}

func TestRoleSyncInvalidateUserSessions(t *testing.T) {
	f, sync, _ := newRoleSyncFixture(t)

	_, err := sync.InvalidateUserSessions(context.Background(), "bad-id")
	require.Error(t, err)

	alice := seedUser(t, f.repo, "alice", "alice@example.com", auth.RoleStudent)
	n, err := sync.InvalidateUserSessions(context.Background(), alice.User.ID.String())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, []auth.ActivityEventType{auth.ActivityEventSessionsInvalidated}, f.sink.types())
}

func TestRoleSyncInvalidateCurrentSession(t *testing.T) {
	f, sync, manager := newRoleSyncFixture(t)
	jar := newMemoryJar()
	_, err := manager.Create(jar, auth.SessionData{
		UserID:      uuid.NewString(),
		Roles:       []string{auth.RoleStudent},
		PrimaryRole: auth.RoleStudent,
	})
	require.NoError(t, err)

	sync.InvalidateCurrentSession(jar)
	_, ok := manager.Get(jar)
	assert.False(t, ok)
	assert.Empty(t, f.sink.types())
}

func TestRoleSyncEndsSessionWhenRolesAreGone(t *testing.T) {
	f, sync, manager := newRoleSyncFixture(t)
	ctx := context.Background()
	alice := seedUser(t, f.repo, "alice", "alice@example.com", auth.RoleStudent)

	jar := newMemoryJar()
	_, err := manager.Create(jar, auth.SessionData{
		UserID:      alice.User.ID.String(),
		Email:       "alice@example.com",
		Name:        "alice",
		Roles:       []string{auth.RoleStudent},
		PrimaryRole: auth.RoleStudent,
	})
	require.NoError(t, err)

	_, err = f.db.NewDelete().Table("user_roles").Where("user_id = ?", alice.User.ID).Exec(ctx)
	require.NoError(t, err)

	updated, err := sync.UpdateSession(ctx, jar, alice.User.ID.String())
	assert.False(t, updated)
	assert.ErrorIs(t, err, auth.ErrNoRolesAssigned)

	_, ok := manager.Get(jar)
	assert.False(t, ok)
	assert.NotContains(t, f.sink.types(), auth.ActivityEventSessionRolesSynced)
}

func TestUpdateUserSessionRolesWithoutRoles(t *testing.T) {
	f := newActionsFixture(t)
	ctx := context.Background()
	f.signUpAlice(t)

	jar := newMemoryJar()
	login := f.actions.LoginWithSession(ctx, jar, auth.LoginPayload{Email: "alice@example.com", Password: "Secret123!"})
	require.True(t, login.Success)

	_, err := f.db.NewDelete().Table("user_roles").Where("user_id = ?", login.Data.ID).Exec(ctx)
	require.NoError(t, err)

	res := f.actions.UpdateUserSessionRoles(ctx, jar, login.Data.ID)
	assert.False(t, res.Success)
	assert.Equal(t, auth.MsgSessionRolesNotUpdated, res.Message)
	assert.Equal(t, []string{auth.MsgSessionEndedNoRoles}, res.Errors)

	status := f.actions.CheckAuthStatus(jar)
	assert.False(t, status.IsAuthenticated)
}

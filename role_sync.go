package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// RoleSync pushes role changes from the store into live sessions
type RoleSync struct {
	repo     RepositoryManager
	manager  *SessionManager
	logger   Logger
	activity ActivitySink
}

// NewRoleSync returns a RoleSync writing through manager
func NewRoleSync(repo RepositoryManager, manager *SessionManager) *RoleSync {
	return &RoleSync{
		repo:     repo,
		manager:  manager,
		logger:   newDefLogger(),
		activity: noopActivitySink{},
	}
}

func (r *RoleSync) WithLogger(logger Logger) *RoleSync {
	r.logger = normalizeLogger(logger)
	return r
}

func (r *RoleSync) WithActivitySink(sink ActivitySink) *RoleSync {
	r.activity = normalizeActivitySink(sink)
	return r
}

// UpdateSession rewrites the current session with the roles stored for
// userID. It is a no-op returning false when there is no session, when
// the session belongs to someone else, or when the user is gone. A user
// left without roles (or without a primary one) loses the session and
// gets ErrNoRolesAssigned.
func (r *RoleSync) UpdateSession(ctx context.Context, jar CookieStore, userID string) (bool, error) {
	current, ok := r.manager.Get(jar)
	if !ok {
		return false, nil
	}
	if current.UserID != userID {
		r.logger.Warn("role sync for %s refused: session belongs to %s", userID, current.UserID)
		return false, nil
	}

	if !HasUserUUID(current) {
		return false, nil
	}
	id, _ := current.GetUserUUID()

	user, err := r.repo.Users().GetActiveWithRolesByID(ctx, id)
	if err != nil {
		return false, err
	}
	if user == nil {
		r.logger.Info("role sync for %s skipped: user not found or inactive", userID)
		return false, nil
	}

	if len(user.Roles) == 0 || user.PrimaryRole == "" {
		r.manager.Destroy(jar)
		r.logger.Warn("role sync for %s ended the session: no roles assigned", userID)
		return false, ErrNoRolesAssigned
	}

	data := current.Data()
	data.Roles = user.Roles
	data.PrimaryRole = user.PrimaryRole

	if _, err := r.manager.Create(jar, data); err != nil {
		return false, err
	}

	recordActivity(ctx, r.activity, r.logger, ActivityEvent{
		EventType: ActivityEventSessionRolesSynced,
		UserID:    userID,
		Email:     data.Email,
		Role:      data.PrimaryRole,
		Metadata:  map[string]any{"roles": data.Roles},
	})
	return true, nil
}

// InvalidateUserSessions wipes the server side session rows of userID.
// Cookies already handed out stay valid until they expire.
func (r *RoleSync) InvalidateUserSessions(ctx context.Context, userID string) (int64, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return 0, goerrors.New("invalid user id", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	n, err := r.repo.Sessions().DeleteByUser(ctx, id)
	if err != nil {
		return 0, err
	}

	recordActivity(ctx, r.activity, r.logger, ActivityEvent{
		EventType: ActivityEventSessionsInvalidated,
		UserID:    userID,
		Metadata:  map[string]any{"deleted": n},
	})
	return n, nil
}

// InvalidateCurrentSession deletes the caller's session cookie
func (r *RoleSync) InvalidateCurrentSession(jar CookieStore) {
	r.manager.Destroy(jar)
}

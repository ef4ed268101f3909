package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const (
	MsgInvalidRegistration     = "Invalid registration data"
	MsgPasswordValidation      = "Password validation failed"
	MsgPasswordsDoNotMatch     = "Passwords do not match"
	MsgUserExists              = "User already exists"
	MsgEmailOrUsernameTaken    = "Email or username already registered"
	MsgRegistrationFailed      = "Registration failed"
	MsgAdminRegistrationDenied = "Admin registration is not allowed"
	MsgAuthenticationFailed    = "Authentication failed"
	MsgInvalidCredentials      = "Invalid email or password"
	MsgLoginSuccessful         = "Login successful"
	MsgLoginFailed             = "Login failed"
	MsgSessionNotCreated       = "Login succeeded but the session could not be created"
	MsgLoggedOut               = "Logged out successfully"
	MsgSessionRefreshed        = "Session refreshed successfully"
	MsgSessionNotRefreshed     = "Failed to refresh session - user not authenticated"
	MsgSessionRolesUpdated     = "Session roles updated"
	MsgSessionRolesNotUpdated  = "Session roles were not updated"
	MsgSessionEndedNoRoles     = "No roles assigned, the session was ended"
	MsgSessionsInvalidated     = "User sessions invalidated"
	MsgSessionInvalidated      = "Session invalidated"
	MsgRoleAssigned            = "Role assigned successfully"
	MsgRoleAssignFailed        = "Role assignment failed"
	MsgProfileUpdated          = "Profile updated successfully"
	MsgProfileUpdateFailed     = "Profile update failed"
	MsgInvalidProfile          = "Invalid profile data"
	MsgUserNotFoundOrInactive  = "User not found or inactive"
	MsgUserNotFound            = "User not found"
	MsgRequestTimedOut         = "Request timed out, please try again"
	MsgUnexpected              = "An unexpected error occurred"
)

// Result is the uniform outcome of every auth action
type Result[T any] struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
	Data    T        `json:"data,omitempty"`
}

func okResult[T any](message string, data T) Result[T] {
	return Result[T]{Success: true, Message: message, Data: data}
}

func failResult[T any](message string, errs ...string) Result[T] {
	return Result[T]{Success: false, Message: message, Errors: errs}
}

// AuthStatus is the session summary exposed to clients
type AuthStatus struct {
	IsAuthenticated bool            `json:"isAuthenticated"`
	User            *AuthStatusUser `json:"user,omitempty"`
}

type AuthStatusUser struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	PrimaryRole string `json:"primaryRole"`
}

// Actions is the public auth surface. No method returns an error; every
// failure is folded into a Result.
type Actions struct {
	repo         RepositoryManager
	passwords    *PasswordService
	sessions     *SessionManager
	roleSync     *RoleSync
	register     *RegisterUserHandler
	storeTimeout time.Duration
	adminKey     string
	hashids      bool
	logger       Logger
	activity     ActivitySink

	dummyOnce sync.Once
	dummyHash string
}

// NewActions wires the auth actions over repo and sessions
func NewActions(repo RepositoryManager, sessions *SessionManager, cfg Config) *Actions {
	timeout := cfg.GetStoreTimeout()
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	logger := newDefLogger()
	return &Actions{
		repo:         repo,
		passwords:    NewPasswordService(cfg.GetPasswordCost()),
		sessions:     sessions,
		roleSync:     NewRoleSync(repo, sessions).WithLogger(logger),
		register:     NewRegisterUserHandler(repo, timeout),
		storeTimeout: timeout,
		adminKey:     cfg.GetAdminRegistrationKey(),
		hashids:      cfg.GetDeterministicUserIDs(),
		logger:       logger,
		activity:     noopActivitySink{},
	}
}

func (a *Actions) WithLogger(logger Logger) *Actions {
	a.logger = normalizeLogger(logger)
	a.roleSync.WithLogger(a.logger)
	return a
}

func (a *Actions) WithActivitySink(sink ActivitySink) *Actions {
	a.activity = normalizeActivitySink(sink)
	a.roleSync.WithActivitySink(a.activity)
	return a
}

func (a *Actions) WithPasswordService(p *PasswordService) *Actions {
	if p != nil {
		a.passwords = p
	}
	return a
}

// Sessions returns the session manager the actions write through
func (a *Actions) Sessions() *SessionManager {
	return a.sessions
}

func (a *Actions) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.storeTimeout)
}

// SignUp registers a user with the requested role, student by default.
// Admin accounts go through AdminSignUp.
func (a *Actions) SignUp(ctx context.Context, in SignUpPayload) Result[*PublicUser] {
	in.normalize()
	if in.Role == RoleAdmin {
		a.recordSignupFailure(ctx, in, "admin role requested on public signup")
		return failResult[*PublicUser](MsgAdminRegistrationDenied, "Admin accounts require the admin registration form")
	}
	return a.signUp(ctx, in)
}

// AdminSignUp registers an admin. It is disabled when no admin key is
// configured.
func (a *Actions) AdminSignUp(ctx context.Context, in AdminSignUpPayload) Result[*PublicUser] {
	if a.adminKey == "" || subtle.ConstantTimeCompare([]byte(in.AdminKey), []byte(a.adminKey)) != 1 {
		a.logger.Warn("admin signup rejected for %s: %v", normalizeEmail(in.Email), ErrAdminKeyRejected)
		a.recordSignupFailure(ctx, in.SignUpPayload, "admin key rejected")
		return failResult[*PublicUser](MsgAdminRegistrationDenied, "Invalid admin registration key")
	}
	payload := in.SignUpPayload
	payload.Role = RoleAdmin
	return a.signUp(ctx, payload)
}

func (a *Actions) signUp(ctx context.Context, in SignUpPayload) Result[*PublicUser] {
	in.normalize()

	if err := in.Validate(); err != nil {
		return failResult[*PublicUser](MsgInvalidRegistration, validationMessages(err)...)
	}

	strength := a.passwords.ValidateStrength(in.Password)
	if !strength.IsValid {
		return failResult[*PublicUser](MsgPasswordValidation, strength.Errors...)
	}

	if in.Password != in.ConfirmPassword {
		return failResult[*PublicUser](MsgPasswordsDoNotMatch, MsgPasswordsDoNotMatch)
	}

	ctx, cancel := a.storeContext(ctx)
	defer cancel()

	exists, err := a.repo.Users().ExistsByEmailOrUsername(ctx, in.Email, in.Username)
	if err != nil {
		return a.signupInfraFailure(ctx, in, err)
	}
	if exists {
		a.recordSignupFailure(ctx, in, "duplicate email or username")
		return failResult[*PublicUser](MsgUserExists, MsgEmailOrUsernameTaken)
	}

	hash, err := a.passwords.Hash(in.Password)
	if err != nil {
		return a.signupInfraFailure(ctx, in, err)
	}

	registered, err := a.register.Execute(ctx, RegisterUserMessage{
		Username:     in.Username,
		Email:        in.Email,
		Name:         in.Name,
		Role:         in.Role,
		PasswordHash: hash,
		UseHashid:    a.hashids,
	})
	if err != nil {
		switch {
		case HasTextCode(err, TextCodeUserExists):
			a.recordSignupFailure(ctx, in, "unique constraint")
			return failResult[*PublicUser](MsgUserExists, MsgEmailOrUsernameTaken)
		case HasTextCode(err, TextCodeUnknownRole):
			a.logger.Error("signup for %s failed: role %q is not defined", in.Email, in.Role)
			a.recordSignupFailure(ctx, in, "unknown role")
			return failResult[*PublicUser](MsgRegistrationFailed, MsgUnexpected)
		default:
			return a.signupInfraFailure(ctx, in, err)
		}
	}

	view := NewPublicUser(registered.User)
	view.Roles = []string{registered.Role.Name}
	view.PrimaryRole = registered.Role.Name

	recordActivity(ctx, a.activity, a.logger, ActivityEvent{
		EventType: ActivityEventSignupSuccess,
		UserID:    view.ID,
		Email:     view.Email,
		Role:      view.PrimaryRole,
	})

	return okResult(fmt.Sprintf("User registered successfully as %s", registered.Role.Name), view)
}

func (a *Actions) signupInfraFailure(ctx context.Context, in SignUpPayload, err error) Result[*PublicUser] {
	a.recordSignupFailure(ctx, in, "store failure")
	return infraFailure[*PublicUser](ctx, a.logger, MsgRegistrationFailed, "signup for "+in.Email, err)
}

func (a *Actions) recordSignupFailure(ctx context.Context, in SignUpPayload, reason string) {
	event := ActivityEvent{
		EventType: ActivityEventSignupFailure,
		Email:     normalizeEmail(in.Email),
		Role:      RoleLabel(in.Role),
		Reason:    reason,
	}
	if event.Role == RoleUnknown {
		event.Metadata = map[string]any{"requested_role": in.Role}
	}
	recordActivity(ctx, a.activity, a.logger, event)
}

// Login checks credentials and returns the public user view. Every
// authentication failure gets the same message.
func (a *Actions) Login(ctx context.Context, in LoginPayload) Result[*PublicUser] {
	email := normalizeEmail(in.Email)
	if err := in.Validate(); err != nil {
		a.burnPasswordCheck(in.Password)
		a.recordLoginFailure(ctx, email, "missing credentials")
		return failResult[*PublicUser](MsgAuthenticationFailed, MsgInvalidCredentials)
	}

	ctx, cancel := a.storeContext(ctx)
	defer cancel()

	user, err := a.repo.Users().GetActiveWithRolesByEmail(ctx, email)
	if err != nil {
		return infraFailure[*PublicUser](ctx, a.logger, MsgLoginFailed, "login lookup", err)
	}

	if user == nil || user.User.PasswordHash == "" {
		a.burnPasswordCheck(in.Password)
		a.recordLoginFailure(ctx, email, "unknown or inactive user")
		return failResult[*PublicUser](MsgAuthenticationFailed, MsgInvalidCredentials)
	}

	if !a.passwords.Verify(in.Password, user.User.PasswordHash) {
		a.recordLoginFailure(ctx, email, "password mismatch")
		return failResult[*PublicUser](MsgAuthenticationFailed, MsgInvalidCredentials)
	}

	if err := a.repo.Users().TrackSuccessfulLogin(ctx, user.User.ID); err != nil {
		a.logger.Warn("failed to stamp last login for %s: %v", user.User.ID, err)
	} else {
		now := time.Now()
		user.User.LastLogin = &now
	}

	view := newPublicUserWithRoles(user)
	recordActivity(ctx, a.activity, a.logger, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		UserID:    view.ID,
		Email:     view.Email,
		Role:      view.PrimaryRole,
	})

	return okResult(MsgLoginSuccessful, view)
}

// burnPasswordCheck spends a bcrypt comparison so unknown accounts take
// as long as wrong passwords
func (a *Actions) burnPasswordCheck(password string) {
	a.dummyOnce.Do(func() {
		a.dummyHash, _ = a.passwords.Hash(uuid.NewString())
	})
	a.passwords.Verify(password, a.dummyHash)
}

func (a *Actions) recordLoginFailure(ctx context.Context, email, reason string) {
	recordActivity(ctx, a.activity, a.logger, ActivityEvent{
		EventType: ActivityEventLoginFailure,
		Email:     email,
		Reason:    reason,
	})
}

// LoginWithSession logs in and issues the session cookie. A session write
// failure after valid credentials is reported on its own.
func (a *Actions) LoginWithSession(ctx context.Context, jar CookieStore, in LoginPayload) Result[*PublicUser] {
	res := a.Login(ctx, in)
	if !res.Success {
		return res
	}

	user := res.Data
	_, err := a.sessions.Create(jar, SessionData{
		UserID:      user.ID,
		Email:       user.Email,
		Name:        user.Name,
		Roles:       user.Roles,
		PrimaryRole: user.PrimaryRole,
	})
	if err != nil {
		a.logger.Error("session for %s could not be created: %v", user.ID, err)
		return failResult[*PublicUser](MsgSessionNotCreated, MsgUnexpected)
	}
	return res
}

// Logout deletes the session cookie. Calling it without a session succeeds.
func (a *Actions) Logout(ctx context.Context, jar CookieStore) Result[any] {
	session, found := a.sessions.Get(jar)
	a.sessions.Destroy(jar)
	if found {
		recordActivity(ctx, a.activity, a.logger, ActivityEvent{
			EventType: ActivityEventLogout,
			UserID:    session.UserID,
			Email:     session.Email,
		})
	}
	return okResult[any](MsgLoggedOut, nil)
}

// RefreshSession extends a session that is close to expiry
func (a *Actions) RefreshSession(ctx context.Context, jar CookieStore) Result[*Session] {
	refreshed, err := a.sessions.Refresh(jar)
	if err != nil {
		a.logger.Error("session refresh failed: %v", err)
		return failResult[*Session](MsgSessionNotRefreshed, MsgUnexpected)
	}
	if !refreshed {
		return failResult[*Session](MsgSessionNotRefreshed)
	}

	session, _ := a.sessions.Get(jar)
	if session != nil {
		recordActivity(ctx, a.activity, a.logger, ActivityEvent{
			EventType: ActivityEventSessionRefreshed,
			UserID:    session.UserID,
			Metadata:  map[string]any{"expires": session.Expires},
		})
	}
	return okResult(MsgSessionRefreshed, session)
}

// CheckAuthStatus summarises the current session without secrets
func (a *Actions) CheckAuthStatus(jar CookieStore) AuthStatus {
	session, found := a.sessions.Get(jar)
	if !found {
		return AuthStatus{}
	}
	return AuthStatus{
		IsAuthenticated: true,
		User: &AuthStatusUser{
			Name:        session.Name,
			Email:       session.Email,
			PrimaryRole: session.PrimaryRole,
		},
	}
}

// VerifyCurrentPassword reports whether password belongs to the active
// user userID. Any failure reads as false.
func (a *Actions) VerifyCurrentPassword(ctx context.Context, userID, password string) bool {
	id, err := uuid.Parse(userID)
	if err != nil {
		return false
	}

	ctx, cancel := a.storeContext(ctx)
	defer cancel()

	hash, err := a.repo.Users().GetPasswordHash(ctx, id)
	if err != nil {
		a.logger.Error("password verification lookup failed for %s: %v", userID, err)
		return false
	}
	if hash == "" {
		return false
	}
	return a.passwords.Verify(password, hash)
}

// GetUserByEmail returns the active user with email, or nil
func (a *Actions) GetUserByEmail(ctx context.Context, email string) *PublicUser {
	ctx, cancel := a.storeContext(ctx)
	defer cancel()

	user, err := a.repo.Users().GetActiveByEmail(ctx, normalizeEmail(email))
	if err != nil {
		a.logger.Error("lookup by email failed: %v", err)
		return nil
	}
	return NewPublicUser(user)
}

// GetUserByID returns the active user with id, or nil
func (a *Actions) GetUserByID(ctx context.Context, userID string) *PublicUser {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil
	}

	ctx, cancel := a.storeContext(ctx)
	defer cancel()

	user, err := a.repo.Users().GetActiveWithRolesByID(ctx, id)
	if err != nil {
		a.logger.Error("lookup by id failed for %s: %v", userID, err)
		return nil
	}
	if user == nil {
		return nil
	}
	view := NewPublicUser(user.User)
	view.Roles = user.Roles
	view.PrimaryRole = user.PrimaryRole
	return view
}

// UpdateProfile applies a partial profile edit to an active user
func (a *Actions) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) Result[*PublicUser] {
	if err := in.Validate(); err != nil {
		return failResult[*PublicUser](MsgInvalidProfile, validationMessages(err)...)
	}

	id, err := uuid.Parse(userID)
	if err != nil {
		return failResult[*PublicUser](MsgUserNotFoundOrInactive, MsgUserNotFound)
	}

	ctx, cancel := a.storeContext(ctx)
	defer cancel()

	user, err := a.repo.Users().UpdateProfile(ctx, id, in)
	if err != nil {
		if HasTextCode(err, TextCodeUserNotFound) {
			return failResult[*PublicUser](MsgUserNotFoundOrInactive, MsgUserNotFound)
		}
		return infraFailure[*PublicUser](ctx, a.logger, MsgProfileUpdateFailed, "profile update", err)
	}

	recordActivity(ctx, a.activity, a.logger, ActivityEvent{
		EventType: ActivityEventProfileUpdated,
		UserID:    userID,
	})
	return okResult(MsgProfileUpdated, NewPublicUser(user))
}

// UpdateUserSessionRoles reloads the roles of userID into the caller's
// session when the session belongs to userID
func (a *Actions) UpdateUserSessionRoles(ctx context.Context, jar CookieStore, userID string) Result[*Session] {
	ctx, cancel := a.storeContext(ctx)
	defer cancel()

	updated, err := a.roleSync.UpdateSession(ctx, jar, userID)
	if HasTextCode(err, TextCodeNoRolesAssigned) {
		return failResult[*Session](MsgSessionRolesNotUpdated, MsgSessionEndedNoRoles)
	}
	if err != nil {
		return infraFailure[*Session](ctx, a.logger, MsgSessionRolesNotUpdated, "role sync", err)
	}
	if !updated {
		return failResult[*Session](MsgSessionRolesNotUpdated)
	}
	session, _ := a.sessions.Get(jar)
	return okResult(MsgSessionRolesUpdated, session)
}

// InvalidateUserSessions wipes the stored sessions of userID
func (a *Actions) InvalidateUserSessions(ctx context.Context, userID string) Result[any] {
	ctx, cancel := a.storeContext(ctx)
	defer cancel()

	if _, err := a.roleSync.InvalidateUserSessions(ctx, userID); err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) && richErr.Category == goerrors.CategoryBadInput {
			return failResult[any](MsgUserNotFound, richErr.Message)
		}
		return infraFailure[any](ctx, a.logger, MsgUnexpected, "session invalidation", err)
	}
	return okResult[any](MsgSessionsInvalidated, nil)
}

// InvalidateCurrentSession deletes the caller's session cookie
func (a *Actions) InvalidateCurrentSession(jar CookieStore) Result[any] {
	a.roleSync.InvalidateCurrentSession(jar)
	return okResult[any](MsgSessionInvalidated, nil)
}

// AssignRole grants role to userID in the store. Live sessions pick it
// up through UpdateUserSessionRoles.
func (a *Actions) AssignRole(ctx context.Context, userID, role string, primary bool) Result[any] {
	id, err := uuid.Parse(userID)
	if err != nil {
		return failResult[any](MsgUserNotFoundOrInactive, MsgUserNotFound)
	}

	ctx, cancel := a.storeContext(ctx)
	defer cancel()

	if err := a.repo.Roles().AssignRole(ctx, id, role, primary); err != nil {
		switch {
		case HasTextCode(err, TextCodeUserNotFound):
			return failResult[any](MsgUserNotFoundOrInactive, MsgUserNotFound)
		case HasTextCode(err, TextCodeUnknownRole):
			return failResult[any](MsgRoleAssignFailed, fmt.Sprintf("Unknown role %q", role))
		default:
			return infraFailure[any](ctx, a.logger, MsgRoleAssignFailed, "role assignment", err)
		}
	}

	recordActivity(ctx, a.activity, a.logger, ActivityEvent{
		EventType: ActivityEventRoleAssigned,
		UserID:    userID,
		Role:      role,
		Metadata:  map[string]any{"primary": primary},
	})
	return okResult[any](MsgRoleAssigned, nil)
}

// infraFailure logs err and folds it into a generic failure. Deadlines
// become a retryable message.
func infraFailure[T any](ctx context.Context, logger Logger, message, op string, err error) Result[T] {
	if IsTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		logger.Warn("%s timed out: %v", op, err)
		return failResult[T](message, MsgRequestTimedOut)
	}
	logger.Error("%s failed: %v", op, err)
	return failResult[T](message, MsgUnexpected)
}

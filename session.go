package auth

import (
	"time"

	"github.com/google/uuid"
)

// SessionSchemaVersion is the version written into every new session record
const SessionSchemaVersion = 1

// SessionData is the identity carried by a session, without its expiry
type SessionData struct {
	UserID      string   `json:"userId"`
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Roles       []string `json:"roles"`
	PrimaryRole string   `json:"primaryRole"`
}

// Session is the record stored in the session cookie
type Session struct {
	Version     int       `json:"v"`
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Roles       []string  `json:"roles"`
	PrimaryRole string    `json:"primaryRole"`
	Expires     time.Time `json:"expires"`
}

func newSession(data SessionData, expires time.Time) *Session {
	roles := make([]string, len(data.Roles))
	copy(roles, data.Roles)
	return &Session{
		Version:     SessionSchemaVersion,
		UserID:      data.UserID,
		Email:       data.Email,
		Name:        data.Name,
		Roles:       roles,
		PrimaryRole: data.PrimaryRole,
		Expires:     expires,
	}
}

// Validate checks the record invariants. The primary role must be one
// of the session roles.
func (s *Session) Validate() error {
	if s == nil {
		return ErrSessionMalformed
	}
	if s.Version != SessionSchemaVersion {
		return withMetadata(ErrSessionMalformed, map[string]any{"version": s.Version})
	}
	if s.UserID == "" {
		return withMetadata(ErrSessionIntegrity, map[string]any{"field": "userId"})
	}
	if s.PrimaryRole == "" {
		return withMetadata(ErrSessionIntegrity, map[string]any{"field": "primaryRole"})
	}
	if !containsRole(s.Roles, s.PrimaryRole) {
		return withMetadata(ErrSessionIntegrity, map[string]any{
			"field":       "primaryRole",
			"primaryRole": s.PrimaryRole,
		})
	}
	return nil
}

// Data returns the identity fields of the session
func (s *Session) Data() SessionData {
	roles := make([]string, len(s.Roles))
	copy(roles, s.Roles)
	return SessionData{
		UserID:      s.UserID,
		Email:       s.Email,
		Name:        s.Name,
		Roles:       roles,
		PrimaryRole: s.PrimaryRole,
	}
}

// HasRole reports whether role is in the session roles
func (s *Session) HasRole(role string) bool {
	return s != nil && containsRole(s.Roles, role)
}

// HasAnyRole reports whether the session holds one of roles.
// An empty list always matches.
func (s *Session) HasAnyRole(roles ...string) bool {
	return s != nil && hasAnyRole(s.Roles, roles...)
}

// IsExpired reports whether the session is dead at now
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.Expires)
}

// Remaining is the lifetime left at now
func (s *Session) Remaining(now time.Time) time.Duration {
	return s.Expires.Sub(now)
}

func (s *Session) GetUserID() string {
	return s.UserID
}

func (s *Session) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(s.UserID)
}

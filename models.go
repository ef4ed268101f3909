package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the user model. PasswordHash never leaves the package through
// PublicUser.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Username      string     `bun:"username,notnull,unique" json:"username"`
	Email         string     `bun:"email,notnull,unique" json:"email"`
	Name          string     `bun:"name,notnull" json:"name"`
	PasswordHash  string     `bun:"password,notnull" json:"-"`
	Bio           *string    `bun:"bio" json:"bio,omitempty"`
	Image         *string    `bun:"image" json:"image,omitempty"`
	IsActive      bool       `bun:"is_active,notnull" json:"is_active"`
	Locale        string     `bun:"locale,notnull" json:"locale"`
	Timezone      string     `bun:"timezone,notnull" json:"timezone"`
	CreatedAt     time.Time  `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt     time.Time  `bun:"updated_at,notnull" json:"updated_at"`
	LastLogin     *time.Time `bun:"last_login" json:"last_login,omitempty"`
}

// Role is a named capability group
type Role struct {
	bun.BaseModel `bun:"table:roles"`
	ID            int64  `bun:"id,pk" json:"id"`
	Name          string `bun:"name,notnull,unique" json:"name"`
	Description   string `bun:"description" json:"description,omitempty"`
}

// UserRole links a user to a role. At most one row per user is primary.
type UserRole struct {
	bun.BaseModel `bun:"table:user_roles"`
	UserID        uuid.UUID `bun:"user_id,pk,type:uuid" json:"user_id"`
	RoleID        int64     `bun:"role_id,pk" json:"role_id"`
	IsPrimary     bool      `bun:"is_primary,notnull" json:"is_primary"`
	AssignedAt    time.Time `bun:"assigned_at,notnull" json:"assigned_at"`
}

// UserProfile holds the learner profile created empty at signup
type UserProfile struct {
	bun.BaseModel   `bun:"table:user_profiles"`
	UserID          uuid.UUID      `bun:"user_id,pk,type:uuid" json:"user_id"`
	Skills          []string       `bun:"skills,type:text" json:"skills"`
	PortfolioURLs   []string       `bun:"portfolio_urls,type:text" json:"portfolio_urls"`
	LearningGoals   []string       `bun:"learning_goals,type:text" json:"learning_goals"`
	PreferredTopics []string       `bun:"preferred_topics,type:text" json:"preferred_topics"`
	ExpertiseLevels map[string]any `bun:"expertise_levels,type:text" json:"expertise_levels"`
	Achievements    map[string]any `bun:"achievements,type:text" json:"achievements"`
	SocialLinks     map[string]any `bun:"social_links,type:text" json:"social_links"`
	CreatedAt       time.Time      `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt       time.Time      `bun:"updated_at,notnull" json:"updated_at"`
}

// NewUserProfile returns an empty profile for userID
func NewUserProfile(userID uuid.UUID, now time.Time) *UserProfile {
	return &UserProfile{
		UserID:          userID,
		Skills:          []string{},
		PortfolioURLs:   []string{},
		LearningGoals:   []string{},
		PreferredTopics: []string{},
		ExpertiseLevels: map[string]any{},
		Achievements:    map[string]any{},
		SocialLinks:     map[string]any{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// SessionRecord is a server side session row. Cookie sessions do not
// write here; the table is only wiped by InvalidateUserSessions.
type SessionRecord struct {
	bun.BaseModel `bun:"table:sessions"`
	ID            uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	UserID        uuid.UUID `bun:"user_id,notnull,type:uuid" json:"user_id"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
	ExpiresAt     time.Time `bun:"expires_at,notnull" json:"expires_at"`
}

// UserWithRoles is a user joined with its role names. Roles are ordered
// by assignment time.
type UserWithRoles struct {
	User        *User
	Roles       []string
	PrimaryRole string
}

// ProfileUpdate is a partial profile edit. Nil fields are left unchanged.
type ProfileUpdate struct {
	Name     *string `json:"name,omitempty"`
	Bio      *string `json:"bio,omitempty"`
	Timezone *string `json:"timezone,omitempty"`
	Locale   *string `json:"locale,omitempty"`
}

// PublicUser is the outward view of a user, without credentials
type PublicUser struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Image       *string    `json:"image,omitempty"`
	Bio         *string    `json:"bio,omitempty"`
	Locale      string     `json:"locale,omitempty"`
	Timezone    string     `json:"timezone,omitempty"`
	IsActive    bool       `json:"isActive"`
	Roles       []string   `json:"roles"`
	PrimaryRole string     `json:"primaryRole,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastLogin   *time.Time `json:"lastLogin,omitempty"`
}

// NewPublicUser builds the outward view of u
func NewPublicUser(u *User) *PublicUser {
	if u == nil {
		return nil
	}
	return &PublicUser{
		ID:        u.ID.String(),
		Username:  u.Username,
		Email:     u.Email,
		Name:      u.Name,
		Image:     u.Image,
		Bio:       u.Bio,
		Locale:    u.Locale,
		Timezone:  u.Timezone,
		IsActive:  u.IsActive,
		Roles:     []string{},
		CreatedAt: u.CreatedAt,
		LastLogin: u.LastLogin,
	}
}

// newPublicUserWithRoles applies the login view defaults: roles default
// to empty and primaryRole to student.
func newPublicUserWithRoles(u *UserWithRoles) *PublicUser {
	if u == nil {
		return nil
	}
	out := NewPublicUser(u.User)
	if len(u.Roles) > 0 {
		out.Roles = append([]string{}, u.Roles...)
	}
	out.PrimaryRole = u.PrimaryRole
	if out.PrimaryRole == "" {
		out.PrimaryRole = DefaultRole
	}
	return out
}

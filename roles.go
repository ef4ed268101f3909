package auth

const (
	// RoleStudent is the default role given at signup
	RoleStudent = "student"
	// RoleInstructor creates and teaches courses
	RoleInstructor = "instructor"
	// RoleTeachingAssistant assists instructors
	RoleTeachingAssistant = "teaching_assistant"
	// RoleAdmin administers the platform
	RoleAdmin = "admin"
)

// RoleUnknown labels a requested role that is not one of the seeded roles
const RoleUnknown = "unknown"

// DefaultRole is assigned when signup does not name one
const DefaultRole = RoleStudent

// AllRoles returns the roles seeded by the initial migration
func AllRoles() []string {
	return []string{RoleStudent, RoleInstructor, RoleTeachingAssistant, RoleAdmin}
}

// IsKnownRole reports whether role is one of the seeded roles
func IsKnownRole(role string) bool {
	for _, r := range AllRoles() {
		if r == role {
			return true
		}
	}
	return false
}

// RoleLabel returns role when it is seeded, "" for no role and RoleUnknown
// for anything else. Used wherever a caller supplied role becomes a label.
func RoleLabel(role string) string {
	switch {
	case role == "":
		return ""
	case IsKnownRole(role):
		return role
	default:
		return RoleUnknown
	}
}

func containsRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// hasAnyRole is the role-gate membership test. An empty required set
// always passes.
func hasAnyRole(roles []string, required ...string) bool {
	if len(required) == 0 {
		return true
	}
	for _, r := range required {
		if containsRole(roles, r) {
			return true
		}
	}
	return false
}

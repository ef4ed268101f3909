package auth

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventSignupSuccess       ActivityEventType = "auth.signup.success"
	ActivityEventSignupFailure       ActivityEventType = "auth.signup.failure"
	ActivityEventLoginSuccess        ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure        ActivityEventType = "auth.login.failure"
	ActivityEventLogout              ActivityEventType = "auth.logout"
	ActivityEventSessionRefreshed    ActivityEventType = "auth.session.refreshed"
	ActivityEventSessionRolesSynced  ActivityEventType = "auth.session.roles_synced"
	ActivityEventSessionsInvalidated ActivityEventType = "auth.sessions.invalidated"
	ActivityEventRoleAssigned        ActivityEventType = "auth.role.assigned"
	ActivityEventProfileUpdated      ActivityEventType = "user.profile.updated"
)

// ActivityEvent captures audit-friendly information about an action.
// Metadata never carries credentials.
type ActivityEvent struct {
	EventType  ActivityEventType
	UserID     string
	Email      string
	Role       string
	Reason     string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// MultiActivitySink fans an event out to every sink. The first error is
// returned after all sinks ran.
type MultiActivitySink []ActivitySink

func (m MultiActivitySink) Record(ctx context.Context, event ActivityEvent) error {
	var first error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// recordActivity never lets a sink failure reach the caller
func recordActivity(ctx context.Context, sink ActivitySink, logger Logger, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if err := normalizeActivitySink(sink).Record(ctx, event); err != nil && logger != nil {
		logger.Warn("activity sink rejected %s: %v", event.EventType, err)
	}
}

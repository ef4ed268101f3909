// Package activitymap turns auth activity events into audit entries: who
// did what to which object, and whether it worked.
package activitymap

import (
	"context"
	"sort"
	"time"

	auth "github.com/axioquan/go-auth"
)

// Anonymous is the actor of events raised before a user is known
const Anonymous = "anonymous"

// Outcome of an audited action
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Object kinds an entry can point at
const (
	ObjectUser    = "user"
	ObjectSession = "session"
	ObjectRole    = "role"
)

// Entry is one audit line
type Entry struct {
	Actor    string         `json:"actor"`
	Verb     string         `json:"verb"`
	Object   string         `json:"object"`
	ObjectID string         `json:"object_id,omitempty"`
	Outcome  Outcome        `json:"outcome"`
	Role     string         `json:"role,omitempty"`
	Reason   string         `json:"reason,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	At       time.Time      `json:"at"`
}

type mapping struct {
	verb    string
	object  string
	outcome Outcome
}

var mappings = map[auth.ActivityEventType]mapping{
	auth.ActivityEventSignupSuccess:       {"signed_up", ObjectUser, OutcomeSuccess},
	auth.ActivityEventSignupFailure:       {"signed_up", ObjectUser, OutcomeFailure},
	auth.ActivityEventLoginSuccess:        {"logged_in", ObjectSession, OutcomeSuccess},
	auth.ActivityEventLoginFailure:        {"logged_in", ObjectSession, OutcomeFailure},
	auth.ActivityEventLogout:              {"logged_out", ObjectSession, OutcomeSuccess},
	auth.ActivityEventSessionRefreshed:    {"refreshed", ObjectSession, OutcomeSuccess},
	auth.ActivityEventSessionRolesSynced:  {"synced_roles", ObjectSession, OutcomeSuccess},
	auth.ActivityEventSessionsInvalidated: {"invalidated", ObjectSession, OutcomeSuccess},
	auth.ActivityEventRoleAssigned:        {"assigned", ObjectRole, OutcomeSuccess},
	auth.ActivityEventProfileUpdated:      {"updated", ObjectUser, OutcomeSuccess},
}

// Map builds the audit entry of event. Unmapped event types keep their raw
// name as the verb. The event email is never copied.
func Map(event auth.ActivityEvent) Entry {
	m, ok := mappings[event.EventType]
	if !ok {
		m = mapping{verb: string(event.EventType), object: ObjectUser, outcome: OutcomeSuccess}
	}

	entry := Entry{
		Actor:   event.UserID,
		Verb:    m.verb,
		Object:  m.object,
		Outcome: m.outcome,
		Role:    auth.RoleLabel(event.Role),
		Reason:  event.Reason,
		Details: copyDetails(event.Metadata),
		At:      event.OccurredAt,
	}
	if entry.Actor == "" {
		entry.Actor = Anonymous
	}
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}

	switch m.object {
	case ObjectRole:
		entry.ObjectID = entry.Role
	default:
		entry.ObjectID = event.UserID
	}
	return entry
}

// KeyVals flattens the entry for structured loggers. Details come last,
// sorted by key.
func (e Entry) KeyVals() []any {
	kv := []any{
		"actor", e.Actor,
		"verb", e.Verb,
		"object", e.Object,
		"outcome", string(e.Outcome),
	}
	if e.ObjectID != "" {
		kv = append(kv, "object_id", e.ObjectID)
	}
	if e.Role != "" {
		kv = append(kv, "role", e.Role)
	}
	if e.Reason != "" {
		kv = append(kv, "reason", e.Reason)
	}

	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		kv = append(kv, k, e.Details[k])
	}
	return kv
}

// Sink returns an auth.ActivitySink handing every mapped entry to fn
func Sink(fn func(context.Context, Entry) error) auth.ActivitySink {
	return auth.ActivitySinkFunc(func(ctx context.Context, event auth.ActivityEvent) error {
		if fn == nil {
			return nil
		}
		return fn(ctx, Map(event))
	})
}

func copyDetails(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		if k == "email" {
			continue
		}
		out[k] = v
	}
	return out
}

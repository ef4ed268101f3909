package activitymap_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	auth "github.com/axioquan/go-auth"
	"github.com/axioquan/go-auth/activitymap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap(t *testing.T) {
	ts := time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		event auth.ActivityEvent
		want  activitymap.Entry
	}{
		{
			name: "login success points at the session",
			event: auth.ActivityEvent{
				EventType:  auth.ActivityEventLoginSuccess,
				UserID:     "u-1",
				Email:      "alice@example.com",
				Role:       auth.RoleStudent,
				OccurredAt: ts,
			},
			want: activitymap.Entry{
				Actor: "u-1", Verb: "logged_in", Object: activitymap.ObjectSession, ObjectID: "u-1",
				Outcome: activitymap.OutcomeSuccess, Role: auth.RoleStudent, At: ts,
			},
		},
		{
			name: "anonymous signup failure folds the role",
			event: auth.ActivityEvent{
				EventType:  auth.ActivityEventSignupFailure,
				Email:      "mallory@example.com",
				Role:       "wizard",
				Reason:     "unknown role",
				OccurredAt: ts,
			},
			want: activitymap.Entry{
				Actor: activitymap.Anonymous, Verb: "signed_up", Object: activitymap.ObjectUser,
				Outcome: activitymap.OutcomeFailure, Role: auth.RoleUnknown, Reason: "unknown role", At: ts,
			},
		},
		{
			name: "role assignment targets the role",
			event: auth.ActivityEvent{
				EventType:  auth.ActivityEventRoleAssigned,
				UserID:     "u-2",
				Role:       auth.RoleInstructor,
				Metadata:   map[string]any{"primary": true, "email": "leak@example.com"},
				OccurredAt: ts,
			},
			want: activitymap.Entry{
				Actor: "u-2", Verb: "assigned", Object: activitymap.ObjectRole, ObjectID: auth.RoleInstructor,
				Outcome: activitymap.OutcomeSuccess, Role: auth.RoleInstructor,
				Details: map[string]any{"primary": true}, At: ts,
			},
		},
		{
			name:  "unmapped type keeps its name",
			event: auth.ActivityEvent{EventType: "course.enrolled", UserID: "u-3", OccurredAt: ts},
			want: activitymap.Entry{
				Actor: "u-3", Verb: "course.enrolled", Object: activitymap.ObjectUser, ObjectID: "u-3",
				Outcome: activitymap.OutcomeSuccess, At: ts,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, activitymap.Map(tt.event))
		})
	}
}

func TestMapStampsMissingTime(t *testing.T) {
	out := activitymap.Map(auth.ActivityEvent{EventType: auth.ActivityEventLogout})
	assert.False(t, out.At.IsZero())
}

func TestEntryKeyVals(t *testing.T) {
	e := activitymap.Entry{
		Actor: "u-1", Verb: "invalidated", Object: activitymap.ObjectSession, ObjectID: "u-1",
		Outcome: activitymap.OutcomeSuccess,
		Details: map[string]any{"deleted": int64(2), "by": "admin-1"},
	}

	assert.Equal(t, []any{
		"actor", "u-1",
		"verb", "invalidated",
		"object", "session",
		"outcome", "success",
		"object_id", "u-1",
		"by", "admin-1",
		"deleted", int64(2),
	}, e.KeyVals())
}

func TestAuditSink(t *testing.T) {
	var buf bytes.Buffer
	sink := activitymap.AuditSink(activitymap.NewAuditLogger(&buf, true))
	ctx := context.Background()

	require.NoError(t, sink.Record(ctx, auth.ActivityEvent{
		EventType: auth.ActivityEventLoginFailure,
		Email:     "nobody@example.com",
		Reason:    "invalid credentials",
	}))
	require.NoError(t, sink.Record(ctx, auth.ActivityEvent{
		EventType: auth.ActivityEventLoginSuccess,
		UserID:    "u-1",
		Role:      auth.RoleStudent,
	}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.NotContains(t, buf.String(), "nobody@example.com")

	var failure, success map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &failure))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &success))

	assert.Equal(t, "warn", failure["level"])
	assert.Equal(t, "auth logged_in", failure["msg"])
	assert.Equal(t, activitymap.Anonymous, failure["actor"])
	assert.Equal(t, "failure", failure["outcome"])
	assert.Equal(t, "invalid credentials", failure["reason"])

	assert.Equal(t, "info", success["level"])
	assert.Equal(t, "u-1", success["actor"])
	assert.Equal(t, auth.RoleStudent, success["role"])
}

func TestAuditSinkWithoutLogger(t *testing.T) {
	assert.NoError(t, activitymap.AuditSink(nil).Record(context.Background(), auth.ActivityEvent{EventType: auth.ActivityEventLogout}))
}

package auth_test

import (
	"testing"
	"time"

	auth "github.com/axioquan/go-auth"
	"github.com/stretchr/testify/assert"
)

func TestSessionIsExpired(t *testing.T) {
	expires := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)
	session := &auth.Session{Expires: expires}

	tests := []struct {
		name     string
		now      time.Time
		expected bool
	}{
		{name: "one minute before expiry", now: expires.Add(-time.Minute), expected: false},
		{name: "one nanosecond before expiry", now: expires.Add(-time.Nanosecond), expected: false},
		{name: "at exact expiry", now: expires, expected: true},
		{name: "after expiry", now: expires.Add(time.Second), expected: true},
		{name: "same instant in another zone", now: expires.In(time.FixedZone("CET", 3600)), expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, session.IsExpired(tt.now))
		})
	}
}

func TestSessionRemaining(t *testing.T) {
	expires := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)
	session := &auth.Session{Expires: expires}

	assert.Equal(t, 15*time.Minute, session.Remaining(expires.Add(-15*time.Minute)))
	assert.Equal(t, time.Duration(0), session.Remaining(expires))
	assert.Negative(t, session.Remaining(expires.Add(time.Minute)))
}

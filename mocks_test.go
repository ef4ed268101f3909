package auth_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	auth "github.com/axioquan/go-auth"
	"github.com/axioquan/go-auth/persistence"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

// memoryJar is a CookieStore for a single simulated request/response cycle
type memoryJar struct {
	values  map[string]string
	written []*auth.Cookie
}

func newMemoryJar() *memoryJar {
	return &memoryJar{values: map[string]string{}}
}

func (j *memoryJar) Cookie(name string) string {
	return j.values[name]
}

func (j *memoryJar) SetCookie(c *auth.Cookie) {
	j.written = append(j.written, c)
	if c.Value == "" || c.MaxAge < 0 {
		delete(j.values, c.Name)
		return
	}
	j.values[c.Name] = c.Value
}

func (j *memoryJar) ClearCookie(name string) {
	j.SetCookie(&auth.Cookie{Name: name, Path: "/", MaxAge: -1})
}

func (j *memoryJar) last() *auth.Cookie {
	if len(j.written) == 0 {
		return nil
	}
	return j.written[len(j.written)-1]
}

// fakeClock is a settable clock
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testConfig struct {
	cookieName    string
	duration      time.Duration
	threshold     time.Duration
	signingKey    string
	secure        bool
	storeTimeout  time.Duration
	passwordCost  int
	adminKey      string
	deterministic bool
	loginRoute    string
	unauthRoute   string
	landingRoute  string
}

func newTestConfig() *testConfig {
	return &testConfig{
		cookieName:   auth.DefaultCookieName,
		duration:     time.Hour,
		threshold:    15 * time.Minute,
		signingKey:   "test-signing-key-0123456789abcdef",
		storeTimeout: 5 * time.Second,
		passwordCost: bcrypt.MinCost,
		adminKey:     "let-me-in",
		loginRoute:   "/login",
		unauthRoute:  "/dashboard",
		landingRoute: "/",
	}
}

func (c *testConfig) GetCookieName() string              { return c.cookieName }
func (c *testConfig) GetSessionDuration() time.Duration  { return c.duration }
func (c *testConfig) GetRefreshThreshold() time.Duration { return c.threshold }
func (c *testConfig) GetSigningKey() string              { return c.signingKey }
func (c *testConfig) GetSecureCookies() bool             { return c.secure }
func (c *testConfig) GetStoreTimeout() time.Duration     { return c.storeTimeout }
func (c *testConfig) GetPasswordCost() int               { return c.passwordCost }
func (c *testConfig) GetAdminRegistrationKey() string    { return c.adminKey }
func (c *testConfig) GetDeterministicUserIDs() bool      { return c.deterministic }
func (c *testConfig) GetLoginRoute() string              { return c.loginRoute }
func (c *testConfig) GetUnauthorizedRoute() string       { return c.unauthRoute }
func (c *testConfig) GetLandingRoute() string            { return c.landingRoute }

// MockActivitySink records activity events
type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event auth.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// captureSink keeps every event it receives
type captureSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (s *captureSink) Record(_ context.Context, event auth.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *captureSink) types() []auth.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]auth.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

// quietLogger drops every message
type quietLogger struct{}

func (quietLogger) Debug(string, ...any) {}
func (quietLogger) Info(string, ...any)  {}
func (quietLogger) Warn(string, ...any)  {}
func (quietLogger) Error(string, ...any) {}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	ctx := context.Background()

	dsn := fmt.Sprintf("file:auth_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := persistence.Open(ctx, persistence.Config{
		Driver: persistence.DriverSQLite,
		DSN:    dsn,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, persistence.Migrate(ctx, db))
	return db
}

func newTestSessionManager(cfg *testConfig, clock *fakeClock) *auth.SessionManager {
	return auth.NewSessionManager(cfg).
		WithClock(clock.Now).
		WithLogger(quietLogger{})
}

package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	DefaultCookieName       = "axioquan-user"
	DefaultSessionDuration  = time.Hour
	DefaultRefreshThreshold = 15 * time.Minute
)

// SessionManager owns the session cookie. A cookie is either absent,
// valid, or expired; expired and malformed cookies are deleted on read.
type SessionManager struct {
	codec      SessionCodec
	cookieName string
	duration   time.Duration
	threshold  time.Duration
	secure     bool
	now        func() time.Time
	logger     Logger
}

// NewSessionManager builds a manager from cfg with a JWT codec keyed by
// the configured signing key
func NewSessionManager(cfg Config) *SessionManager {
	m := &SessionManager{
		codec:      NewJWTSessionCodec([]byte(cfg.GetSigningKey())),
		cookieName: cfg.GetCookieName(),
		duration:   cfg.GetSessionDuration(),
		threshold:  cfg.GetRefreshThreshold(),
		secure:     cfg.GetSecureCookies(),
		now:        time.Now,
		logger:     newDefLogger(),
	}
	if m.cookieName == "" {
		m.cookieName = DefaultCookieName
	}
	if m.duration <= 0 {
		m.duration = DefaultSessionDuration
	}
	if m.threshold <= 0 {
		m.threshold = DefaultRefreshThreshold
	}
	return m
}

func (m *SessionManager) WithCodec(codec SessionCodec) *SessionManager {
	if codec != nil {
		m.codec = codec
	}
	return m
}

func (m *SessionManager) WithClock(now func() time.Time) *SessionManager {
	if now != nil {
		m.now = now
	}
	return m
}

func (m *SessionManager) WithLogger(logger Logger) *SessionManager {
	m.logger = normalizeLogger(logger)
	return m
}

func (m *SessionManager) CookieName() string {
	return m.cookieName
}

func (m *SessionManager) Duration() time.Duration {
	return m.duration
}

func (m *SessionManager) Threshold() time.Duration {
	return m.threshold
}

// Create writes a new session for data expiring one full duration from now
func (m *SessionManager) Create(jar CookieStore, data SessionData) (*Session, error) {
	session := newSession(data, m.now().Add(m.duration))
	if err := session.Validate(); err != nil {
		m.logger.Error("refusing to write session for user %s: %v", data.UserID, err)
		return nil, err
	}

	value, err := m.codec.Encode(session)
	if err != nil {
		return nil, err
	}

	jar.SetCookie(&Cookie{
		Name:     m.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(m.duration / time.Second),
		Expires:  session.Expires,
		HTTPOnly: true,
		Secure:   m.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return session, nil
}

// Get returns the current session. Malformed or expired cookies are
// destroyed and reported as absent.
func (m *SessionManager) Get(jar CookieStore) (*Session, bool) {
	raw := jar.Cookie(m.cookieName)
	if raw == "" {
		return nil, false
	}

	session, err := m.codec.Decode(raw)
	if err != nil {
		m.logger.Warn("discarding unreadable session cookie: %v", err)
		m.Destroy(jar)
		return nil, false
	}

	if session.IsExpired(m.now()) {
		m.logger.Debug("session for user %s expired at %s", session.UserID, session.Expires.Format(time.RFC3339))
		m.Destroy(jar)
		return nil, false
	}

	return session, true
}

// Destroy deletes the session cookie. It is safe to call without a session.
func (m *SessionManager) Destroy(jar CookieStore) {
	jar.ClearCookie(m.cookieName)
}

// ShouldRefresh reports whether a live session is within the refresh threshold
func (m *SessionManager) ShouldRefresh(jar CookieStore) bool {
	session, ok := m.Get(jar)
	if !ok {
		return false
	}
	return session.Remaining(m.now()) <= m.threshold
}

// Refresh reissues a session close to expiry with a full duration and the
// same identity. It reports false when no live session exists; a live
// session outside the threshold is left untouched and reported true.
func (m *SessionManager) Refresh(jar CookieStore) (bool, error) {
	session, ok := m.Get(jar)
	if !ok {
		return false, nil
	}
	if session.Remaining(m.now()) > m.threshold {
		return true, nil
	}
	if _, err := m.Create(jar, session.Data()); err != nil {
		return false, err
	}
	return true, nil
}

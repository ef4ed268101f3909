package auth

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// Logger is the logging contract used across the package
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds the settings consumed by the session manager and the auth actions
type Config interface {
	GetCookieName() string
	GetSessionDuration() time.Duration
	GetRefreshThreshold() time.Duration
	GetSigningKey() string
	GetSecureCookies() bool
	GetStoreTimeout() time.Duration
	GetPasswordCost() int
	GetAdminRegistrationKey() string
	GetDeterministicUserIDs() bool
	GetLoginRoute() string
	GetUnauthorizedRoute() string
	GetLandingRoute() string
}

// PasswordAuthenticator hashes and compares passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// CookieStore is the per request cookie context. Reads must observe
// writes made earlier in the same request.
type CookieStore interface {
	Cookie(name string) string
	SetCookie(cookie *Cookie)
	ClearCookie(name string)
}

// Cookie describes a cookie written through a CookieStore
type Cookie struct {
	Name     string
	Value    string
	Path     string
	MaxAge   int
	Expires  time.Time
	HTTPOnly bool
	Secure   bool
	SameSite string
}

type defLogger struct {
	l *log.Logger
}

// NewLogger returns a Logger that writes to w at the given level
// ("debug", "info", "warn", "error"). Unknown levels fall back to info.
func NewLogger(w io.Writer, level string) Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	return defLogger{l: log.NewWithOptions(w, log.Options{
		Prefix:          "AUTH",
		Level:           lvl,
		ReportTimestamp: true,
	})}
}

func newDefLogger() Logger {
	return NewLogger(os.Stderr, "info")
}

func (d defLogger) Error(format string, args ...any) {
	d.l.Errorf(format, args...)
}

func (d defLogger) Warn(format string, args ...any) {
	d.l.Warnf(format, args...)
}

func (d defLogger) Info(format string, args ...any) {
	d.l.Infof(format, args...)
}

func (d defLogger) Debug(format string, args ...any) {
	d.l.Debugf(format, args...)
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return newDefLogger()
	}
	return l
}

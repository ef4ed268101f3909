package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

const (
	localsCookieStoreKey = "auth.cookies"
	// RedirectCookieName remembers the route a guard rejected
	RedirectCookieName = "axioquan-redirect"
)

// fiberCookies is a CookieStore over a fiber request. Writes are
// mirrored in a local overlay so later reads in the same request see them.
type fiberCookies struct {
	c       *fiber.Ctx
	overlay map[string]string
}

// FiberCookies returns the CookieStore bound to c. Every call for the same
// request returns the same store.
func FiberCookies(c *fiber.Ctx) CookieStore {
	if jar, ok := c.Locals(localsCookieStoreKey).(*fiberCookies); ok && jar != nil {
		return jar
	}
	jar := &fiberCookies{c: c, overlay: map[string]string{}}
	c.Locals(localsCookieStoreKey, jar)
	return jar
}

func (f *fiberCookies) Cookie(name string) string {
	if v, ok := f.overlay[name]; ok {
		return v
	}
	return f.c.Cookies(name)
}

func (f *fiberCookies) SetCookie(cookie *Cookie) {
	if cookie == nil {
		return
	}
	f.overlay[cookie.Name] = cookie.Value
	f.c.Cookie(&fiber.Cookie{
		Name:     cookie.Name,
		Value:    cookie.Value,
		Path:     cookie.Path,
		MaxAge:   cookie.MaxAge,
		Expires:  cookie.Expires,
		HTTPOnly: cookie.HTTPOnly,
		Secure:   cookie.Secure,
		SameSite: cookie.SameSite,
	})
}

func (f *fiberCookies) ClearCookie(name string) {
	f.overlay[name] = ""
	f.c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// RouteGuard is the role gate placed in front of pages
type RouteGuard struct {
	sessions          *SessionManager
	loginRoute        string
	unauthorizedRoute string
	landingRoute      string
	logger            Logger
}

// NewRouteGuard builds a guard using the routes in cfg
func NewRouteGuard(sessions *SessionManager, cfg Config) *RouteGuard {
	g := &RouteGuard{
		sessions:          sessions,
		loginRoute:        cfg.GetLoginRoute(),
		unauthorizedRoute: cfg.GetUnauthorizedRoute(),
		landingRoute:      cfg.GetLandingRoute(),
		logger:            newDefLogger(),
	}
	if g.loginRoute == "" {
		g.loginRoute = "/login"
	}
	if g.unauthorizedRoute == "" {
		g.unauthorizedRoute = "/dashboard"
	}
	if g.landingRoute == "" {
		g.landingRoute = "/"
	}
	return g
}

func (g *RouteGuard) WithLogger(logger Logger) *RouteGuard {
	g.logger = normalizeLogger(logger)
	return g
}

// Protect requires a live session holding one of roles. With no roles
// any session passes and is refreshed when close to expiry.
func (g *RouteGuard) Protect(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		jar := FiberCookies(c)

		session, found := g.sessions.Get(jar)
		if !found {
			return g.reject(c, goerrors.New("authentication required", goerrors.CategoryAuth).
				WithCode(goerrors.CodeUnauthorized))
		}

		if len(roles) > 0 {
			if !session.HasAnyRole(roles...) {
				err := goerrors.New("role not allowed", goerrors.CategoryAuthz).
					WithCode(goerrors.CodeForbidden).
					WithMetadata(map[string]any{"required": roles, "roles": session.Roles})
				return g.reject(c, err)
			}
		} else if _, err := g.sessions.Refresh(jar); err != nil {
			g.logger.Warn("opportunistic session refresh failed: %v", err)
		} else if current, ok := g.sessions.Get(jar); ok {
			session = current
		}

		c.Locals(LocalsSessionKey, session)
		c.SetUserContext(WithSession(c.UserContext(), session))
		return c.Next()
	}
}

func (g *RouteGuard) reject(c *fiber.Ctx, err *goerrors.Error) error {
	target := g.loginRoute
	if err.Category == goerrors.CategoryAuthz {
		target = g.unauthorizedRoute
	} else if c.Method() == fiber.MethodGet {
		g.SetRedirect(c)
	}

	g.logger.Info("guard rejected %s %s: %s %s", c.Method(), c.OriginalURL(), err.Message, print.MaybePrettyJSON(err.Metadata))

	statusCode := http.StatusSeeOther
	if c.Method() == fiber.MethodGet {
		statusCode = http.StatusFound
	}
	return c.Redirect(target, statusCode)
}

// SetRedirect remembers the current route so login can send the user back.
// The guard only calls it for GET requests.
func (g *RouteGuard) SetRedirect(c *fiber.Ctx) {
	FiberCookies(c).SetCookie(&Cookie{
		Name:     RedirectCookieName,
		Value:    c.OriginalURL(),
		Path:     "/",
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   g.sessions.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// GetRedirectOrDefault returns and clears the remembered route
func (g *RouteGuard) GetRedirectOrDefault(c *fiber.Ctx, def string) string {
	jar := FiberCookies(c)
	r := jar.Cookie(RedirectCookieName)
	if r == "" {
		return def
	}
	jar.ClearCookie(RedirectCookieName)
	// local paths only
	if !strings.HasPrefix(r, "/") || strings.HasPrefix(r, "//") || strings.HasPrefix(r, "/\\") {
		return def
	}
	return r
}

// LogoutRedirect destroys the session and sends the user to the landing route
func (g *RouteGuard) LogoutRedirect(actions *Actions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actions.Logout(c.UserContext(), FiberCookies(c))
		return c.Redirect(g.landingRoute, http.StatusFound)
	}
}

package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

var sessionCtxKey = &contextKey{"session"}

type contextKey struct {
	name string
}

// LocalsSessionKey is the fiber locals key holding the guarded session
const LocalsSessionKey = "auth.session"

// WithSession stores the session in ctx
func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey, session)
}

// SessionFromContext returns the session stored by WithSession
func SessionFromContext(ctx context.Context) (*Session, bool) {
	raw, ok := ctx.Value(sessionCtxKey).(*Session)
	return raw, ok && raw != nil
}

// SessionFromFiber returns the session placed in locals by the route guard
func SessionFromFiber(c *fiber.Ctx) (*Session, bool) {
	raw, ok := c.Locals(LocalsSessionKey).(*Session)
	return raw, ok && raw != nil
}

package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// SessionCodec turns a session record into a cookie value and back
type SessionCodec interface {
	Encode(session *Session) (string, error)
	Decode(value string) (*Session, error)
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Session
}

type jwtSessionCodec struct {
	key    []byte
	method jwt.SigningMethod
	parser *jwt.Parser
}

// NewJWTSessionCodec signs session records as HS256 tokens. Expiry is not
// checked here; the session manager owns the clock.
func NewJWTSessionCodec(signingKey []byte) SessionCodec {
	return &jwtSessionCodec{
		key:    signingKey,
		method: jwt.SigningMethodHS256,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
}

func (c *jwtSessionCodec) Encode(session *Session) (string, error) {
	if err := session.Validate(); err != nil {
		return "", err
	}
	if len(c.key) == 0 {
		return "", goerrors.New("session signing key is not configured", goerrors.CategoryInternal).
			WithCode(goerrors.CodeInternal)
	}

	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.UserID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(session.Expires),
		},
		Session: *session,
	}

	token := jwt.NewWithClaims(c.method, claims)
	value, err := token.SignedString(c.key)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign session")
	}
	return value, nil
}

func (c *jwtSessionCodec) Decode(value string) (*Session, error) {
	if value == "" {
		return nil, ErrSessionMalformed
	}

	claims := &sessionClaims{}
	_, err := c.parser.ParseWithClaims(value, claims, func(*jwt.Token) (any, error) {
		return c.key, nil
	})
	if err != nil {
		return nil, withMetadata(ErrSessionMalformed, map[string]any{"reason": err.Error()})
	}

	session := claims.Session
	if err := session.Validate(); err != nil {
		return nil, err
	}
	return &session, nil
}

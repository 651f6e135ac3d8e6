package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthenticated is returned when a bearer credential is absent,
// malformed, expired, or fails verification. No further detail about why
// verification failed is exposed.
var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is the verified caller context produced by the Gate. It carries
// no per-item mutation rights: every authenticated identity has equal write
// access.
type Identity struct {
	Subject   string
	Email     string
	ExpiresAt time.Time
}

// Gate verifies bearer tokens. Verification is stateless and pure given the
// signing secret; the gate never consults the store.
type Gate struct {
	secret []byte
}

// NewGate creates a Gate that verifies tokens signed with secret.
func NewGate(secret string) *Gate {
	return &Gate{secret: []byte(secret)}
}

// Authenticate verifies a raw bearer token and returns the caller Identity.
func (g *Gate) Authenticate(rawToken string) (Identity, error) {
	if rawToken == "" {
		return Identity{}, ErrUnauthenticated
	}

	token, err := jwt.Parse(rawToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return g.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrUnauthenticated
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrUnauthenticated
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Identity{}, ErrUnauthenticated
	}
	email, _ := claims["email"].(string)

	ident := Identity{Subject: sub, Email: email}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		ident.ExpiresAt = exp.Time
	}
	return ident, nil
}

// contextKey is an unexported type for context keys in this package.
type contextKey string

const identityKey contextKey = "identity"

// WithIdentity returns a context carrying the verified identity.
func WithIdentity(ctx context.Context, ident Identity) context.Context {
	return context.WithValue(ctx, identityKey, ident)
}

// IdentityFrom extracts the verified identity placed by the auth middleware.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	ident, ok := ctx.Value(identityKey).(Identity)
	return ident, ok
}

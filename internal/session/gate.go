package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrNotConfigured means the admin secret is missing. This is a server
	// configuration error, not a credentials failure, and the distinction
	// must not leak past a generic message.
	ErrNotConfigured = errors.New("admin password is not configured")

	ErrPasswordRequired   = errors.New("password is required")
	ErrTokenRequired      = errors.New("token is required")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// DefaultTTL is the session lifetime; each successful verification slides
// the expiry forward by this much.
const DefaultTTL = 24 * time.Hour

// Gate issues and verifies admin bearer tokens against a single configured
// secret. Per token the lifecycle is: unissued, active, renewed on each
// verify, then absent once expired. There is no server-side logout; clients
// just discard their copy.
type Gate struct {
	store      Store
	secret     string
	secretHash string
	ttl        time.Duration
	now        func() time.Time
}

// NewGate creates a gate over the given token store. secretHash is a bcrypt
// hash and takes precedence over the plain secret when both are set.
func NewGate(store Store, secret, secretHash string, ttl time.Duration) *Gate {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Gate{
		store:      store,
		secret:     secret,
		secretHash: secretHash,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Login checks the password and issues a fresh token on success. Expired
// entries are purged opportunistically on every attempt.
func (g *Gate) Login(ctx context.Context, password string) (string, error) {
	if g.secret == "" && g.secretHash == "" {
		return "", ErrNotConfigured
	}
	if password == "" {
		return "", ErrPasswordRequired
	}
	if !g.checkPassword(password) {
		return "", ErrInvalidCredentials
	}

	now := g.now()
	_ = g.store.PurgeExpired(ctx, now)

	token, err := newToken()
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	if err := g.store.Put(ctx, token, now.Add(g.ttl)); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// Verify reports whether the token is a live session. A valid token has its
// expiry slid forward by the TTL; a stale one is removed. Invalid and
// expired tokens both come back as unauthenticated with no further detail.
// The error return is reserved for store failures.
func (g *Gate) Verify(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, ErrTokenRequired
	}

	expires, ok, err := g.store.Get(ctx, token)
	if err != nil {
		return false, fmt.Errorf("look up session: %w", err)
	}
	if !ok {
		return false, nil
	}

	now := g.now()
	if !now.Before(expires) {
		_ = g.store.Delete(ctx, token)
		return false, nil
	}

	if err := g.store.Extend(ctx, token, now.Add(g.ttl)); err != nil {
		return false, fmt.Errorf("extend session: %w", err)
	}
	return true, nil
}

// TTL returns the configured session lifetime.
func (g *Gate) TTL() time.Duration {
	return g.ttl
}

func (g *Gate) checkPassword(password string) bool {
	if g.secretHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(g.secretHash), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(g.secret)) == 1
}

// HashPassword produces a bcrypt hash suitable for the gate's secretHash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// newToken returns 32 random bytes hex encoded.
func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/followup/followup/internal/platform/cache"
)

var ErrSessionNotFound = errors.New("session not found")

const sessionKeyPrefix = "session:"

// Principal is an identity whose credentials have been verified.
type Principal struct {
	Username string
	Name     string
	Roles    []string
}

// Session is what a successful login hands back to the client.
type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	Roles     []string  `json:"roles"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionManager issues signed session tokens and tracks which ones are
// live. A token is only honored while its session id is present in the
// store, so deleting the id logs the session out before the token expires.
type SessionManager struct {
	signingKey []byte
	ttl        time.Duration
	store      cache.Store
	now        func() time.Time
}

// NewSessionManager creates a session manager. An empty signing key is
// replaced by a random one, which invalidates sessions on restart.
func NewSessionManager(signingKey []byte, ttl time.Duration, store cache.Store) (*SessionManager, error) {
	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if len(signingKey) == 0 {
		signingKey = make([]byte, 32)
		if _, err := rand.Read(signingKey); err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionManager{signingKey: signingKey, ttl: ttl, store: store, now: time.Now}, nil
}

// Issue starts a session for p.
func (m *SessionManager) Issue(ctx context.Context, p Principal) (*Session, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)
	sessionID := uuid.NewString()

	roles := p.Roles
	if len(roles) == 0 {
		roles = []string{RoleAdmin}
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   p.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Name:  p.Name,
		Roles: roles,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.signingKey)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	if err := m.store.Set(ctx, sessionKeyPrefix+sessionID, []byte(p.Username), m.ttl); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	return &Session{
		Token:     token,
		Username:  p.Username,
		Roles:     roles,
		ExpiresAt: expiresAt,
	}, nil
}

// Resolve verifies tokenStr and checks that its session is still live.
func (m *SessionManager) Resolve(ctx context.Context, tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return m.signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("parse session token: %w", err)
	}
	if claims.ID == "" {
		return nil, ErrSessionNotFound
	}

	owner, ok, err := m.store.Get(ctx, sessionKeyPrefix+claims.ID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !ok || string(owner) != claims.Subject {
		return nil, ErrSessionNotFound
	}
	return claims, nil
}

// Revoke ends the session. Revoking an unknown or empty id is a no-op.
func (m *SessionManager) Revoke(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := m.store.Delete(ctx, sessionKeyPrefix+sessionID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

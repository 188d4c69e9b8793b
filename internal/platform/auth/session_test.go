package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/followup/followup/internal/platform/cache"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

func newTestSessions(t *testing.T) *SessionManager {
	t.Helper()
	m, err := NewSessionManager(testSigningKey, time.Hour, cache.NewMemoryStore())
	if err != nil {
		t.Fatalf("new session manager: %v", err)
	}
	return m
}

func TestNewSessionManager_RequiresStore(t *testing.T) {
	if _, err := NewSessionManager(testSigningKey, time.Hour, nil); err == nil {
		t.Error("expected error without a store")
	}
}

func TestNewSessionManager_GeneratesKey(t *testing.T) {
	m, err := NewSessionManager(nil, 0, cache.NewMemoryStore())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.signingKey) != 32 {
		t.Errorf("expected 32 byte key, got %d", len(m.signingKey))
	}
	if m.ttl != 24*time.Hour {
		t.Errorf("expected default ttl, got %v", m.ttl)
	}
}

func TestSessionManager_IssueResolve(t *testing.T) {
	m := newTestSessions(t)
	ctx := context.Background()

	sess, err := m.Issue(ctx, Principal{Username: "admin"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if sess.Token == "" || sess.Username != "admin" {
		t.Fatalf("unexpected session %+v", sess)
	}
	if len(sess.Roles) != 1 || sess.Roles[0] != RoleAdmin {
		t.Errorf("expected admin role, got %v", sess.Roles)
	}

	claims, err := m.Resolve(ctx, sess.Token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if claims.Subject != "admin" || claims.ID == "" {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestSessionManager_RevokeLogsOut(t *testing.T) {
	m := newTestSessions(t)
	ctx := context.Background()

	sess, _ := m.Issue(ctx, Principal{Username: "admin"})
	claims, err := m.Resolve(ctx, sess.Token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if err := m.Revoke(ctx, claims.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := m.Resolve(ctx, sess.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after logout, got %v", err)
	}
}

func TestSessionManager_RevokeEmptyIsNoop(t *testing.T) {
	m := newTestSessions(t)
	if err := m.Revoke(context.Background(), ""); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSessionManager_ExpiredToken(t *testing.T) {
	m := newTestSessions(t)
	ctx := context.Background()

	sess, _ := m.Issue(ctx, Principal{Username: "admin"})
	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	if _, err := m.Resolve(ctx, sess.Token); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestSessionManager_WrongKey(t *testing.T) {
	m := newTestSessions(t)
	other, _ := NewSessionManager([]byte("another-signing-key-of-enough-size"), time.Hour, cache.NewMemoryStore())

	sess, _ := other.Issue(context.Background(), Principal{Username: "admin"})
	if _, err := m.Resolve(context.Background(), sess.Token); err == nil {
		t.Error("expected token signed with another key to be rejected")
	}
}

func TestSessionManager_TokenWithoutStoredSession(t *testing.T) {
	m := newTestSessions(t)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "forged",
			Subject:   "admin",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: []string{RoleAdmin},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSigningKey)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.Resolve(context.Background(), token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

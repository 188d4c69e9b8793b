package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/followup/followup/internal/platform/apierr"
)

// ErrInvalidCredentials is the only error a failed login reports, whatever
// part of the credentials was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Authenticator turns credentials into a session.
type Authenticator interface {
	Authenticate(ctx context.Context, creds Credentials) (*Session, error)
}

// StaticAuthenticator accepts a single configured username/password pair.
type StaticAuthenticator struct {
	username string
	password string
	sessions *SessionManager
}

func NewStaticAuthenticator(username, password string, sessions *SessionManager) *StaticAuthenticator {
	return &StaticAuthenticator{username: username, password: password, sessions: sessions}
}

func (a *StaticAuthenticator) Authenticate(ctx context.Context, creds Credentials) (*Session, error) {
	userOK := subtle.ConstantTimeCompare([]byte(creds.Username), []byte(a.username))
	passOK := subtle.ConstantTimeCompare([]byte(creds.Password), []byte(a.password))
	if a.username == "" || userOK&passOK != 1 {
		return nil, ErrInvalidCredentials
	}
	return a.sessions.Issue(ctx, Principal{Username: a.username, Roles: []string{RoleAdmin}})
}

// AdminRecord is the stored form of an admin login.
type AdminRecord struct {
	ID       string
	Username string
	Password string
}

// AdminLookup finds admin logins by username. A missing user is reported
// as an error wrapping apierr.ErrNotFound.
type AdminLookup interface {
	FindAdminByUsername(ctx context.Context, username string) (*AdminRecord, error)
}

// StoreAuthenticator checks credentials against the admin_users table.
// Stored passwords are Argon2id hashes or, for legacy rows, plaintext.
type StoreAuthenticator struct {
	admins   AdminLookup
	sessions *SessionManager
}

func NewStoreAuthenticator(admins AdminLookup, sessions *SessionManager) *StoreAuthenticator {
	return &StoreAuthenticator{admins: admins, sessions: sessions}
}

func (a *StoreAuthenticator) Authenticate(ctx context.Context, creds Credentials) (*Session, error) {
	if creds.Username == "" || creds.Password == "" {
		return nil, ErrInvalidCredentials
	}

	rec, err := a.admins.FindAdminByUsername(ctx, creds.Username)
	if err != nil {
		if errors.Is(err, apierr.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup admin: %w", err)
	}

	if !passwordMatches(rec.Password, creds.Password) {
		return nil, ErrInvalidCredentials
	}
	return a.sessions.Issue(ctx, Principal{Username: rec.Username, Roles: []string{RoleAdmin}})
}

func passwordMatches(stored, given string) bool {
	if IsPasswordHash(stored) {
		return VerifyPassword(stored, given) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}

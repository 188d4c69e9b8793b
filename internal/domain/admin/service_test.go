package admin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/followup/followup/internal/platform/apierr"
	"github.com/followup/followup/internal/platform/auth"
	"github.com/followup/followup/internal/platform/cache"
	"github.com/followup/followup/pkg/validation"
)

// -- Mock Repositories --

type mockUserRepo struct {
	users map[uuid.UUID]*AdminUser
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*AdminUser)}
}

func (m *mockUserRepo) Create(_ context.Context, u *AdminUser) error {
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return &pgconn.PgError{Code: "23505", Message: `duplicate key value violates unique constraint "admin_users_username_key"`}
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*AdminUser, error) {
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apierr.NotFound("admin user", username)
}

func (m *mockUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.users[id]; !ok {
		return apierr.NotFound("admin user", id)
	}
	delete(m.users, id)
	return nil
}

func (m *mockUserRepo) List(_ context.Context) ([]*AdminUser, error) {
	out := []*AdminUser{}
	for _, u := range m.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

type mockSettingRepo struct {
	settings  map[string]*Setting
	listCalls int
}

func (m *mockSettingRepo) Upsert(_ context.Context, s *Setting) error {
	s.UpdatedAt = time.Now()
	cp := *s
	m.settings[s.Key] = &cp
	return nil
}

func (m *mockSettingRepo) List(_ context.Context) ([]*Setting, error) {
	m.listCalls++
	out := []*Setting{}
	for _, s := range m.settings {
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

var testHashParams = &auth.HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func newTestService() (*Service, *mockUserRepo, *mockSettingRepo) {
	users := newMockUserRepo()
	settings := &mockSettingRepo{settings: map[string]*Setting{}}
	svc := NewService(users, settings, cache.NewMemoryStore(), time.Minute)
	svc.hash = func(p string) (string, error) { return auth.HashPasswordWithParams(p, testHashParams) }
	return svc, users, settings
}

func TestService_CreateAdmin_HashesPassword(t *testing.T) {
	svc, users, _ := newTestService()
	u, err := svc.CreateAdmin(context.Background(), AdminInput{Username: " nurse ", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.Username != "nurse" {
		t.Errorf("expected trimmed username, got %q", u.Username)
	}
	stored := users.users[u.ID].Password
	if !auth.IsPasswordHash(stored) {
		t.Fatalf("expected argon2id hash, got %q", stored)
	}
	if err := auth.VerifyPassword(stored, "s3cret-pass"); err != nil {
		t.Errorf("stored hash does not verify: %v", err)
	}
}

func TestService_CreateAdmin_Validation(t *testing.T) {
	svc, _, _ := newTestService()
	for _, in := range []AdminInput{
		{Username: "", Password: "longenough"},
		{Username: "x", Password: ""},
		{Username: "x", Password: "short"},
	} {
		var verrs validation.Errors
		if _, err := svc.CreateAdmin(context.Background(), in); !errors.As(err, &verrs) {
			t.Errorf("CreateAdmin(%+v): expected validation error, got %v", in, err)
		}
	}
}

func TestService_CreateAdmin_Duplicate(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	_, _ = svc.CreateAdmin(ctx, AdminInput{Username: "admin", Password: "password1"})
	_, err := svc.CreateAdmin(ctx, AdminInput{Username: "admin", Password: "password2"})
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		t.Errorf("expected unique violation, got %v", err)
	}
}

func TestService_FindAdminByUsername(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	u, _ := svc.CreateAdmin(ctx, AdminInput{Username: "admin", Password: "doctor12/"})

	rec, err := svc.FindAdminByUsername(ctx, "admin")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if rec.ID != u.ID.String() || rec.Username != "admin" {
		t.Errorf("unexpected record %+v", rec)
	}
	if _, err := svc.FindAdminByUsername(ctx, "ghost"); !errors.Is(err, apierr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestService_StoreAuthenticatorLogin(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	_, _ = svc.CreateAdmin(ctx, AdminInput{Username: "admin", Password: "doctor12/"})

	sessions, err := auth.NewSessionManager(nil, time.Hour, cache.NewMemoryStore())
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	authn := auth.NewStoreAuthenticator(svc, sessions)

	if _, err := authn.Authenticate(ctx, auth.Credentials{Username: "admin", Password: "doctor12/"}); err != nil {
		t.Errorf("expected login to succeed: %v", err)
	}
	if _, err := authn.Authenticate(ctx, auth.Credentials{Username: "admin", Password: "wrong"}); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Errorf("expected invalid credentials, got %v", err)
	}
}

func TestService_DeleteAdmin(t *testing.T) {
	svc, users, _ := newTestService()
	ctx := context.Background()
	a, _ := svc.CreateAdmin(ctx, AdminInput{Username: "a", Password: "password1"})
	b, _ := svc.CreateAdmin(ctx, AdminInput{Username: "b", Password: "password2"})

	if err := svc.DeleteAdmin(ctx, a.ID, false); !errors.Is(err, apierr.ErrConfirmationRequired) {
		t.Errorf("expected confirmation error, got %v", err)
	}
	if err := svc.DeleteAdmin(ctx, a.ID, true); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.DeleteAdmin(ctx, b.ID, true); !errors.Is(err, ErrLastAdmin) {
		t.Errorf("expected last admin error, got %v", err)
	}
	if len(users.users) != 1 {
		t.Errorf("expected 1 remaining admin, got %d", len(users.users))
	}
}

func TestService_DoctorName(t *testing.T) {
	svc, _, settings := newTestService()
	ctx := context.Background()

	name, err := svc.DoctorName(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if name != DefaultDoctorName {
		t.Errorf("expected default %q, got %q", DefaultDoctorName, name)
	}
	_, _ = svc.DoctorName(ctx)
	if settings.listCalls != 1 {
		t.Errorf("expected cached read, got %d store calls", settings.listCalls)
	}

	if _, err := svc.UpdateDoctorName(ctx, DoctorNameInput{DoctorName: "  "}); err == nil {
		t.Error("expected validation error for blank name")
	}
	if _, err := svc.UpdateDoctorName(ctx, DoctorNameInput{DoctorName: " Dr. Smith "}); err != nil {
		t.Fatalf("update: %v", err)
	}
	name, _ = svc.DoctorName(ctx)
	if name != "Dr. Smith" {
		t.Errorf("expected updated name, got %q", name)
	}
}

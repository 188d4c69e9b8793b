package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/followup/followup/internal/platform/apierr"
	"github.com/followup/followup/internal/platform/auth"
	"github.com/followup/followup/internal/platform/cache"
)

// ErrLastAdmin is returned when deleting the only remaining admin account.
var ErrLastAdmin = errors.New("cannot delete the last admin account")

type Service struct {
	users    UserRepository
	settings SettingRepository
	cache    cache.Store
	ttl      time.Duration
	hash     func(string) (string, error)
}

func NewService(users UserRepository, settings SettingRepository, store cache.Store, ttl time.Duration) *Service {
	return &Service{users: users, settings: settings, cache: store, ttl: ttl, hash: auth.HashPassword}
}

// -- Admin Users --

// CreateAdmin stores a new account with an argon2id password hash.
func (s *Service) CreateAdmin(ctx context.Context, in AdminInput) (*AdminUser, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	hashed, err := s.hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &AdminUser{Username: in.Username, Password: hashed}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) ListAdmins(ctx context.Context) ([]*AdminUser, error) {
	return s.users.List(ctx)
}

func (s *Service) DeleteAdmin(ctx context.Context, id uuid.UUID, confirmed bool) error {
	if !confirmed {
		return fmt.Errorf("delete admin user %s: %w", id, apierr.ErrConfirmationRequired)
	}
	all, err := s.users.List(ctx)
	if err != nil {
		return err
	}
	if len(all) == 1 && all[0].ID == id {
		return ErrLastAdmin
	}
	return s.users.Delete(ctx, id)
}

// FindAdminByUsername serves the store-backed authenticator.
func (s *Service) FindAdminByUsername(ctx context.Context, username string) (*auth.AdminRecord, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return &auth.AdminRecord{ID: u.ID.String(), Username: u.Username, Password: u.Password}, nil
}

// -- Settings --

func (s *Service) listSettings(ctx context.Context) ([]*Setting, error) {
	return cache.Load(ctx, s.cache, cache.KeySettings, s.ttl, s.settings.List)
}

// DoctorName returns the configured display name, or DefaultDoctorName.
func (s *Service) DoctorName(ctx context.Context) (string, error) {
	all, err := s.listSettings(ctx)
	if err != nil {
		return "", err
	}
	for _, st := range all {
		if st.Key == KeyDoctorName && st.Value != "" {
			return st.Value, nil
		}
	}
	return DefaultDoctorName, nil
}

func (s *Service) UpdateDoctorName(ctx context.Context, in DoctorNameInput) (*Setting, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	st := &Setting{Key: KeyDoctorName, Value: in.DoctorName}
	if err := s.settings.Upsert(ctx, st); err != nil {
		return nil, err
	}
	if err := cache.Invalidate(ctx, s.cache, cache.KeySettings); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", cache.KeySettings).Msg("cache invalidation failed")
	}
	return st, nil
}

package admin

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository defines the persistence interface for admin accounts.
type UserRepository interface {
	Create(ctx context.Context, user *AdminUser) error
	GetByUsername(ctx context.Context, username string) (*AdminUser, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*AdminUser, error)
}

// SettingRepository defines the persistence interface for app settings.
type SettingRepository interface {
	Upsert(ctx context.Context, s *Setting) error
	List(ctx context.Context) ([]*Setting, error)
}

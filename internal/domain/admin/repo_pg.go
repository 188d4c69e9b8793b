package admin

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/followup/followup/internal/platform/apierr"
	"github.com/followup/followup/internal/platform/db"
)

// =========== Admin User Repository ===========

type userRepoPG struct{ pool *pgxpool.Pool }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository { return &userRepoPG{pool: pool} }

func (r *userRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const userColumns = `id, username, password, created_at`

func (r *userRepoPG) Create(ctx context.Context, user *AdminUser) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO admin_users (username, password)
		VALUES ($1, $2)
		RETURNING id, created_at`,
		user.Username, user.Password,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}
	return nil
}

func (r *userRepoPG) GetByUsername(ctx context.Context, username string) (*AdminUser, error) {
	u, err := scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userColumns+` FROM admin_users WHERE username = $1`, username))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apierr.NotFound("admin user", username)
		}
		return nil, fmt.Errorf("get admin user: %w", err)
	}
	return u, nil
}

func (r *userRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM admin_users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete admin user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apierr.NotFound("admin user", id)
	}
	return nil
}

func (r *userRepoPG) List(ctx context.Context) ([]*AdminUser, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+userColumns+` FROM admin_users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list admin users: %w", err)
	}
	defer rows.Close()

	out := []*AdminUser{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func scanUser(row pgx.Row) (*AdminUser, error) {
	var u AdminUser
	if err := row.Scan(&u.ID, &u.Username, &u.Password, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// =========== Setting Repository ===========

type settingRepoPG struct{ pool *pgxpool.Pool }

func NewSettingRepoPG(pool *pgxpool.Pool) SettingRepository { return &settingRepoPG{pool: pool} }

func (r *settingRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

func (r *settingRepoPG) Upsert(ctx context.Context, s *Setting) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO app_settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
		RETURNING updated_at`,
		s.Key, s.Value,
	).Scan(&s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert setting %s: %w", s.Key, err)
	}
	return nil
}

func (r *settingRepoPG) List(ctx context.Context) ([]*Setting, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT key, value, updated_at FROM app_settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	out := []*Setting{}
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

package reward

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *Reward) error
	GetByID(ctx context.Context, id uuid.UUID) (*Reward, error)
	Update(ctx context.Context, r *Reward) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*Reward, error)
}

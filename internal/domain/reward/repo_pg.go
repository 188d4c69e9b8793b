package reward

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/followup/followup/internal/platform/apierr"
	"github.com/followup/followup/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const rewardCols = `id, patient_id, points, action, date`

func (r *repoPG) Create(ctx context.Context, rw *Reward) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO rewards (patient_id, points, action, date)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		rw.PatientID, rw.Points, rw.Action, rw.Date,
	).Scan(&rw.ID)
	if err != nil {
		return fmt.Errorf("insert reward: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Reward, error) {
	rw, err := scanReward(r.conn(ctx).QueryRow(ctx, `SELECT `+rewardCols+` FROM rewards WHERE id = $1`, id))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apierr.NotFound("reward", id)
		}
		return nil, fmt.Errorf("get reward: %w", err)
	}
	return rw, nil
}

func (r *repoPG) Update(ctx context.Context, rw *Reward) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE rewards SET patient_id = $2, points = $3, action = $4, date = $5
		WHERE id = $1`,
		rw.ID, rw.PatientID, rw.Points, rw.Action, rw.Date,
	)
	if err != nil {
		return fmt.Errorf("update reward: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apierr.NotFound("reward", rw.ID)
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM rewards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete reward: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apierr.NotFound("reward", id)
	}
	return nil
}

func (r *repoPG) List(ctx context.Context) ([]*Reward, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+rewardCols+` FROM rewards ORDER BY date DESC`)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	defer rows.Close()

	out := []*Reward{}
	for rows.Next() {
		rw, err := scanReward(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rw)
	}
	return out, rows.Err()
}

func scanReward(row pgx.Row) (*Reward, error) {
	var rw Reward
	if err := row.Scan(&rw.ID, &rw.PatientID, &rw.Points, &rw.Action, &rw.Date); err != nil {
		return nil, err
	}
	return &rw, nil
}

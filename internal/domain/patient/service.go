package patient

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/followup/followup/internal/platform/apierr"
	"github.com/followup/followup/internal/platform/cache"
)

type Service struct {
	repo  Repository
	cache cache.Store
	ttl   time.Duration
}

// NewService creates the patient service. store may be nil to disable the
// collection cache.
func NewService(repo Repository, store cache.Store, ttl time.Duration) *Service {
	return &Service{repo: repo, cache: store, ttl: ttl}
}

func (s *Service) Create(ctx context.Context, in Input) (*Patient, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	p := &Patient{}
	in.apply(p)
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.invalidate(ctx, cache.KeyPatients)
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

// Update overwrites every mutable field of the patient.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in Input) (*Patient, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(p)
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.invalidate(ctx, cache.KeyPatients)
	return p, nil
}

// Delete removes the patient. Rows that referenced it stay behind with no
// patient, so every dependent collection is dropped as well.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, confirmed bool) error {
	if !confirmed {
		return fmt.Errorf("delete patient %s: %w", id, apierr.ErrConfirmationRequired)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, append([]string{cache.KeyPatients}, cache.PatientDependents...)...)
	return nil
}

// List returns every patient, newest first.
func (s *Service) List(ctx context.Context) ([]*Patient, error) {
	return cache.Load(ctx, s.cache, cache.KeyPatients, s.ttl, s.repo.List)
}

// Search filters the full collection with Patient.Matches. A query that
// matches nothing yields an empty list.
func (s *Service) Search(ctx context.Context, query string) ([]*Patient, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Patient, 0, len(all))
	for _, p := range all {
		if p.Matches(query) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Directory indexes the collection by id for joining patient names onto
// other rows.
func (s *Service) Directory(ctx context.Context) (Directory, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	dir := make(Directory, len(all))
	for _, p := range all {
		dir[p.ID] = p
	}
	return dir, nil
}

func (s *Service) invalidate(ctx context.Context, keys ...string) {
	if err := cache.Invalidate(ctx, s.cache, keys...); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Strs("keys", keys).Msg("cache invalidation failed")
	}
}

// Directory maps patient ids to patients.
type Directory map[uuid.UUID]*Patient

// Lookup returns the patient for id, or nil when id is nil or unknown.
func (d Directory) Lookup(id *uuid.UUID) *Patient {
	if id == nil {
		return nil
	}
	return d[*id]
}

// Name returns the patient's full name or UnknownName.
func (d Directory) Name(id *uuid.UUID) string {
	if p := d.Lookup(id); p != nil {
		return p.FullName()
	}
	return UnknownName
}

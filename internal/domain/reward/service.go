package reward

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/followup/followup/internal/domain/patient"
	"github.com/followup/followup/internal/platform/apierr"
	"github.com/followup/followup/internal/platform/cache"
)

// PatientDirectory supplies the patient index used to name rewards.
type PatientDirectory interface {
	Directory(ctx context.Context) (patient.Directory, error)
}

type Service struct {
	repo     Repository
	patients PatientDirectory
	cache    cache.Store
	ttl      time.Duration
	now      func() time.Time
}

func NewService(repo Repository, patients PatientDirectory, store cache.Store, ttl time.Duration) *Service {
	return &Service{repo: repo, patients: patients, cache: store, ttl: ttl, now: time.Now}
}

// Add credits points to a patient. The date defaults to now.
func (s *Service) Add(ctx context.Context, in Input) (*Reward, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	r := &Reward{}
	in.apply(r, s.now())
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return r, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in Input) (*Reward, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(r, s.now())
	if err := s.repo.Update(ctx, r); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return r, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID, confirmed bool) error {
	if !confirmed {
		return fmt.Errorf("delete reward %s: %w", id, apierr.ErrConfirmationRequired)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// List returns every reward, newest first.
func (s *Service) List(ctx context.Context) ([]*Reward, error) {
	return cache.Load(ctx, s.cache, cache.KeyRewards, s.ttl, s.repo.List)
}

// Search joins rewards with their patients and filters with View.Matches.
func (s *Service) Search(ctx context.Context, query string) ([]View, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	dir, err := s.patients.Directory(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]View, 0, len(all))
	for _, r := range all {
		v := View{Reward: r, Patient: dir.Lookup(r.PatientID), PatientName: dir.Name(r.PatientID)}
		if v.Matches(query) {
			out = append(out, v)
		}
	}
	return out, nil
}

// Balance is recomputed from the full collection on every call.
func (s *Service) Balance(ctx context.Context, patientID uuid.UUID) (int, error) {
	all, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	return Balance(all, patientID), nil
}

// History returns the patient's rewards, newest first.
func (s *Service) History(ctx context.Context, patientID uuid.UUID) ([]*Reward, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := []*Reward{}
	for _, r := range all {
		if r.PatientID != nil && *r.PatientID == patientID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

// TopPatients ranks patients by total points, highest first. Ties are
// broken by patient id. Rewards of deleted patients are skipped.
func (s *Service) TopPatients(ctx context.Context, limit int) ([]Ranking, error) {
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	dir, err := s.patients.Directory(ctx)
	if err != nil {
		return nil, err
	}

	totals := make(map[uuid.UUID]int)
	for _, r := range all {
		if dir.Lookup(r.PatientID) == nil {
			continue
		}
		totals[*r.PatientID] += r.Points
	}

	ranks := make([]Ranking, 0, len(totals))
	for id, pts := range totals {
		p := dir[id]
		ranks = append(ranks, Ranking{PatientID: id, PatientName: p.FullName(), CodeNumber: p.CodeNumber, Points: pts})
	}
	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].Points != ranks[j].Points {
			return ranks[i].Points > ranks[j].Points
		}
		return ranks[i].PatientID.String() < ranks[j].PatientID.String()
	})
	if len(ranks) > limit {
		ranks = ranks[:limit]
	}
	return ranks, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := cache.Invalidate(ctx, s.cache, cache.KeyRewards); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", cache.KeyRewards).Msg("cache invalidation failed")
	}
}

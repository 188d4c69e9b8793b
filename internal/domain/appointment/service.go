package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/followup/followup/internal/domain/patient"
	"github.com/followup/followup/internal/platform/apierr"
	"github.com/followup/followup/internal/platform/cache"
)

// PatientDirectory supplies the patient index used to name appointments.
type PatientDirectory interface {
	Directory(ctx context.Context) (patient.Directory, error)
}

type Service struct {
	repo     Repository
	patients PatientDirectory
	cache    cache.Store
	ttl      time.Duration
}

func NewService(repo Repository, patients PatientDirectory, store cache.Store, ttl time.Duration) *Service {
	return &Service{repo: repo, patients: patients, cache: store, ttl: ttl}
}

func (s *Service) Create(ctx context.Context, in Input) (*Appointment, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	a := &Appointment{}
	in.apply(a)
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return a, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// Update overwrites the appointment. Status may move in any direction.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in Input) (*Appointment, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(a)
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return a, nil
}

// Complete marks the appointment completed. Completing a completed
// appointment succeeds.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	if err := s.repo.UpdateStatus(ctx, id, StatusCompleted); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID, confirmed bool) error {
	if !confirmed {
		return fmt.Errorf("delete appointment %s: %w", id, apierr.ErrConfirmationRequired)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, cache.AppointmentDependents...)
	return nil
}

// List returns the raw appointment collection ordered by date and time.
func (s *Service) List(ctx context.Context) ([]*Appointment, error) {
	return cache.Load(ctx, s.cache, cache.KeyAppointments, s.ttl, s.repo.List)
}

// Views joins every appointment with its patient.
func (s *Service) Views(ctx context.Context) ([]View, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	dir, err := s.patients.Directory(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]View, 0, len(all))
	for _, a := range all {
		views = append(views, newView(a, dir))
	}
	return views, nil
}

// Search filters the joined appointments with View.Matches and groups the
// result by date.
func (s *Service) Search(ctx context.Context, query string) ([]DateGroup, error) {
	views, err := s.Views(ctx)
	if err != nil {
		return nil, err
	}
	matched := make([]View, 0, len(views))
	for _, v := range views {
		if v.Matches(query) {
			matched = append(matched, v)
		}
	}
	return GroupByDate(matched), nil
}

// ForPatient returns the patient's appointments.
func (s *Service) ForPatient(ctx context.Context, patientID uuid.UUID) ([]View, error) {
	views, err := s.Views(ctx)
	if err != nil {
		return nil, err
	}
	out := []View{}
	for _, v := range views {
		if v.PatientID != nil && *v.PatientID == patientID {
			out = append(out, v)
		}
	}
	return out, nil
}

// invalidate drops the appointment collection plus any extra keys.
func (s *Service) invalidate(ctx context.Context, extra ...string) {
	keys := append([]string{cache.KeyAppointments}, extra...)
	if err := cache.Invalidate(ctx, s.cache, keys...); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Strs("keys", keys).Msg("cache invalidation failed")
	}
}

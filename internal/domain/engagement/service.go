package engagement

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/followup/followup/internal/domain/patient"
	"github.com/followup/followup/internal/platform/apierr"
	"github.com/followup/followup/internal/platform/cache"
	"github.com/followup/followup/pkg/validation"
)

// PatientDirectory supplies the patient index used to resolve contacts.
type PatientDirectory interface {
	Directory(ctx context.Context) (patient.Directory, error)
}

type Service struct {
	tracking      TrackingRepository
	medications   MedicationRepository
	notifications NotificationRepository
	surveys       SurveyRepository
	patients      PatientDirectory
	templates     Templates
	cache         cache.Store
	ttl           time.Duration
	now           func() time.Time
}

func NewService(tracking TrackingRepository, meds MedicationRepository, notifs NotificationRepository, surveys SurveyRepository, patients PatientDirectory, store cache.Store, ttl time.Duration) *Service {
	return &Service{
		tracking:      tracking,
		medications:   meds,
		notifications: notifs,
		surveys:       surveys,
		patients:      patients,
		templates:     DefaultTemplates(),
		cache:         store,
		ttl:           ttl,
		now:           time.Now,
	}
}

func forPatient[T any](items []*T, pid uuid.UUID, owner func(*T) *uuid.UUID) []*T {
	out := []*T{}
	for _, it := range items {
		if id := owner(it); id != nil && *id == pid {
			out = append(out, it)
		}
	}
	return out
}

// -- Health Tracking --

// RecordHealth stores a measurement. recorded_at defaults to now.
func (s *Service) RecordHealth(ctx context.Context, in TrackingInput) (*HealthTracking, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	h := &HealthTracking{
		PatientID:    in.PatientID,
		TrackingType: in.TrackingType,
		Value:        in.Value,
		Notes:        in.Notes,
		RecordedAt:   s.now().UTC(),
	}
	if in.RecordedAt != nil {
		h.RecordedAt = *in.RecordedAt
	}
	if err := s.tracking.Create(ctx, h); err != nil {
		return nil, err
	}
	s.invalidate(ctx, cache.KeyHealthTracking)
	return h, nil
}

func (s *Service) DeleteHealth(ctx context.Context, id uuid.UUID, confirmed bool) error {
	if !confirmed {
		return fmt.Errorf("delete health tracking %s: %w", id, apierr.ErrConfirmationRequired)
	}
	if err := s.tracking.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, cache.KeyHealthTracking)
	return nil
}

func (s *Service) ListHealth(ctx context.Context) ([]*HealthTracking, error) {
	return cache.Load(ctx, s.cache, cache.KeyHealthTracking, s.ttl, s.tracking.List)
}

// HealthForPatient returns the patient's measurements, newest first.
func (s *Service) HealthForPatient(ctx context.Context, pid uuid.UUID) ([]*HealthTracking, error) {
	all, err := s.ListHealth(ctx)
	if err != nil {
		return nil, err
	}
	out := forPatient(all, pid, func(h *HealthTracking) *uuid.UUID { return h.PatientID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordedAt.After(out[j].RecordedAt) })
	return out, nil
}

// -- Medication Schedules --

func (s *Service) CreateMedication(ctx context.Context, in MedicationInput) (*MedicationSchedule, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	m := &MedicationSchedule{}
	in.apply(m)
	if err := s.medications.Create(ctx, m); err != nil {
		return nil, err
	}
	s.invalidate(ctx, cache.KeyMedicationSchedules)
	return m, nil
}

func (s *Service) GetMedication(ctx context.Context, id uuid.UUID) (*MedicationSchedule, error) {
	return s.medications.GetByID(ctx, id)
}

// UpdateMedication overwrites the schedule. is_active is kept when omitted.
func (s *Service) UpdateMedication(ctx context.Context, id uuid.UUID, in MedicationInput) (*MedicationSchedule, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	m, err := s.medications.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(m)
	if err := s.medications.Update(ctx, m); err != nil {
		return nil, err
	}
	s.invalidate(ctx, cache.KeyMedicationSchedules)
	return m, nil
}

// DeactivateMedication clears is_active. Deactivating twice succeeds.
func (s *Service) DeactivateMedication(ctx context.Context, id uuid.UUID) (*MedicationSchedule, error) {
	m, err := s.medications.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	m.IsActive = false
	if err := s.medications.Update(ctx, m); err != nil {
		return nil, err
	}
	s.invalidate(ctx, cache.KeyMedicationSchedules)
	return m, nil
}

func (s *Service) DeleteMedication(ctx context.Context, id uuid.UUID, confirmed bool) error {
	if !confirmed {
		return fmt.Errorf("delete medication schedule %s: %w", id, apierr.ErrConfirmationRequired)
	}
	if err := s.medications.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, append([]string{cache.KeyMedicationSchedules}, cache.MedicationDependents...)...)
	return nil
}

func (s *Service) ListMedications(ctx context.Context) ([]*MedicationSchedule, error) {
	return cache.Load(ctx, s.cache, cache.KeyMedicationSchedules, s.ttl, s.medications.List)
}

func (s *Service) MedicationsForPatient(ctx context.Context, pid uuid.UUID) ([]*MedicationSchedule, error) {
	all, err := s.ListMedications(ctx)
	if err != nil {
		return nil, err
	}
	return forPatient(all, pid, func(m *MedicationSchedule) *uuid.UUID { return m.PatientID }), nil
}

// ActiveMedications returns the patient's schedules with is_active set.
func (s *Service) ActiveMedications(ctx context.Context, pid uuid.UUID) ([]*MedicationSchedule, error) {
	mine, err := s.MedicationsForPatient(ctx, pid)
	if err != nil {
		return nil, err
	}
	out := []*MedicationSchedule{}
	for _, m := range mine {
		if m.IsActive {
			out = append(out, m)
		}
	}
	return out, nil
}

// -- Notification Schedules --

func (s *Service) ScheduleNotification(ctx context.Context, in NotificationInput) (*NotificationSchedule, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	n := &NotificationSchedule{
		PatientID:            in.PatientID,
		AppointmentID:        in.AppointmentID,
		MedicationScheduleID: in.MedicationScheduleID,
		NotificationType:     in.NotificationType,
		DeliveryMethod:       in.DeliveryMethod,
		ScheduledTime:        in.scheduledAt,
		MessageContent:       in.MessageContent,
		Status:               NotificationPending,
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		return nil, err
	}
	s.invalidate(ctx, cache.KeyNotificationSchedules)
	return n, nil
}

func (s *Service) GetNotification(ctx context.Context, id uuid.UUID) (*NotificationSchedule, error) {
	return s.notifications.GetByID(ctx, id)
}

func (s *Service) ListNotifications(ctx context.Context) ([]*NotificationSchedule, error) {
	return cache.Load(ctx, s.cache, cache.KeyNotificationSchedules, s.ttl, s.notifications.List)
}

func (s *Service) NotificationsForPatient(ctx context.Context, pid uuid.UUID) ([]*NotificationSchedule, error) {
	all, err := s.ListNotifications(ctx)
	if err != nil {
		return nil, err
	}
	return forPatient(all, pid, func(n *NotificationSchedule) *uuid.UUID { return n.PatientID }), nil
}

// CancelNotification marks a pending notification cancelled. Rows that were
// already sent or failed cannot be cancelled; cancelling twice succeeds.
func (s *Service) CancelNotification(ctx context.Context, id uuid.UUID) (*NotificationSchedule, error) {
	n, err := s.notifications.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch n.Status {
	case NotificationCancelled:
		return n, nil
	case NotificationPending:
	default:
		return nil, validation.Errors{"status": fmt.Sprintf("a %s notification cannot be cancelled", n.Status)}
	}
	if err := s.notifications.Transition(ctx, id, NotificationPending, NotificationCancelled, nil); err != nil {
		if errors.Is(err, ErrStatusChanged) {
			return s.CancelNotification(ctx, id)
		}
		return nil, err
	}
	n.Status = NotificationCancelled
	s.invalidate(ctx, cache.KeyNotificationSchedules)
	return n, nil
}

func (s *Service) DeleteNotification(ctx context.Context, id uuid.UUID, confirmed bool) error {
	if !confirmed {
		return fmt.Errorf("delete notification schedule %s: %w", id, apierr.ErrConfirmationRequired)
	}
	if err := s.notifications.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, cache.KeyNotificationSchedules)
	return nil
}

// DueNotifications reads straight from the store so the dispatcher never
// works from a stale cached collection.
func (s *Service) DueNotifications(ctx context.Context, methods []string, limit int) ([]*NotificationSchedule, error) {
	if len(methods) == 0 {
		return []*NotificationSchedule{}, nil
	}
	return s.notifications.ListDue(ctx, s.now().UTC(), methods, limit)
}

// Contact resolves the patient a notification is addressed to.
func (s *Service) Contact(ctx context.Context, n *NotificationSchedule) (*patient.Patient, error) {
	dir, err := s.patients.Directory(ctx)
	if err != nil {
		return nil, err
	}
	p := dir.Lookup(n.PatientID)
	if p == nil {
		return nil, apierr.NotFound("patient for notification", n.ID)
	}
	return p, nil
}

// MarkSent and MarkFailed only move pending rows. A row cancelled while it
// was being delivered keeps its status and ErrStatusChanged is returned.
func (s *Service) MarkSent(ctx context.Context, id uuid.UUID) error {
	at := s.now().UTC()
	return s.setNotificationStatus(ctx, id, NotificationSent, &at)
}

func (s *Service) MarkFailed(ctx context.Context, id uuid.UUID) error {
	return s.setNotificationStatus(ctx, id, NotificationFailed, nil)
}

func (s *Service) setNotificationStatus(ctx context.Context, id uuid.UUID, status string, sentAt *time.Time) error {
	if err := s.notifications.Transition(ctx, id, NotificationPending, status, sentAt); err != nil {
		return err
	}
	s.invalidate(ctx, cache.KeyNotificationSchedules)
	return nil
}

// -- Surveys --

// SurveyTemplates returns the question sets by survey type.
func (s *Service) SurveyTemplates() Templates {
	return s.templates
}

// CreateSurvey hands a survey to a patient with a copy of its template
// questions. Responses submitted together with the survey complete it.
func (s *Service) CreateSurvey(ctx context.Context, in SurveyInput) (*PatientSurvey, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	questions, ok := s.templates.Questions(in.SurveyType)
	if !ok {
		return nil, validation.Errors{"survey_type": "no questions defined for " + in.SurveyType}
	}
	sv := &PatientSurvey{
		PatientID:     in.PatientID,
		AppointmentID: in.AppointmentID,
		SurveyType:    in.SurveyType,
		Questions:     questions,
	}
	if len(in.Responses) > 0 {
		at := s.now().UTC()
		sv.Responses = in.Responses
		sv.CompletedAt = &at
	}
	if err := s.surveys.Create(ctx, sv); err != nil {
		return nil, err
	}
	s.invalidate(ctx, cache.KeyPatientSurveys)
	return sv, nil
}

func (s *Service) GetSurvey(ctx context.Context, id uuid.UUID) (*PatientSurvey, error) {
	return s.surveys.GetByID(ctx, id)
}

// SubmitResponses records the answers and stamps completed_at. A repeated
// submission overwrites the earlier answers.
func (s *Service) SubmitResponses(ctx context.Context, id uuid.UUID, in ResponsesInput) (*PatientSurvey, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	at := s.now().UTC()
	if err := s.surveys.SetResponses(ctx, id, in.Responses, at); err != nil {
		return nil, err
	}
	s.invalidate(ctx, cache.KeyPatientSurveys)
	return s.surveys.GetByID(ctx, id)
}

func (s *Service) DeleteSurvey(ctx context.Context, id uuid.UUID, confirmed bool) error {
	if !confirmed {
		return fmt.Errorf("delete survey %s: %w", id, apierr.ErrConfirmationRequired)
	}
	if err := s.surveys.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, cache.KeyPatientSurveys)
	return nil
}

func (s *Service) ListSurveys(ctx context.Context) ([]*PatientSurvey, error) {
	return cache.Load(ctx, s.cache, cache.KeyPatientSurveys, s.ttl, s.surveys.List)
}

func (s *Service) SurveysForPatient(ctx context.Context, pid uuid.UUID) ([]*PatientSurvey, error) {
	all, err := s.ListSurveys(ctx)
	if err != nil {
		return nil, err
	}
	return forPatient(all, pid, func(sv *PatientSurvey) *uuid.UUID { return sv.PatientID }), nil
}

// PendingSurveys returns the patient's surveys without responses.
func (s *Service) PendingSurveys(ctx context.Context, pid uuid.UUID) ([]*PatientSurvey, error) {
	mine, err := s.SurveysForPatient(ctx, pid)
	if err != nil {
		return nil, err
	}
	out := []*PatientSurvey{}
	for _, sv := range mine {
		if sv.Pending() {
			out = append(out, sv)
		}
	}
	return out, nil
}

func (s *Service) invalidate(ctx context.Context, keys ...string) {
	if err := cache.Invalidate(ctx, s.cache, keys...); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Strs("keys", keys).Msg("cache invalidation failed")
	}
}

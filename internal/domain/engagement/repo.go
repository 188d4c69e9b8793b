package engagement

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TrackingRepository interface {
	Create(ctx context.Context, h *HealthTracking) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*HealthTracking, error)
}

type MedicationRepository interface {
	Create(ctx context.Context, m *MedicationSchedule) error
	GetByID(ctx context.Context, id uuid.UUID) (*MedicationSchedule, error)
	Update(ctx context.Context, m *MedicationSchedule) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*MedicationSchedule, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *NotificationSchedule) error
	GetByID(ctx context.Context, id uuid.UUID) (*NotificationSchedule, error)
	// Transition moves a row from status from to status to. It returns
	// ErrStatusChanged when the row exists but is no longer in from.
	Transition(ctx context.Context, id uuid.UUID, from, to string, sentAt *time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*NotificationSchedule, error)
	// ListDue returns pending rows for the given delivery methods scheduled
	// at or before now, oldest first.
	ListDue(ctx context.Context, now time.Time, methods []string, limit int) ([]*NotificationSchedule, error)
}

type SurveyRepository interface {
	Create(ctx context.Context, s *PatientSurvey) error
	GetByID(ctx context.Context, id uuid.UUID) (*PatientSurvey, error)
	SetResponses(ctx context.Context, id uuid.UUID, responses map[string]any, completedAt time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*PatientSurvey, error)
}

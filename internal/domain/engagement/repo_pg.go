package engagement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/followup/followup/internal/platform/apierr"
	"github.com/followup/followup/internal/platform/db"
)

func exec(ctx context.Context, q db.Querier, entity string, id uuid.UUID, sql string, args ...any) error {
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", entity, err)
	}
	if tag.RowsAffected() == 0 {
		return apierr.NotFound(entity, id)
	}
	return nil
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]*T, error) {
	defer rows.Close()
	out := []*T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// =========== Health Tracking Repository ===========

type trackingRepoPG struct{ pool *pgxpool.Pool }

func NewTrackingRepoPG(pool *pgxpool.Pool) TrackingRepository { return &trackingRepoPG{pool: pool} }

func (r *trackingRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const trackingCols = `id, patient_id, tracking_type, value, notes, recorded_at, created_at`

func (r *trackingRepoPG) Create(ctx context.Context, h *HealthTracking) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO health_tracking (patient_id, tracking_type, value, notes, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		h.PatientID, h.TrackingType, h.Value, h.Notes, h.RecordedAt,
	).Scan(&h.ID, &h.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert health tracking: %w", err)
	}
	return nil
}

func (r *trackingRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return exec(ctx, r.conn(ctx), "health tracking", id, `DELETE FROM health_tracking WHERE id = $1`, id)
}

func (r *trackingRepoPG) List(ctx context.Context) ([]*HealthTracking, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+trackingCols+` FROM health_tracking ORDER BY recorded_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list health tracking: %w", err)
	}
	return collect(rows, scanTracking)
}

func scanTracking(row pgx.Row) (*HealthTracking, error) {
	var h HealthTracking
	if err := row.Scan(&h.ID, &h.PatientID, &h.TrackingType, &h.Value, &h.Notes, &h.RecordedAt, &h.CreatedAt); err != nil {
		return nil, err
	}
	return &h, nil
}

// =========== Medication Schedule Repository ===========

type medicationRepoPG struct{ pool *pgxpool.Pool }

func NewMedicationRepoPG(pool *pgxpool.Pool) MedicationRepository {
	return &medicationRepoPG{pool: pool}
}

func (r *medicationRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const medicationCols = `id, patient_id, medication_name, dosage, frequency, start_date, end_date,
	reminder_times, is_active, notes, created_at, updated_at`

func (r *medicationRepoPG) Create(ctx context.Context, m *MedicationSchedule) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medication_schedules (patient_id, medication_name, dosage, frequency,
			start_date, end_date, reminder_times, is_active, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`,
		m.PatientID, m.MedicationName, m.Dosage, m.Frequency,
		m.StartDate, m.EndDate, m.ReminderTimes, m.IsActive, m.Notes,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert medication schedule: %w", err)
	}
	return nil
}

func (r *medicationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*MedicationSchedule, error) {
	m, err := scanMedication(r.conn(ctx).QueryRow(ctx, `SELECT `+medicationCols+` FROM medication_schedules WHERE id = $1`, id))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apierr.NotFound("medication schedule", id)
		}
		return nil, fmt.Errorf("get medication schedule: %w", err)
	}
	return m, nil
}

func (r *medicationRepoPG) Update(ctx context.Context, m *MedicationSchedule) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE medication_schedules SET patient_id = $2, medication_name = $3, dosage = $4,
			frequency = $5, start_date = $6, end_date = $7, reminder_times = $8,
			is_active = $9, notes = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		m.ID, m.PatientID, m.MedicationName, m.Dosage, m.Frequency,
		m.StartDate, m.EndDate, m.ReminderTimes, m.IsActive, m.Notes,
	).Scan(&m.UpdatedAt)
	if err != nil {
		if db.IsNotFound(err) {
			return apierr.NotFound("medication schedule", m.ID)
		}
		return fmt.Errorf("update medication schedule: %w", err)
	}
	return nil
}

func (r *medicationRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return exec(ctx, r.conn(ctx), "medication schedule", id, `DELETE FROM medication_schedules WHERE id = $1`, id)
}

func (r *medicationRepoPG) List(ctx context.Context) ([]*MedicationSchedule, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+medicationCols+` FROM medication_schedules ORDER BY start_date, created_at`)
	if err != nil {
		return nil, fmt.Errorf("list medication schedules: %w", err)
	}
	return collect(rows, scanMedication)
}

func scanMedication(row pgx.Row) (*MedicationSchedule, error) {
	var m MedicationSchedule
	if err := row.Scan(&m.ID, &m.PatientID, &m.MedicationName, &m.Dosage, &m.Frequency,
		&m.StartDate, &m.EndDate, &m.ReminderTimes, &m.IsActive, &m.Notes,
		&m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// =========== Notification Schedule Repository ===========

type notificationRepoPG struct{ pool *pgxpool.Pool }

func NewNotificationRepoPG(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepoPG{pool: pool}
}

func (r *notificationRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const notificationCols = `id, patient_id, appointment_id, medication_schedule_id, notification_type,
	delivery_method, scheduled_time, message_content, status, sent_at, created_at`

func (r *notificationRepoPG) Create(ctx context.Context, n *NotificationSchedule) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO notification_schedules (patient_id, appointment_id, medication_schedule_id,
			notification_type, delivery_method, scheduled_time, message_content, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`,
		n.PatientID, n.AppointmentID, n.MedicationScheduleID,
		n.NotificationType, n.DeliveryMethod, n.ScheduledTime, n.MessageContent, n.Status,
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification schedule: %w", err)
	}
	return nil
}

func (r *notificationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*NotificationSchedule, error) {
	n, err := scanNotification(r.conn(ctx).QueryRow(ctx, `SELECT `+notificationCols+` FROM notification_schedules WHERE id = $1`, id))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apierr.NotFound("notification schedule", id)
		}
		return nil, fmt.Errorf("get notification schedule: %w", err)
	}
	return n, nil
}

func (r *notificationRepoPG) Transition(ctx context.Context, id uuid.UUID, from, to string, sentAt *time.Time) error {
	q := r.conn(ctx)
	tag, err := q.Exec(ctx,
		`UPDATE notification_schedules SET status = $3, sent_at = COALESCE($4, sent_at) WHERE id = $1 AND status = $2`,
		id, from, to, sentAt)
	if err != nil {
		return fmt.Errorf("update notification schedule status: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM notification_schedules WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check notification schedule: %w", err)
	}
	if !exists {
		return apierr.NotFound("notification schedule", id)
	}
	return fmt.Errorf("notification schedule %s is no longer %s: %w", id, from, ErrStatusChanged)
}

func (r *notificationRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return exec(ctx, r.conn(ctx), "notification schedule", id, `DELETE FROM notification_schedules WHERE id = $1`, id)
}

func (r *notificationRepoPG) List(ctx context.Context) ([]*NotificationSchedule, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+notificationCols+` FROM notification_schedules ORDER BY scheduled_time`)
	if err != nil {
		return nil, fmt.Errorf("list notification schedules: %w", err)
	}
	return collect(rows, scanNotification)
}

func (r *notificationRepoPG) ListDue(ctx context.Context, now time.Time, methods []string, limit int) ([]*NotificationSchedule, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+notificationCols+` FROM notification_schedules
		WHERE status = $1 AND scheduled_time <= $2 AND delivery_method = ANY($3)
		ORDER BY scheduled_time
		LIMIT $4`, NotificationPending, now, methods, limit)
	if err != nil {
		return nil, fmt.Errorf("list due notifications: %w", err)
	}
	return collect(rows, scanNotification)
}

func scanNotification(row pgx.Row) (*NotificationSchedule, error) {
	var n NotificationSchedule
	if err := row.Scan(&n.ID, &n.PatientID, &n.AppointmentID, &n.MedicationScheduleID,
		&n.NotificationType, &n.DeliveryMethod, &n.ScheduledTime, &n.MessageContent,
		&n.Status, &n.SentAt, &n.CreatedAt); err != nil {
		return nil, err
	}
	return &n, nil
}

// =========== Survey Repository ===========

type surveyRepoPG struct{ pool *pgxpool.Pool }

func NewSurveyRepoPG(pool *pgxpool.Pool) SurveyRepository { return &surveyRepoPG{pool: pool} }

func (r *surveyRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const surveyCols = `id, patient_id, appointment_id, survey_type, questions, responses,
	completed_at, created_at, updated_at`

func (r *surveyRepoPG) Create(ctx context.Context, s *PatientSurvey) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient_surveys (patient_id, appointment_id, survey_type, questions, responses, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		s.PatientID, s.AppointmentID, s.SurveyType, s.Questions, s.Responses, s.CompletedAt,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert patient survey: %w", err)
	}
	return nil
}

func (r *surveyRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*PatientSurvey, error) {
	s, err := scanSurvey(r.conn(ctx).QueryRow(ctx, `SELECT `+surveyCols+` FROM patient_surveys WHERE id = $1`, id))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apierr.NotFound("survey", id)
		}
		return nil, fmt.Errorf("get patient survey: %w", err)
	}
	return s, nil
}

func (r *surveyRepoPG) SetResponses(ctx context.Context, id uuid.UUID, responses map[string]any, completedAt time.Time) error {
	return exec(ctx, r.conn(ctx), "survey", id, `
		UPDATE patient_surveys SET responses = $2, completed_at = $3, updated_at = NOW()
		WHERE id = $1`, id, responses, completedAt)
}

func (r *surveyRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return exec(ctx, r.conn(ctx), "survey", id, `DELETE FROM patient_surveys WHERE id = $1`, id)
}

func (r *surveyRepoPG) List(ctx context.Context) ([]*PatientSurvey, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+surveyCols+` FROM patient_surveys ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list patient surveys: %w", err)
	}
	return collect(rows, scanSurvey)
}

func scanSurvey(row pgx.Row) (*PatientSurvey, error) {
	var s PatientSurvey
	if err := row.Scan(&s.ID, &s.PatientID, &s.AppointmentID, &s.SurveyType, &s.Questions,
		&s.Responses, &s.CompletedAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

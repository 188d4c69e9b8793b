package engagement

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/followup/followup/pkg/validation"
)

// -- Health Tracking --

// HealthTracking is one recorded measurement. Value is stored as given.
type HealthTracking struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	PatientID    *uuid.UUID      `db:"patient_id" json:"patient_id"`
	TrackingType string          `db:"tracking_type" json:"tracking_type"`
	Value        json.RawMessage `db:"value" json:"value"`
	Notes        *string         `db:"notes" json:"notes,omitempty"`
	RecordedAt   time.Time       `db:"recorded_at" json:"recorded_at"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

type TrackingInput struct {
	PatientID    *uuid.UUID      `json:"patient_id"`
	TrackingType string          `json:"tracking_type"`
	Value        json.RawMessage `json:"value"`
	Notes        *string         `json:"notes"`
	RecordedAt   *time.Time      `json:"recorded_at"`
}

func (in *TrackingInput) Validate() error {
	in.TrackingType = strings.TrimSpace(in.TrackingType)
	in.Notes = validation.TrimPtr(in.Notes)

	errs := validation.Errors{}
	requirePatient(errs, in.PatientID)
	errs.Required("tracking_type", in.TrackingType)
	v := strings.TrimSpace(string(in.Value))
	switch {
	case v == "" || v == "null":
		errs.Add("value", "value is required")
	case !json.Valid(in.Value):
		errs.Add("value", "value must be valid JSON")
	}
	return errs.Err()
}

// -- Medication Schedules --

// Frequencies offered by the medication form. Any non-blank value is accepted.
const (
	FrequencyOnceDaily       = "once_daily"
	FrequencyTwiceDaily      = "twice_daily"
	FrequencyThreeTimesDaily = "three_times_daily"
	FrequencyFourTimesDaily  = "four_times_daily"
	FrequencyAsNeeded        = "as_needed"
	FrequencyWeekly          = "weekly"
)

type MedicationSchedule struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	PatientID      *uuid.UUID `db:"patient_id" json:"patient_id"`
	MedicationName string     `db:"medication_name" json:"medication_name"`
	Dosage         string     `db:"dosage" json:"dosage"`
	Frequency      string     `db:"frequency" json:"frequency"`
	StartDate      string     `db:"start_date" json:"start_date"`
	EndDate        *string    `db:"end_date" json:"end_date,omitempty"`
	ReminderTimes  []string   `db:"reminder_times" json:"reminder_times"`
	IsActive       bool       `db:"is_active" json:"is_active"`
	Notes          *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

type MedicationInput struct {
	PatientID      *uuid.UUID `json:"patient_id"`
	MedicationName string     `json:"medication_name"`
	Dosage         string     `json:"dosage"`
	Frequency      string     `json:"frequency"`
	StartDate      string     `json:"start_date"`
	EndDate        *string    `json:"end_date"`
	ReminderTimes  []string   `json:"reminder_times"`
	IsActive       *bool      `json:"is_active"`
	Notes          *string    `json:"notes"`
}

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

func (in *MedicationInput) Validate() error {
	in.MedicationName = strings.TrimSpace(in.MedicationName)
	in.Dosage = strings.TrimSpace(in.Dosage)
	in.Frequency = strings.TrimSpace(in.Frequency)
	in.StartDate = strings.TrimSpace(in.StartDate)
	in.EndDate = validation.TrimPtr(in.EndDate)
	in.Notes = validation.TrimPtr(in.Notes)
	in.ReminderTimes = uniqueTimes(in.ReminderTimes)

	errs := validation.Errors{}
	requirePatient(errs, in.PatientID)
	errs.Required("medication_name", in.MedicationName)
	errs.Required("dosage", in.Dosage)
	errs.Required("frequency", in.Frequency)
	errs.Required("start_date", in.StartDate)
	errs.Date("start_date", in.StartDate)
	if in.EndDate != nil {
		errs.Date("end_date", *in.EndDate)
		// ISO dates order lexically.
		if in.StartDate != "" && *in.EndDate < in.StartDate {
			errs.Add("end_date", "end_date must not be before start_date")
		}
	}
	for _, t := range in.ReminderTimes {
		if !clockPattern.MatchString(t) {
			errs.Add("reminder_times", "reminder times must be HH:MM")
			break
		}
	}
	return errs.Err()
}

func (in *MedicationInput) apply(m *MedicationSchedule) {
	m.PatientID = in.PatientID
	m.MedicationName = in.MedicationName
	m.Dosage = in.Dosage
	m.Frequency = in.Frequency
	m.StartDate = in.StartDate
	m.EndDate = in.EndDate
	m.ReminderTimes = in.ReminderTimes
	m.Notes = in.Notes
	switch {
	case in.IsActive != nil:
		m.IsActive = *in.IsActive
	case m.ID == uuid.Nil:
		m.IsActive = true
	}
}

// uniqueTimes trims, drops blanks and removes duplicates, keeping first
// occurrence order.
func uniqueTimes(times []string) []string {
	out := make([]string, 0, len(times))
	seen := make(map[string]bool, len(times))
	for _, t := range times {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// -- Notification Schedules --

const (
	TypeAppointmentReminder = "appointment_reminder"
	TypeMedicationReminder  = "medication_reminder"
	TypeSurveyReminder      = "survey_reminder"
)

const (
	MethodSMS      = "sms"
	MethodWhatsApp = "whatsapp"
	MethodEmail    = "email"
)

const (
	NotificationPending   = "pending"
	NotificationSent      = "sent"
	NotificationFailed    = "failed"
	NotificationCancelled = "cancelled"
)

// ErrStatusChanged means a notification left the expected status before a
// transition could be applied.
var ErrStatusChanged = errors.New("notification status changed")

type NotificationSchedule struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	PatientID            *uuid.UUID `db:"patient_id" json:"patient_id"`
	AppointmentID        *uuid.UUID `db:"appointment_id" json:"appointment_id,omitempty"`
	MedicationScheduleID *uuid.UUID `db:"medication_schedule_id" json:"medication_schedule_id,omitempty"`
	NotificationType     string     `db:"notification_type" json:"notification_type"`
	DeliveryMethod       string     `db:"delivery_method" json:"delivery_method"`
	ScheduledTime        time.Time  `db:"scheduled_time" json:"scheduled_time"`
	MessageContent       string     `db:"message_content" json:"message_content"`
	Status               string     `db:"status" json:"status"`
	SentAt               *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
}

// Due reports whether n is pending and its scheduled time has passed.
func (n *NotificationSchedule) Due(now time.Time) bool {
	return n.Status == NotificationPending && !n.ScheduledTime.After(now)
}

type NotificationInput struct {
	PatientID            *uuid.UUID `json:"patient_id"`
	AppointmentID        *uuid.UUID `json:"appointment_id"`
	MedicationScheduleID *uuid.UUID `json:"medication_schedule_id"`
	NotificationType     string     `json:"notification_type"`
	DeliveryMethod       string     `json:"delivery_method"`
	ScheduledTime        string     `json:"scheduled_time"`
	MessageContent       string     `json:"message_content"`

	scheduledAt time.Time
}

// scheduleLayouts are tried in order. The second is what a datetime-local
// form field submits and is read as UTC.
var scheduleLayouts = []string{time.RFC3339, "2006-01-02T15:04"}

func (in *NotificationInput) Validate() error {
	in.NotificationType = strings.TrimSpace(in.NotificationType)
	in.DeliveryMethod = strings.ToLower(strings.TrimSpace(in.DeliveryMethod))
	in.ScheduledTime = strings.TrimSpace(in.ScheduledTime)
	in.MessageContent = strings.TrimSpace(in.MessageContent)
	if in.DeliveryMethod == "" {
		in.DeliveryMethod = MethodSMS
	}

	errs := validation.Errors{}
	requirePatient(errs, in.PatientID)
	errs.Required("notification_type", in.NotificationType)
	errs.OneOf("notification_type", in.NotificationType, TypeAppointmentReminder, TypeMedicationReminder, TypeSurveyReminder)
	errs.OneOf("delivery_method", in.DeliveryMethod, MethodSMS, MethodWhatsApp, MethodEmail)
	errs.Required("scheduled_time", in.ScheduledTime)
	if in.ScheduledTime != "" {
		t, ok := parseSchedule(in.ScheduledTime)
		if !ok {
			errs.Add("scheduled_time", "scheduled_time must be an RFC 3339 timestamp")
		}
		in.scheduledAt = t
	}
	errs.Required("message_content", in.MessageContent)
	return errs.Err()
}

func parseSchedule(s string) (time.Time, bool) {
	for _, layout := range scheduleLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// -- Surveys --

const (
	SurveyPreAppointment  = "pre_appointment"
	SurveyPostAppointment = "post_appointment"
	SurveyGeneralHealth   = "general_health"
)

type PatientSurvey struct {
	ID            uuid.UUID      `db:"id" json:"id"`
	PatientID     *uuid.UUID     `db:"patient_id" json:"patient_id"`
	AppointmentID *uuid.UUID     `db:"appointment_id" json:"appointment_id,omitempty"`
	SurveyType    string         `db:"survey_type" json:"survey_type"`
	Questions     []Question     `db:"questions" json:"questions"`
	Responses     map[string]any `db:"responses" json:"responses,omitempty"`
	CompletedAt   *time.Time     `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// Pending reports whether the survey has not been answered yet.
func (s *PatientSurvey) Pending() bool {
	return s.CompletedAt == nil
}

type SurveyInput struct {
	PatientID     *uuid.UUID     `json:"patient_id"`
	AppointmentID *uuid.UUID     `json:"appointment_id"`
	SurveyType    string         `json:"survey_type"`
	Responses     map[string]any `json:"responses"`
}

func (in *SurveyInput) Validate() error {
	in.SurveyType = strings.TrimSpace(in.SurveyType)

	errs := validation.Errors{}
	requirePatient(errs, in.PatientID)
	errs.Required("survey_type", in.SurveyType)
	errs.OneOf("survey_type", in.SurveyType, SurveyPreAppointment, SurveyPostAppointment, SurveyGeneralHealth)
	return errs.Err()
}

// ResponsesInput is the body of a survey submission.
type ResponsesInput struct {
	Responses map[string]any `json:"responses"`
}

func (in *ResponsesInput) Validate() error {
	errs := validation.Errors{}
	if len(in.Responses) == 0 {
		errs.Add("responses", "responses are required")
	}
	return errs.Err()
}

func requirePatient(errs validation.Errors, id *uuid.UUID) {
	if id == nil || *id == uuid.Nil {
		errs.Add("patient_id", "patient_id is required")
	}
}

package reward

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/followup/followup/internal/domain/patient"
	"github.com/followup/followup/pkg/validation"
)

// Actions offered by the reward form. Any non-blank action is accepted.
const (
	ActionAppointmentAttendance = "appointment_attendance"
	ActionMedicationAdherence   = "medication_adherence"
	ActionHealthGoalAchievement = "health_goal_achievement"
	ActionReferral              = "referral"
	ActionAppEngagement         = "app_engagement"
)

// DefaultTopLimit is how many patients the leaderboard shows by default.
const DefaultTopLimit = 4

// Reward maps to the rewards table. Rows are credits only.
type Reward struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	PatientID *uuid.UUID `db:"patient_id" json:"patient_id"`
	Points    int        `db:"points" json:"points"`
	Action    string     `db:"action" json:"action"`
	Date      time.Time  `db:"date" json:"date"`
}

type Input struct {
	PatientID *uuid.UUID `json:"patient_id"`
	Points    int        `json:"points"`
	Action    string     `json:"action"`
	Date      *time.Time `json:"date"`
}

func (in *Input) Validate() error {
	in.Action = strings.TrimSpace(in.Action)

	errs := validation.Errors{}
	if in.PatientID == nil || *in.PatientID == uuid.Nil {
		errs.Add("patient_id", "patient_id is required")
	}
	errs.Positive("points", in.Points)
	errs.Required("action", in.Action)
	return errs.Err()
}

func (in *Input) apply(r *Reward, now time.Time) {
	r.PatientID = in.PatientID
	r.Points = in.Points
	r.Action = in.Action
	switch {
	case in.Date != nil:
		r.Date = *in.Date
	case r.Date.IsZero():
		r.Date = now
	}
}

// View is a reward joined with its patient.
type View struct {
	*Reward
	Patient     *patient.Patient `json:"patient,omitempty"`
	PatientName string           `json:"patient_name"`
}

// Matches reports whether query occurs, case-insensitively, in the
// patient's first or last name, patient code or the action.
func (v View) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	fields := []string{v.Action}
	if v.Patient != nil {
		fields = append(fields, v.Patient.FirstName, v.Patient.LastName, v.Patient.CodeNumber)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// Ranking is one leaderboard entry.
type Ranking struct {
	PatientID   uuid.UUID `json:"patient_id"`
	PatientName string    `json:"patient_name"`
	CodeNumber  string    `json:"code_number"`
	Points      int       `json:"points"`
}

// Balance sums the points credited to patientID.
func Balance(rewards []*Reward, patientID uuid.UUID) int {
	total := 0
	for _, r := range rewards {
		if r.PatientID != nil && *r.PatientID == patientID {
			total += r.Points
		}
	}
	return total
}

package appointment

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/followup/followup/internal/domain/patient"
	"github.com/followup/followup/pkg/validation"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Appointment maps to the appointments table. Date is an ISO calendar date
// kept as text; Time is free text and never parsed.
type Appointment struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	PatientID *uuid.UUID `db:"patient_id" json:"patient_id"`
	Date      string     `db:"date" json:"date"`
	Time      string     `db:"time" json:"time"`
	Type      *string    `db:"type" json:"type,omitempty"`
	Status    string     `db:"status" json:"status"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// Input is the appointment form.
type Input struct {
	PatientID *uuid.UUID `json:"patient_id"`
	Date      string     `json:"date"`
	Time      string     `json:"time"`
	Type      string     `json:"type"`
	Status    string     `json:"status"`
}

func (in *Input) Validate() error {
	in.Date = strings.TrimSpace(in.Date)
	in.Time = strings.TrimSpace(in.Time)
	in.Type = strings.TrimSpace(in.Type)
	in.Status = strings.ToLower(strings.TrimSpace(in.Status))
	if in.Status == "" {
		in.Status = StatusPending
	}

	errs := validation.Errors{}
	if in.PatientID == nil || *in.PatientID == uuid.Nil {
		errs.Add("patient_id", "patient_id is required")
	}
	errs.Required("date", in.Date)
	errs.Date("date", in.Date)
	errs.Required("time", in.Time)
	errs.Required("type", in.Type)
	errs.OneOf("status", in.Status, StatusPending, StatusCompleted, StatusCancelled)
	return errs.Err()
}

func (in *Input) apply(a *Appointment) {
	a.PatientID = in.PatientID
	a.Date = in.Date
	a.Time = in.Time
	a.Type = &in.Type
	a.Status = in.Status
}

// View is an appointment joined with its patient. Patient is nil when the
// reference is empty or dangling.
type View struct {
	*Appointment
	Patient     *patient.Patient `json:"patient,omitempty"`
	PatientName string           `json:"patient_name"`
}

func newView(a *Appointment, dir patient.Directory) View {
	return View{Appointment: a, Patient: dir.Lookup(a.PatientID), PatientName: dir.Name(a.PatientID)}
}

// Matches reports whether query occurs, case-insensitively, in the
// patient's first or last name, patient code, type, status or date.
func (v View) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	fields := []string{v.Date, v.Status}
	if v.Type != nil {
		fields = append(fields, *v.Type)
	}
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

// DateGroup holds the appointments that share one date string.
type DateGroup struct {
	Date         string `json:"date"`
	Appointments []View `json:"appointments"`
}

// GroupByDate buckets views by exact date string. Groups come back in
// ascending lexical date order; within a group the input order is kept.
func GroupByDate(views []View) []DateGroup {
	index := make(map[string]int)
	groups := []DateGroup{}
	for _, v := range views {
		i, ok := index[v.Date]
		if !ok {
			i = len(groups)
			index[v.Date] = i
			groups = append(groups, DateGroup{Date: v.Date})
		}
		groups[i].Appointments = append(groups[i].Appointments, v)
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Date < groups[j].Date })
	return groups
}

// Package dashboard assembles the admin, doctor and patient summaries from
// the other domain services. Everything is computed on read.
package dashboard

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/followup/followup/internal/domain/appointment"
	"github.com/followup/followup/internal/domain/engagement"
	"github.com/followup/followup/internal/domain/patient"
	"github.com/followup/followup/internal/domain/reward"
	"github.com/followup/followup/pkg/validation"
)

type PatientSource interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
	List(ctx context.Context) ([]*patient.Patient, error)
}

type AppointmentSource interface {
	Views(ctx context.Context) ([]appointment.View, error)
	ForPatient(ctx context.Context, patientID uuid.UUID) ([]appointment.View, error)
}

type RewardSource interface {
	Balance(ctx context.Context, patientID uuid.UUID) (int, error)
	History(ctx context.Context, patientID uuid.UUID) ([]*reward.Reward, error)
	TopPatients(ctx context.Context, limit int) ([]reward.Ranking, error)
}

type EngagementSource interface {
	ActiveMedications(ctx context.Context, patientID uuid.UUID) ([]*engagement.MedicationSchedule, error)
	PendingSurveys(ctx context.Context, patientID uuid.UUID) ([]*engagement.PatientSurvey, error)
}

type SettingsSource interface {
	DoctorName(ctx context.Context) (string, error)
}

type Service struct {
	patients     PatientSource
	appointments AppointmentSource
	rewards      RewardSource
	engagement   EngagementSource
	settings     SettingsSource
	now          func() time.Time
}

func NewService(patients PatientSource, appointments AppointmentSource, rewards RewardSource, eng EngagementSource, settings SettingsSource) *Service {
	return &Service{
		patients:     patients,
		appointments: appointments,
		rewards:      rewards,
		engagement:   eng,
		settings:     settings,
		now:          time.Now,
	}
}

func (s *Service) today() string {
	return s.now().Format(validation.DateLayout)
}

// AdminStats are the counters on the admin overview.
type AdminStats struct {
	Patients              int `json:"patients"`
	Appointments          int `json:"appointments"`
	PendingAppointments   int `json:"pending_appointments"`
	CompletedAppointments int `json:"completed_appointments"`
	HighRiskPatients      int `json:"high_risk_patients"`
}

func (s *Service) Admin(ctx context.Context) (*AdminStats, error) {
	var (
		pats  []*patient.Patient
		appts []appointment.View
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		pats, err = s.patients.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		appts, err = s.appointments.Views(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := &AdminStats{Patients: len(pats), Appointments: len(appts)}
	for _, p := range pats {
		if p.RiskLevel == patient.RiskHigh {
			stats.HighRiskPatients++
		}
	}
	for _, a := range appts {
		switch a.Status {
		case appointment.StatusPending:
			stats.PendingAppointments++
		case appointment.StatusCompleted:
			stats.CompletedAppointments++
		}
	}
	return stats, nil
}

// DoctorView is the doctor's daily overview.
type DoctorView struct {
	DoctorName        string             `json:"doctor_name"`
	Date              string             `json:"date"`
	TodayAppointments []appointment.View `json:"today_appointments"`
	HighRiskPatients  []*patient.Patient `json:"high_risk_patients"`
	TopPatients       []reward.Ranking   `json:"top_patients"`
}

func (s *Service) Doctor(ctx context.Context) (*DoctorView, error) {
	view := &DoctorView{
		Date:              s.today(),
		TodayAppointments: []appointment.View{},
		HighRiskPatients:  []*patient.Patient{},
	}
	var (
		pats  []*patient.Patient
		appts []appointment.View
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		view.DoctorName, err = s.settings.DoctorName(gctx)
		return err
	})
	g.Go(func() (err error) {
		pats, err = s.patients.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		appts, err = s.appointments.Views(gctx)
		return err
	})
	g.Go(func() (err error) {
		view.TopPatients, err = s.rewards.TopPatients(gctx, reward.DefaultTopLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, a := range appts {
		if a.Date == view.Date {
			view.TodayAppointments = append(view.TodayAppointments, a)
		}
	}
	sort.SliceStable(view.TodayAppointments, func(i, j int) bool {
		return view.TodayAppointments[i].Time < view.TodayAppointments[j].Time
	})
	for _, p := range pats {
		if p.RiskLevel == patient.RiskHigh {
			view.HighRiskPatients = append(view.HighRiskPatients, p)
		}
	}
	return view, nil
}

// PortalView is what a patient sees about themselves.
type PortalView struct {
	Patient           *patient.Patient                 `json:"patient"`
	Balance           int                              `json:"balance"`
	Rewards           []*reward.Reward                 `json:"rewards"`
	Upcoming          []appointment.View               `json:"upcoming_appointments"`
	ActiveMedications []*engagement.MedicationSchedule `json:"active_medications"`
	PendingSurveys    []*engagement.PatientSurvey      `json:"pending_surveys"`
}

// Portal returns the patient portal. Upcoming appointments are those dated
// today or later that are not cancelled, soonest first.
func (s *Service) Portal(ctx context.Context, patientID uuid.UUID) (*PortalView, error) {
	p, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return nil, err
	}
	view := &PortalView{Patient: p, Upcoming: []appointment.View{}}

	var appts []appointment.View
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		view.Balance, err = s.rewards.Balance(gctx, patientID)
		return err
	})
	g.Go(func() (err error) {
		view.Rewards, err = s.rewards.History(gctx, patientID)
		return err
	})
	g.Go(func() (err error) {
		appts, err = s.appointments.ForPatient(gctx, patientID)
		return err
	})
	g.Go(func() (err error) {
		view.ActiveMedications, err = s.engagement.ActiveMedications(gctx, patientID)
		return err
	})
	g.Go(func() (err error) {
		view.PendingSurveys, err = s.engagement.PendingSurveys(gctx, patientID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	today := s.today()
	for _, a := range appts {
		if a.Date >= today && a.Status != appointment.StatusCancelled {
			view.Upcoming = append(view.Upcoming, a)
		}
	}
	sort.SliceStable(view.Upcoming, func(i, j int) bool {
		if view.Upcoming[i].Date != view.Upcoming[j].Date {
			return view.Upcoming[i].Date < view.Upcoming[j].Date
		}
		return view.Upcoming[i].Time < view.Upcoming[j].Time
	})
	return view, nil
}

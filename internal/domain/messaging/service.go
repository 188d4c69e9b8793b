package messaging

import (
	"context"

	"github.com/google/uuid"

	"github.com/followup/followup/internal/domain/patient"
	"github.com/followup/followup/pkg/validation"
)

// PatientLookup resolves the patient a shortcut is addressed to.
type PatientLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

type Service struct {
	patients PatientLookup
}

func NewService(patients PatientLookup) *Service {
	return &Service{patients: patients}
}

// Compose builds a link for an explicit recipient.
func (s *Service) Compose(r Request) (*Link, error) {
	return Compose(r)
}

// ComposeForPatient fills the recipient from the patient's phone (sms,
// whatsapp) or email. A missing contact is a validation error.
func (s *Service) ComposeForPatient(ctx context.Context, patientID uuid.UUID, r Request) (*Link, error) {
	p, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return nil, err
	}
	r.normalize()

	var contact *string
	field := "phone"
	switch r.Method {
	case MethodSMS, MethodWhatsApp:
		contact = p.Phone
	case MethodEmail:
		contact, field = p.Email, "email"
	default:
		return Compose(r)
	}
	if contact == nil || *contact == "" {
		return nil, validation.Errors{field: "patient has no " + field + " on file"}
	}
	r.Recipient = *contact
	return Compose(r)
}

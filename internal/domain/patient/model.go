package patient

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/followup/followup/pkg/validation"
)

const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// UnknownName is shown wherever a row references a patient that no longer exists.
const UnknownName = "Unknown Patient"

// Patient maps to the patients table.
type Patient struct {
	ID         uuid.UUID `db:"id" json:"id"`
	FirstName  string    `db:"first_name" json:"first_name"`
	LastName   string    `db:"last_name" json:"last_name"`
	CodeNumber string    `db:"code_number" json:"code_number"`
	Phone      *string   `db:"phone" json:"phone,omitempty"`
	Email      *string   `db:"email" json:"email,omitempty"`
	Condition  *string   `db:"condition" json:"condition,omitempty"`
	RiskLevel  string    `db:"risk_level" json:"risk_level"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Input is the patient form. Optional fields submitted as empty strings
// are stored as absent.
type Input struct {
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	CodeNumber string  `json:"code_number"`
	Phone      *string `json:"phone"`
	Email      *string `json:"email"`
	Condition  *string `json:"condition"`
	RiskLevel  string  `json:"risk_level"`
}

func (in *Input) normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.CodeNumber = strings.TrimSpace(in.CodeNumber)
	in.Phone = validation.TrimPtr(in.Phone)
	in.Email = validation.TrimPtr(in.Email)
	in.Condition = validation.TrimPtr(in.Condition)
	in.RiskLevel = strings.ToLower(strings.TrimSpace(in.RiskLevel))
	if in.RiskLevel == "" {
		in.RiskLevel = RiskLow
	}
}

// Validate normalizes in and reports every field that fails.
func (in *Input) Validate() error {
	in.normalize()

	errs := validation.Errors{}
	errs.Required("first_name", in.FirstName)
	errs.Required("last_name", in.LastName)
	errs.Required("code_number", in.CodeNumber)
	if in.Email != nil {
		errs.Email("email", *in.Email)
	}
	errs.OneOf("risk_level", in.RiskLevel, RiskLow, RiskMedium, RiskHigh)
	return errs.Err()
}

func (in *Input) apply(p *Patient) {
	p.FirstName = in.FirstName
	p.LastName = in.LastName
	p.CodeNumber = in.CodeNumber
	p.Phone = in.Phone
	p.Email = in.Email
	p.Condition = in.Condition
	p.RiskLevel = in.RiskLevel
}

// Matches reports whether query occurs, case-insensitively, in the
// patient's first name, last name, code number, email or condition.
// An empty query matches everything.
func (p *Patient) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	fields := []string{p.FirstName, p.LastName, p.CodeNumber, deref(p.Email), deref(p.Condition)}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

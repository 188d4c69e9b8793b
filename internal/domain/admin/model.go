package admin

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/followup/followup/pkg/validation"
)

// AdminUser maps to the admin_users table. Password holds an argon2id hash,
// or plaintext for rows created before hashing was introduced.
type AdminUser struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Password  string    `db:"password" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// MinPasswordLength applies to accounts created through the API or CLI.
const MinPasswordLength = 8

type AdminInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (in *AdminInput) Validate() error {
	in.Username = strings.TrimSpace(in.Username)

	errs := validation.Errors{}
	errs.Required("username", in.Username)
	errs.Required("password", in.Password)
	if in.Password != "" && len(in.Password) < MinPasswordLength {
		errs.Add("password", "password must be at least 8 characters")
	}
	return errs.Err()
}

// Setting maps to the app_settings table.
type Setting struct {
	Key       string    `db:"key" json:"key"`
	Value     string    `db:"value" json:"value"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

const (
	KeyDoctorName     = "doctor_name"
	DefaultDoctorName = "Doctor"
)

type DoctorNameInput struct {
	DoctorName string `json:"doctor_name"`
}

func (in *DoctorNameInput) Validate() error {
	in.DoctorName = strings.TrimSpace(in.DoctorName)

	errs := validation.Errors{}
	errs.Required("doctor_name", in.DoctorName)
	return errs.Err()
}

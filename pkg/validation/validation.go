// Package validation collects field-level form errors.
package validation

import (
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date format used for appointment and
// schedule dates. Zero-padding makes lexical order chronological.
const DateLayout = "2006-01-02"

// Errors maps a field name to its first validation failure.
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, e[f]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records msg for field unless the field already has an error.
func (e Errors) Add(field, msg string) {
	if _, ok := e[field]; !ok {
		e[field] = msg
	}
}

// Err returns nil when no field failed, so callers can `return errs.Err()`.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Required fails when value is blank after trimming.
func (e Errors) Required(field, value string) {
	if strings.TrimSpace(value) == "" {
		e.Add(field, field+" is required")
	}
}

// Email checks address format. Empty values pass; pair with Required when
// the field is mandatory.
func (e Errors) Email(field, value string) {
	if value == "" {
		return
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value || !strings.Contains(addr.Address, "@") {
		e.Add(field, "invalid email address")
	}
}

// OneOf fails when value is not one of allowed.
func (e Errors) OneOf(field, value string, allowed ...string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	e.Add(field, fmt.Sprintf("%s must be one of %s", field, strings.Join(allowed, ", ")))
}

// Date checks value is an ISO calendar date. Empty values pass.
func (e Errors) Date(field, value string) {
	if value == "" {
		return
	}
	if _, err := time.Parse(DateLayout, value); err != nil {
		e.Add(field, field+" must be a date in YYYY-MM-DD format")
	}
}

// Positive fails unless n > 0.
func (e Errors) Positive(field string, n int) {
	if n <= 0 {
		e.Add(field, field+" must be a positive number")
	}
}

// TrimPtr trims *s and turns an empty result into nil, so optional form
// fields submitted as "" are stored as absent.
func TrimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

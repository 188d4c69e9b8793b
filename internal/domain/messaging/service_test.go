package messaging

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/followup/followup/internal/domain/patient"
	"github.com/followup/followup/internal/platform/apierr"
	"github.com/followup/followup/pkg/validation"
)

type stubPatients map[uuid.UUID]*patient.Patient

func (s stubPatients) Get(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := s[id]
	if !ok {
		return nil, apierr.NotFound("patient", id)
	}
	return p, nil
}

func strPtr(s string) *string { return &s }

func newTestService() (*Service, stubPatients) {
	pats := stubPatients{}
	return NewService(pats), pats
}

func TestService_ComposeForPatient(t *testing.T) {
	svc, pats := newTestService()
	id := uuid.New()
	pats[id] = &patient.Patient{ID: id, FirstName: "Jane", Phone: strPtr("+1 650 253 0000"), Email: strPtr("jane@example.com")}

	link, err := svc.ComposeForPatient(context.Background(), id, Request{Method: MethodSMS, Message: "hello"})
	if err != nil {
		t.Fatalf("sms: %v", err)
	}
	if link.URI != "sms:+1 650 253 0000?body=hello" {
		t.Errorf("unexpected %q", link.URI)
	}

	link, err = svc.ComposeForPatient(context.Background(), id, Request{Method: MethodEmail, Message: "hello"})
	if err != nil {
		t.Fatalf("email: %v", err)
	}
	if !strings.HasPrefix(link.URI, "mailto:jane@example.com?subject=Health%20Tracker%20Message") {
		t.Errorf("unexpected %q", link.URI)
	}
}

func TestService_ComposeForPatient_MissingContact(t *testing.T) {
	svc, pats := newTestService()
	id := uuid.New()
	pats[id] = &patient.Patient{ID: id, FirstName: "Jane"}

	_, err := svc.ComposeForPatient(context.Background(), id, Request{Method: MethodWhatsApp})
	var verrs validation.Errors
	if !errors.As(err, &verrs) || verrs["phone"] == "" {
		t.Errorf("expected phone validation error, got %v", err)
	}

	if _, err := svc.ComposeForPatient(context.Background(), uuid.New(), Request{Method: MethodSMS}); !errors.Is(err, apierr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestHandler_Compose(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages/compose", strings.NewReader(`{"method":"sms","recipient":"12345","message":"hi there"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.Compose(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"uri":"sms:12345?body=hi%20there"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_Compose_BlankRecipient(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages/compose", strings.NewReader(`{"method":"email","recipient":""}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	err := h.Compose(e.NewContext(req, httptest.NewRecorder()))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_ComposeForPatient_InvalidID(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("nope")
	he, ok := h.ComposeForPatient(c).(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Error("expected 400 for invalid id")
	}
}

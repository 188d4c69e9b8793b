package dashboard

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/followup/followup/internal/domain/patient"
)

func TestHandler_Portal(t *testing.T) {
	svc, f := newTestService()
	jane := f.patients.add("Jane", "Doe", patient.RiskLow)
	h := NewHandler(svc)
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(jane.ID.String())
	if err := h.Portal(c); err != nil {
		t.Fatalf("portal: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())
	he, ok := h.Portal(c).(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", he)
	}
}

func TestHandler_Admin(t *testing.T) {
	svc, f := newTestService()
	f.patients.add("Jane", "Doe", patient.RiskHigh)
	h := NewHandler(svc)
	rec := httptest.NewRecorder()
	if err := h.Admin(echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)); err != nil {
		t.Fatalf("admin: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_Doctor(t *testing.T) {
	svc, f := newTestService()
	f.settings.name = "Dr. Adams"
	h := NewHandler(svc)
	rec := httptest.NewRecorder()
	if err := h.Doctor(echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)); err != nil {
		t.Fatalf("doctor: %v", err)
	}
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"doctor_name":"Dr. Adams"`) {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_Portal_InvalidID(t *testing.T) {
	svc, _ := newTestService()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")
	he, ok := NewHandler(svc).Portal(c).(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", he)
	}
}

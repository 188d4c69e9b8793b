package appointment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *echo.Echo, *stubDirectory) {
	svc, _, dir := newTestService()
	return NewHandler(svc), echo.New(), dir
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T (%v)", err, err)
	}
	return he.Code
}

func TestHandler_CreateAppointment(t *testing.T) {
	h, e, dir := newTestHandler()
	pid := dir.add("Jane", "Doe", "P100")

	body := `{"patient_id":"` + pid.String() + `","date":"2024-05-01","time":"10:00","type":"checkup"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateAppointment(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var a Appointment
	_ = json.Unmarshal(rec.Body.Bytes(), &a)
	if a.Status != StatusPending {
		t.Errorf("expected pending, got %q", a.Status)
	}
}

func TestHandler_CreateAppointment_BadDate(t *testing.T) {
	h, e, dir := newTestHandler()
	pid := dir.add("Jane", "Doe", "P100")

	body := `{"patient_id":"` + pid.String() + `","date":"tomorrow","time":"10:00","type":"checkup"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if code := httpCode(t, h.CreateAppointment(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestHandler_ListAppointments(t *testing.T) {
	h, e, dir := newTestHandler()
	pid := dir.add("Jane", "Doe", "P100")
	_, _ = h.svc.Create(context.Background(), Input{PatientID: idPtr(pid), Date: "2024-05-01", Time: "10:00", Type: "checkup"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments?q=doe", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListAppointments(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var groups []struct {
		Date         string `json:"date"`
		Appointments []struct {
			PatientName string `json:"patient_name"`
			Time        string `json:"time"`
		} `json:"appointments"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &groups); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(groups) != 1 || groups[0].Appointments[0].PatientName != "Jane Doe" || groups[0].Appointments[0].Time != "10:00" {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_CompleteAppointment(t *testing.T) {
	h, e, dir := newTestHandler()
	pid := dir.add("Jane", "Doe", "P100")
	a, _ := h.svc.Create(context.Background(), Input{PatientID: idPtr(pid), Date: "2024-05-01", Time: "10:00", Type: "checkup"})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())

	if err := h.CompleteAppointment(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"status":"completed"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_CompleteAppointment_NotFound(t *testing.T) {
	h, e, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("00000000-0000-0000-0000-000000000001")

	if code := httpCode(t, h.CompleteAppointment(c)); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
}

func TestHandler_DeleteAppointment_NeedsConfirm(t *testing.T) {
	h, e, dir := newTestHandler()
	pid := dir.add("Jane", "Doe", "P100")
	a, _ := h.svc.Create(context.Background(), Input{PatientID: idPtr(pid), Date: "2024-05-01", Time: "10:00", Type: "checkup"})

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())

	if code := httpCode(t, h.DeleteAppointment(c)); code != http.StatusConflict {
		t.Errorf("expected 409, got %d", code)
	}
}

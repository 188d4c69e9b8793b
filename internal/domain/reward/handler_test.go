package reward

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

func TestHandler_AddReward(t *testing.T) {
	h, e, dir := newTestHandler()
	pid := dir.add("Jane", "Doe", "P100")

	body := `{"patient_id":"` + pid.String() + `","points":50,"action":"referral"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rewards", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.AddReward(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
}

func TestHandler_AddReward_NonPositive(t *testing.T) {
	h, e, dir := newTestHandler()
	pid := dir.add("Jane", "Doe", "P100")

	body := `{"patient_id":"` + pid.String() + `","points":0,"action":"referral"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rewards", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.AddReward(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_TopPatients(t *testing.T) {
	h, e, dir := newTestHandler()
	ctx := context.Background()
	pid := dir.add("Jane", "Doe", "P100")
	_, _ = h.svc.Add(ctx, Input{PatientID: idPtr(pid), Points: 50, Action: ActionAppointmentAttendance})
	_, _ = h.svc.Add(ctx, Input{PatientID: idPtr(pid), Points: 30, Action: ActionMedicationAdherence})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rewards/top", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.TopPatients(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var ranks []Ranking
	if err := json.Unmarshal(rec.Body.Bytes(), &ranks); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(ranks) != 1 || ranks[0].Points != 80 {
		t.Errorf("expected 80 points, got %+v", ranks)
	}
}

func TestHandler_GetBalance(t *testing.T) {
	h, e, dir := newTestHandler()
	pid := dir.add("Jane", "Doe", "P100")
	_, _ = h.svc.Add(context.Background(), Input{PatientID: idPtr(pid), Points: 12, Action: ActionReferral})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(pid.String())

	if err := h.GetBalance(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"balance":12`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_GetHistory_Paged(t *testing.T) {
	h, e, dir := newTestHandler()
	pid := dir.add("Jane", "Doe", "P100")
	for i := 0; i < 3; i++ {
		_, _ = h.svc.Add(context.Background(), Input{PatientID: idPtr(pid), Points: 1, Action: ActionAppEngagement})
	}

	req := httptest.NewRequest(http.MethodGet, "/?limit=2", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(pid.String())

	if err := h.GetHistory(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var page struct {
		Data    []Reward `json:"data"`
		Total   int      `json:"total"`
		HasMore bool     `json:"has_more"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(page.Data) != 2 || page.Total != 3 || !page.HasMore {
		t.Errorf("unexpected page %+v", page)
	}
}

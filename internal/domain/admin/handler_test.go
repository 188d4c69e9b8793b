package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *echo.Echo, *mockUserRepo) {
	svc, users, _ := newTestService()
	return NewHandler(svc), echo.New(), users
}

func TestHandler_DoctorName_RoundTrip(t *testing.T) {
	h, e, _ := newTestHandler()

	rec := httptest.NewRecorder()
	if err := h.GetDoctorName(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)); err != nil {
		t.Fatalf("get: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"doctor_name":"Doctor"`) {
		t.Errorf("expected default name, got %s", rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"doctor_name":"Dr. Adams"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	if err := h.UpdateDoctorName(e.NewContext(req, rec)); err != nil {
		t.Fatalf("update: %v", err)
	}

	rec = httptest.NewRecorder()
	_ = h.GetDoctorName(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec))
	var body map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["doctor_name"] != "Dr. Adams" {
		t.Errorf("expected updated name, got %v", body)
	}
}

func TestHandler_UpdateDoctorName_Blank(t *testing.T) {
	h, e, _ := newTestHandler()
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"doctor_name":""}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	err := h.UpdateDoctorName(e.NewContext(req, httptest.NewRecorder()))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_CreateAdmin_HidesPassword(t *testing.T) {
	h, e, _ := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/users", strings.NewReader(`{"username":"nurse","password":"password1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := h.CreateAdmin(e.NewContext(req, rec)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "password") || strings.Contains(rec.Body.String(), "argon2") {
		t.Errorf("password leaked in response: %s", rec.Body.String())
	}
}

func TestHandler_DeleteAdmin_Last(t *testing.T) {
	h, e, users := newTestHandler()
	u, _ := h.svc.CreateAdmin(context.Background(), AdminInput{Username: "only", Password: "password1"})

	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/?confirm=true", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(u.ID.String())
	he, ok := h.DeleteAdmin(c).(*echo.HTTPError)
	if !ok || he.Code != http.StatusConflict {
		t.Errorf("expected 409, got %v", he)
	}
	if len(users.users) != 1 {
		t.Error("last admin must not be deleted")
	}
}
